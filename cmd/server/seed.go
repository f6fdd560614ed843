package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

type questionsYAML struct {
	Questions []questionYAMLItem `yaml:"questions"`
}

type questionYAMLItem struct {
	Text           string `yaml:"text"`
	ExpectedAnswer string `yaml:"expected_answer"`
	AnswerTips     string `yaml:"answer_tips"`
}

// seedQuestionsFromYAML upserts the question bank used for coaching hints.
// Seeding is idempotent; rerunning refreshes hints in place.
func seedQuestionsFromYAML(ctx domain.Context, repo domain.QuestionRepository, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("seed file not found: %s", path)
		}
		return 0, err
	}
	var doc questionsYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return 0, fmt.Errorf("yaml parse: %w", err)
	}
	n := 0
	for _, item := range doc.Questions {
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		hint := domain.QuestionHint{
			QuestionText:   text,
			ExpectedAnswer: strings.TrimSpace(item.ExpectedAnswer),
			AnswerTips:     strings.TrimSpace(item.AnswerTips),
		}
		if err := repo.UpsertHint(ctx, hint); err != nil {
			return n, fmt.Errorf("upsert hint: %w", err)
		}
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("no questions to seed in %s", path)
	}
	return n, nil
}
