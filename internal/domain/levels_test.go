package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

func TestValidLevel(t *testing.T) {
	t.Parallel()
	assert.True(t, domain.ValidLevel(domain.LevelAssistant))
	assert.True(t, domain.ValidLevel(domain.LevelWriter))
	assert.True(t, domain.ValidLevel(domain.LevelProducer))
	assert.True(t, domain.ValidLevel(domain.LevelDirector))
	assert.True(t, domain.ValidLevel(domain.LevelUnevaluable))
	assert.False(t, domain.ValidLevel("总监级"))
	assert.False(t, domain.ValidLevel(""))
}

func TestLevelScore(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, domain.LevelScore(domain.LevelAssistant))
	assert.Equal(t, 2, domain.LevelScore(domain.LevelWriter))
	assert.Equal(t, 3, domain.LevelScore(domain.LevelProducer))
	assert.Equal(t, 4, domain.LevelScore(domain.LevelDirector))
	assert.Equal(t, 0, domain.LevelScore(domain.LevelUnevaluable))
}

func TestOverallLevelForAverage(t *testing.T) {
	t.Parallel()
	cases := []struct {
		avg  float64
		want string
	}{
		{4.0, domain.OverallDirector},
		{3.5, domain.OverallDirector},
		{3.49, domain.OverallSenior},
		{2.5, domain.OverallSenior},
		{2.49, domain.OverallProfessional},
		{1.5, domain.OverallProfessional},
		{1.49, domain.OverallAssistant},
		{0, domain.OverallAssistant},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, domain.OverallLevelForAverage(c.avg), "avg=%v", c.avg)
	}
}
