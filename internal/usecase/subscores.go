package usecase

import (
	"math/rand"
	"sync"

	"github.com/zaizaiboom/futureu913/internal/domain"
)

// SubScorer produces a five-dimension 0-100 profile for one evaluation.
// Implementations that synthesize scores (rather than measure them) must be
// understood as indicative placeholders by their callers.
type SubScorer interface {
	Score(ev domain.IndividualEvaluation) domain.CompetencyProfile
}

// LevelBucketSubScorer derives sub-scores from the coarse performance level.
// When the model supplied per-dimension scores it scales those directly;
// otherwise it jitters around the level's base score so per-question profiles
// are not flat lines. The jitter is the whole point of this implementation
// being an interface: swap it out once real per-dimension measurement exists.
type LevelBucketSubScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLevelBucketSubScorer seeds the jitter source. Tests pass a fixed seed.
func NewLevelBucketSubScorer(seed int64) *LevelBucketSubScorer {
	return &LevelBucketSubScorer{rng: rand.New(rand.NewSource(seed))}
}

var levelBaseScores = map[domain.PerformanceLevel]int{
	domain.LevelDirector:  90,
	domain.LevelProducer:  80,
	domain.LevelWriter:    70,
	domain.LevelAssistant: 60,
}

func (s *LevelBucketSubScorer) Score(ev domain.IndividualEvaluation) domain.CompetencyProfile {
	cs := ev.CompetencyScores
	if cs.ContentQuality > 0 || cs.LogicalThinking > 0 || cs.Communication > 0 ||
		cs.CreativeThinking > 0 || cs.ProblemAnalysis > 0 {
		// Real 1-5 model scores map linearly onto the 0-100 scale.
		return domain.CompetencyProfile{
			ContentQuality:   float64(cs.ContentQuality) * 20,
			LogicalThinking:  float64(cs.LogicalThinking) * 20,
			Communication:    float64(cs.Communication) * 20,
			CreativeThinking: float64(cs.CreativeThinking) * 20,
			ProblemAnalysis:  float64(cs.ProblemAnalysis) * 20,
		}
	}

	base, ok := levelBaseScores[ev.PerformanceLevel]
	if !ok {
		base = 60
	}
	return domain.CompetencyProfile{
		ContentQuality:   s.jitter(base),
		LogicalThinking:  s.jitter(base),
		Communication:    s.jitter(base),
		CreativeThinking: s.jitter(base),
		ProblemAnalysis:  s.jitter(base),
	}
}

// jitter applies a -4..+3 offset clamped to [0,100].
func (s *LevelBucketSubScorer) jitter(base int) float64 {
	s.mu.Lock()
	v := base + s.rng.Intn(8) - 4
	s.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return float64(v)
}

// BuildCompetencyProfile averages the per-question profiles of the valid
// evaluations. An all-invalid set yields the zero profile.
func BuildCompetencyProfile(evals []domain.IndividualEvaluation, scorer SubScorer) domain.CompetencyProfile {
	var out domain.CompetencyProfile
	n := 0
	for _, e := range evals {
		if !e.PreliminaryAnalysis.IsValid || e.PerformanceLevel == domain.LevelUnevaluable {
			continue
		}
		p := scorer.Score(e)
		out.ContentQuality += p.ContentQuality
		out.LogicalThinking += p.LogicalThinking
		out.Communication += p.Communication
		out.CreativeThinking += p.CreativeThinking
		out.ProblemAnalysis += p.ProblemAnalysis
		n++
	}
	if n == 0 {
		return domain.CompetencyProfile{}
	}
	f := float64(n)
	out.ContentQuality /= f
	out.LogicalThinking /= f
	out.Communication /= f
	out.CreativeThinking /= f
	out.ProblemAnalysis /= f
	return out
}
