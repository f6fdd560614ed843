package domain

// PerformanceLevel is the per-question grading bucket.
type PerformanceLevel string

const (
	LevelAssistant PerformanceLevel = "助理级"
	LevelWriter    PerformanceLevel = "编剧级"
	LevelProducer  PerformanceLevel = "制片级"
	LevelDirector  PerformanceLevel = "导演级"
	// LevelUnevaluable marks answers that could not be scored (guard rejection
	// or model failure). It never participates in summary averaging.
	LevelUnevaluable PerformanceLevel = "无法评估"
)

// Overall levels used by the cross-question summary. Note this is a different
// scale from the per-question one; the two only share 助理级.
const (
	OverallAssistant    = "助理级"
	OverallProfessional = "专业级"
	OverallSenior       = "资深级"
	OverallDirector     = "总监级"
)

var levelScores = map[PerformanceLevel]int{
	LevelAssistant: 1,
	LevelWriter:    2,
	LevelProducer:  3,
	LevelDirector:  4,
}

// ValidLevel reports whether l is a recognized per-question level,
// including the unevaluable sentinel.
func ValidLevel(l PerformanceLevel) bool {
	if l == LevelUnevaluable {
		return true
	}
	_, ok := levelScores[l]
	return ok
}

// LevelScore maps a per-question level to its numeric weight. Unrecognized
// levels and 无法评估 score zero and are skipped by callers.
func LevelScore(l PerformanceLevel) int {
	return levelScores[l]
}

// OverallLevelForAverage maps the average per-question score to the overall
// level scale.
func OverallLevelForAverage(avg float64) string {
	switch {
	case avg >= 3.5:
		return OverallDirector
	case avg >= 2.5:
		return OverallSenior
	case avg >= 1.5:
		return OverallProfessional
	default:
		return OverallAssistant
	}
}
