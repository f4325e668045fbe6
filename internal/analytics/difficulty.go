package analytics

import "fmt"

// Difficulty labels for a whole test instance.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Status weights for the difficulty score.
const (
	hardWeight   = 3
	mediumWeight = 1
	easyWeight   = -1

	largeTestSize       = 50
	largeTestAdjustment = -0.3
	smallTestSize       = 15
	smallTestAdjustment = 0.2

	hardPctThreshold  = 50.0
	hardScoreCutoff   = 1.5
	easyPctThreshold  = 70.0
	easyScoreCutoff   = -0.5
)

// DifficultyBucket is one slice of the hard/medium/easy distribution.
type DifficultyBucket struct {
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

// DifficultyDistribution groups the test's words by how hard their
// current status makes them.
type DifficultyDistribution struct {
	Hard   DifficultyBucket `json:"hard"`
	Medium DifficultyBucket `json:"medium"`
	Easy   DifficultyBucket `json:"easy"`
}

// DifficultyAnalysis is the derived difficulty assessment of one test.
// It is computed once when the test completes, against each word's
// pre-test status, and stored on the history item; it is never
// recomputed when statuses later change.
type DifficultyAnalysis struct {
	Difficulty       string                 `json:"difficulty"`
	DifficultyReason string                 `json:"difficulty_reason"`
	WeightedScore    float64                `json:"weighted_score"`
	TotalWords       int                    `json:"total_words"`
	SizeAdjustment   float64                `json:"size_adjustment"`
	Distribution     DifficultyDistribution `json:"distribution"`
	StatusBreakdown  map[WordStatus]int     `json:"status_breakdown"`
}

// ScoreTest computes the weighted difficulty of a test from the
// current statuses of its words. An empty word list yields a medium
// label with zeroed numbers rather than an error.
func ScoreTest(statuses []WordStatus) DifficultyAnalysis {
	analysis := DifficultyAnalysis{
		Difficulty:      DifficultyMedium,
		TotalWords:      len(statuses),
		StatusBreakdown: make(map[WordStatus]int, len(AllStatuses)),
	}
	if len(statuses) == 0 {
		analysis.DifficultyReason = "no words in test"
		return analysis
	}

	hard, medium, easy := 0, 0, 0
	for _, s := range statuses {
		analysis.StatusBreakdown[s]++
		switch statusBucket(s) {
		case DifficultyHard:
			hard++
		case DifficultyEasy:
			easy++
		default:
			medium++
		}
	}

	total := len(statuses)
	hardPct := float64(hard) / float64(total) * 100
	mediumPct := float64(medium) / float64(total) * 100
	easyPct := float64(easy) / float64(total) * 100

	analysis.Distribution = DifficultyDistribution{
		Hard:   DifficultyBucket{Count: hard, Percentage: int(hardPct + 0.5)},
		Medium: DifficultyBucket{Count: medium, Percentage: int(mediumPct + 0.5)},
		Easy:   DifficultyBucket{Count: easy, Percentage: int(easyPct + 0.5)},
	}

	analysis.WeightedScore = float64(hard*hardWeight+medium*mediumWeight+easy*easyWeight) / float64(total)

	switch {
	case total > largeTestSize:
		analysis.SizeAdjustment = largeTestAdjustment
	case total < smallTestSize:
		analysis.SizeAdjustment = smallTestAdjustment
	}
	adjusted := analysis.WeightedScore + analysis.SizeAdjustment

	switch {
	case hardPct >= hardPctThreshold:
		analysis.Difficulty = DifficultyHard
		analysis.DifficultyReason = fmt.Sprintf("%.0f%% of words are struggling, inconsistent or critical", hardPct)
	case adjusted >= hardScoreCutoff:
		analysis.Difficulty = DifficultyHard
		analysis.DifficultyReason = fmt.Sprintf("weighted score %.2f (adjusted %.2f) is above the hard cutoff", analysis.WeightedScore, adjusted)
	case easyPct >= easyPctThreshold:
		analysis.Difficulty = DifficultyEasy
		analysis.DifficultyReason = fmt.Sprintf("%.0f%% of words are improving or consolidated", easyPct)
	case adjusted <= easyScoreCutoff:
		analysis.Difficulty = DifficultyEasy
		analysis.DifficultyReason = fmt.Sprintf("weighted score %.2f (adjusted %.2f) is below the easy cutoff", analysis.WeightedScore, adjusted)
	default:
		analysis.Difficulty = DifficultyMedium
		analysis.DifficultyReason = fmt.Sprintf("mixed distribution: %.0f%% hard, %.0f%% medium, %.0f%% easy", hardPct, mediumPct, easyPct)
	}

	return analysis
}

// statusBucket maps a word status to its difficulty bucket.
func statusBucket(s WordStatus) string {
	switch s {
	case StatusCritical, StatusInconsistent, StatusStruggling:
		return DifficultyHard
	case StatusImproving, StatusConsolidated:
		return DifficultyEasy
	default:
		// promising and new words sit in the middle.
		return DifficultyMedium
	}
}
