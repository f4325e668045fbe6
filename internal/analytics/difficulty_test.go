package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatStatus(s WordStatus, n int) []WordStatus {
	out := make([]WordStatus, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestScoreTestHardMajority(t *testing.T) {
	// 20 words: 12 hard-bucket, 5 promising, 3 consolidated.
	statuses := append(repeatStatus(StatusCritical, 6), repeatStatus(StatusStruggling, 6)...)
	statuses = append(statuses, repeatStatus(StatusPromising, 5)...)
	statuses = append(statuses, repeatStatus(StatusConsolidated, 3)...)

	got := ScoreTest(statuses)
	assert.Equal(t, DifficultyHard, got.Difficulty)
	assert.Equal(t, 20, got.TotalWords)
	assert.Equal(t, 12, got.Distribution.Hard.Count)
	assert.Equal(t, 60, got.Distribution.Hard.Percentage)
	assert.Equal(t, 6, got.StatusBreakdown[StatusCritical])
	assert.NotEmpty(t, got.DifficultyReason)
}

func TestScoreTestHardByWeightedScore(t *testing.T) {
	// 45% hard misses the percentage threshold but the weighted score
	// clears the cutoff: (9*3 + 11*1) / 20 = 1.9.
	statuses := append(repeatStatus(StatusCritical, 9), repeatStatus(StatusNew, 11)...)

	got := ScoreTest(statuses)
	require.Equal(t, DifficultyHard, got.Difficulty)
	assert.InDelta(t, 1.9, got.WeightedScore, 0.001)
	assert.Zero(t, got.SizeAdjustment)
}

func TestScoreTestEasyMajority(t *testing.T) {
	statuses := append(repeatStatus(StatusConsolidated, 8), repeatStatus(StatusNew, 2)...)

	got := ScoreTest(statuses)
	assert.Equal(t, DifficultyEasy, got.Difficulty)
	assert.Equal(t, 80, got.Distribution.Easy.Percentage)
}

func TestScoreTestMedium(t *testing.T) {
	statuses := append(repeatStatus(StatusPromising, 10), repeatStatus(StatusImproving, 5)...)
	statuses = append(statuses, repeatStatus(StatusStruggling, 5)...)

	got := ScoreTest(statuses)
	assert.Equal(t, DifficultyMedium, got.Difficulty)
}

func TestScoreTestSizeAdjustment(t *testing.T) {
	small := ScoreTest(repeatStatus(StatusPromising, 10))
	assert.InDelta(t, 0.2, small.SizeAdjustment, 0.001)

	large := ScoreTest(repeatStatus(StatusPromising, 60))
	assert.InDelta(t, -0.3, large.SizeAdjustment, 0.001)

	middle := ScoreTest(repeatStatus(StatusPromising, 30))
	assert.Zero(t, middle.SizeAdjustment)
}

func TestScoreTestEmpty(t *testing.T) {
	got := ScoreTest(nil)
	assert.Equal(t, DifficultyMedium, got.Difficulty)
	assert.Zero(t, got.TotalWords)
	assert.Zero(t, got.WeightedScore)
	assert.Equal(t, "no words in test", got.DifficultyReason)
}

func TestScoreTestWeightedScoreFormula(t *testing.T) {
	// 4 hard, 4 medium, 2 easy: (12 + 4 - 2) / 10 = 1.4. Only 40% of
	// the words are hard, but the small-test adjustment (+0.2) lifts
	// the score past the hard cutoff.
	statuses := append(repeatStatus(StatusInconsistent, 4), repeatStatus(StatusNew, 4)...)
	statuses = append(statuses, repeatStatus(StatusImproving, 2)...)

	got := ScoreTest(statuses)
	assert.InDelta(t, 1.4, got.WeightedScore, 0.001)
	assert.InDelta(t, 0.2, got.SizeAdjustment, 0.001)
	assert.Equal(t, DifficultyHard, got.Difficulty)
}
