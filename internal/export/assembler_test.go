package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/itabot/pkg/models"
)

var exportNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func sampleState() State {
	perf := models.WordPerformance{
		WordID:  "w1",
		English: "house",
		Italian: "casa",
		Chapter: "chapter 1",
		Attempts: []models.Attempt{
			{Correct: true, TimeSpentMs: 1200, Timestamp: exportNow.Add(-48 * time.Hour)},
			{Correct: false, TimeSpentMs: 3000, UsedHint: true, HintsCount: 1, Timestamp: exportNow.Add(-24 * time.Hour)},
		},
	}
	perf.Recompute()

	stats := models.NewStatistics()
	stats.TestsCompleted = 2
	stats.AverageScore = 75
	stats.DailyProgress[exportNow.Format("2006-01-02")] = models.DailyProgress{Tests: 1, Correct: 5, Total: 10}

	return State{
		Words: []models.Word{
			{ID: "w1", English: "house", Italian: "casa", Chapter: "chapter 1", CreatedAt: exportNow, UpdatedAt: exportNow},
			{ID: "w2", English: "dog", Italian: "cane", CreatedAt: exportNow, UpdatedAt: exportNow},
		},
		Statistics: stats,
		TestHistory: []models.TestHistoryItem{
			{
				ID: "t1", Timestamp: exportNow.Add(-24 * time.Hour), TotalWords: 10, CorrectWords: 8,
				IncorrectWords: 2, Percentage: 80, Difficulty: "medium",
				WrongWords:   models.StringList{"dog"},
				ChapterStats: models.ChapterStatsMap{"chapter 1": {TotalWords: 10, CorrectWords: 8, IncorrectWords: 2, Percentage: 80}},
			},
		},
		WordPerformance: map[string]models.WordPerformance{"w1": perf},
	}
}

func TestAssembleMetadata(t *testing.T) {
	doc := Assemble(sampleState(), exportNow)
	assert.Equal(t, FormatVersion, doc.Metadata.Version)
	assert.Equal(t, 2, doc.Metadata.TotalWords)
	assert.Equal(t, exportNow, doc.Metadata.ExportedAt)
	assert.NotEmpty(t, doc.Metadata.ExportID)
}

func TestExportImportRoundTrip(t *testing.T) {
	state := sampleState()

	data, err := Marshal(Assemble(state, exportNow))
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)

	restored, result, err := Apply(State{}, *doc, ModeOverwrite)
	require.NoError(t, err)
	assert.Zero(t, result.SkippedRecords)

	assert.Equal(t, state.Words, restored.Words)
	assert.Equal(t, state.Statistics, restored.Statistics)
	assert.Equal(t, state.TestHistory, restored.TestHistory)
	assert.Equal(t, state.WordPerformance, restored.WordPerformance)
}

func TestMergeIsIdempotent(t *testing.T) {
	state := sampleState()
	doc := Assemble(state, exportNow)

	once, first, err := Apply(state, doc, ModeMerge)
	require.NoError(t, err)
	assert.Zero(t, first.WordsAdded)
	assert.Zero(t, first.TestsAdded)
	assert.Zero(t, first.AttemptsAdded)

	twice, second, err := Apply(once, doc, ModeMerge)
	require.NoError(t, err)
	assert.Zero(t, second.WordsAdded)
	assert.Zero(t, second.TestsAdded)
	assert.Zero(t, second.AttemptsAdded)

	assert.Equal(t, once.Words, twice.Words)
	assert.Equal(t, once.TestHistory, twice.TestHistory)
	assert.Equal(t, once.WordPerformance, twice.WordPerformance)
}

func TestMergeUnionsNewData(t *testing.T) {
	state := sampleState()

	newAttempt := models.Attempt{Correct: true, TimeSpentMs: 900, Timestamp: exportNow.Add(-1 * time.Hour)}
	incoming := models.WordPerformance{WordID: "w1", English: "house", Italian: "casa",
		Attempts: append(append([]models.Attempt(nil), state.WordPerformance["w1"].Attempts...), newAttempt)}

	doc := Document{
		Metadata: Metadata{Version: FormatVersion, ExportedAt: exportNow},
		Words: []models.Word{
			{ID: "w9", English: "HOUSE", Italian: "casa"}, // conflicts case-insensitively, existing wins
			{ID: "w3", English: "cat", Italian: "gatto"},
		},
		TestHistory: []models.TestHistoryItem{
			{ID: "t1", Timestamp: exportNow, TotalWords: 10, CorrectWords: 8}, // duplicate id
			{ID: "t2", Timestamp: exportNow, TotalWords: 5, CorrectWords: 5},
		},
		WordPerformance: map[string]models.WordPerformance{"w1": incoming},
	}
	require.NoError(t, doc.Validate())

	merged, result, err := Apply(state, doc, ModeMerge)
	require.NoError(t, err)

	assert.Equal(t, 1, result.WordsAdded)
	assert.Equal(t, 1, result.TestsAdded)
	assert.Equal(t, 1, result.AttemptsAdded)

	assert.Len(t, merged.Words, 3)
	for _, w := range merged.Words {
		assert.NotEqual(t, "w9", w.ID)
	}
	assert.Len(t, merged.TestHistory, 2)
	assert.Len(t, merged.WordPerformance["w1"].Attempts, 3)
	// Derived fields are recomputed after the union.
	assert.Equal(t, 3, merged.WordPerformance["w1"].TotalAttempts)
	assert.Equal(t, 2, merged.WordPerformance["w1"].CorrectAttempts)
}

func TestMergeReattachesPerformanceToSurvivingWord(t *testing.T) {
	state := sampleState()

	// Same words on another device, exported under different uuids.
	doc := Document{
		Metadata: Metadata{Version: FormatVersion, ExportedAt: exportNow},
		Words: []models.Word{
			{ID: "remote-1", English: "HOUSE", Italian: "casa"},
			{ID: "remote-2", English: "Dog", Italian: "cane"},
		},
		WordPerformance: map[string]models.WordPerformance{
			"remote-1": {WordID: "remote-1", English: "HOUSE", Italian: "casa",
				Attempts: []models.Attempt{{Correct: true, TimeSpentMs: 800, Timestamp: exportNow.Add(-2 * time.Hour)}}},
			"remote-2": {WordID: "remote-2", English: "Dog", Italian: "cane",
				Attempts: []models.Attempt{{Correct: false, TimeSpentMs: 2500, Timestamp: exportNow.Add(-3 * time.Hour)}}},
		},
	}
	require.NoError(t, doc.Validate())

	merged, result, err := Apply(state, doc, ModeMerge)
	require.NoError(t, err)

	assert.Zero(t, result.WordsAdded)
	assert.Equal(t, 2, result.AttemptsAdded)
	assert.Zero(t, result.SkippedRecords)

	// Attempts land under the local ids so every attempt references a
	// word that exists after the merge.
	assert.NotContains(t, merged.WordPerformance, "remote-1")
	assert.NotContains(t, merged.WordPerformance, "remote-2")

	house := merged.WordPerformance["w1"]
	assert.Equal(t, "w1", house.WordID)
	assert.Len(t, house.Attempts, 3)
	assert.Equal(t, 3, house.TotalAttempts)

	dog := merged.WordPerformance["w2"]
	assert.Equal(t, "w2", dog.WordID)
	assert.Len(t, dog.Attempts, 1)

	wordIDs := map[string]bool{}
	for _, w := range merged.Words {
		wordIDs[w.ID] = true
	}
	for id := range merged.WordPerformance {
		assert.True(t, wordIDs[id], "performance %s has no word", id)
	}
}

func TestMergeSkipsPerformanceWithoutSurvivor(t *testing.T) {
	state := sampleState()

	doc := Document{
		Metadata: Metadata{Version: FormatVersion},
		WordPerformance: map[string]models.WordPerformance{
			"ghost": {WordID: "ghost", English: "phantom",
				Attempts: []models.Attempt{{Correct: true, Timestamp: exportNow}}},
		},
	}
	require.NoError(t, doc.Validate())

	merged, result, err := Apply(state, doc, ModeMerge)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedRecords)
	assert.Zero(t, result.AttemptsAdded)
	assert.NotContains(t, merged.WordPerformance, "ghost")
}

func TestOverwriteSkipsPerformanceForSkippedWord(t *testing.T) {
	doc := Document{
		Metadata: Metadata{Version: FormatVersion},
		Words:    []models.Word{{ID: "", English: "nameless", Italian: "senzanome"}},
		WordPerformance: map[string]models.WordPerformance{
			"wX": {WordID: "wX", Attempts: []models.Attempt{{Correct: true, Timestamp: exportNow}}},
		},
	}
	require.NoError(t, doc.Validate())

	state, result, err := Apply(State{}, doc, ModeOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SkippedRecords)
	assert.Zero(t, result.AttemptsAdded)
	assert.Empty(t, state.WordPerformance)
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	_, err := Parse([]byte("not json"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = Parse([]byte(`{"words": []}`)) // missing metadata.version
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "metadata.version")
}

func TestApplySkipsBadRecords(t *testing.T) {
	doc := Document{
		Metadata: Metadata{Version: FormatVersion},
		Words: []models.Word{
			{ID: "", English: "nameless"},
			{ID: "w1", English: "house", Italian: "casa"},
		},
		TestHistory: []models.TestHistoryItem{
			{ID: "", TotalWords: 10},
			{ID: "t1", TotalWords: 0},
		},
		WordPerformance: map[string]models.WordPerformance{
			"w1": {WordID: ""},
		},
	}
	require.NoError(t, doc.Validate())

	state, result, err := Apply(State{}, doc, ModeOverwrite)
	require.NoError(t, err)
	assert.Equal(t, 1, result.WordsAdded)
	assert.Zero(t, result.TestsAdded)
	assert.Equal(t, 4, result.SkippedRecords)
	assert.Empty(t, state.TestHistory)
}

func TestApplyUnknownMode(t *testing.T) {
	doc := Document{Metadata: Metadata{Version: FormatVersion}}
	require.NoError(t, doc.Validate())
	_, _, err := Apply(State{}, doc, Mode("sideways"))
	assert.Error(t, err)
}
