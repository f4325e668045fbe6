package testsession

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/itabot/internal/analytics"
	"github.com/example/itabot/pkg/models"
)

func word(id, english, italian, chapter string) models.Word {
	return models.Word{ID: id, English: english, Italian: italian, Chapter: chapter}
}

func testPool() []models.Word {
	return []models.Word{
		word("w1", "house", "casa", "basics"),
		word("w2", "bread", "pane", "basics"),
		word("w3", "water", "acqua", "basics"),
		word("w4", "book", "libro", "basics"),
		word("w5", "sea", "mare", "travel"),
		word("w6", "train", "treno", "travel"),
	}
}

func TestBuildQuestionsOptionsContainAnswer(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	pool := testPool()

	questions := BuildQuestions(pool[:3], pool, rnd)
	require.Len(t, questions, 3)

	for _, q := range questions {
		require.Len(t, q.Options, optionCount)
		assert.Equal(t, q.Word.Italian, q.Options[q.CorrectIndex])

		seen := make(map[string]bool)
		for _, o := range q.Options {
			assert.False(t, seen[o], "duplicate option %q", o)
			seen[o] = true
		}
	}
}

func TestBuildQuestionsPrefersSameChapterDistractors(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	pool := testPool()

	// The basics chapter has exactly three other words, so every
	// distractor for a basics word must come from that chapter.
	questions := BuildQuestions([]models.Word{pool[0]}, pool, rnd)
	require.Len(t, questions, 1)

	basics := map[string]bool{"pane": true, "acqua": true, "libro": true, "casa": true}
	for _, o := range questions[0].Options {
		assert.True(t, basics[o], "option %q is not from the basics chapter", o)
	}
}

func TestBuildQuestionsSmallPool(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	pool := testPool()[:2]

	questions := BuildQuestions(pool, pool, rnd)
	require.Len(t, questions, 2)
	for _, q := range questions {
		assert.Len(t, q.Options, 2)
		assert.Equal(t, q.Word.Italian, q.Options[q.CorrectIndex])
	}
}

func TestCompileResult(t *testing.T) {
	pool := testPool()
	finishedAt := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)
	answers := []Answer{
		{Question: Question{Word: pool[0]}, Correct: true, TimeSpentMs: 2000},
		{Question: Question{Word: pool[1]}, Correct: false, TimeSpentMs: 4000, UsedHint: true, HintsCount: 1},
		{Question: Question{Word: pool[4]}, Correct: true, TimeSpentMs: 3000},
	}
	params := models.TestParameters{Mode: "multiple_choice", WordCount: 3, HintsAllowed: true}
	difficulty := analytics.ScoreTest([]analytics.WordStatus{
		analytics.StatusNew, analytics.StatusNew, analytics.StatusConsolidated,
	})

	item, attempts := CompileResult(answers, params, difficulty, finishedAt)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, finishedAt, item.Timestamp)
	assert.Equal(t, 3, item.TotalWords)
	assert.Equal(t, 2, item.CorrectWords)
	assert.Equal(t, 1, item.IncorrectWords)
	assert.Equal(t, 1, item.HintsUsed)
	assert.Equal(t, 9000, item.TotalTime)
	assert.Equal(t, 3000, item.AvgTimePerWord)
	assert.Equal(t, 67, item.Percentage)
	assert.Equal(t, models.StringList{"bread"}, item.WrongWords)
	assert.Equal(t, difficulty.Difficulty, item.Difficulty)
	assert.Equal(t, params, item.TestParameters)

	basics := item.ChapterStats["basics"]
	assert.Equal(t, 2, basics.TotalWords)
	assert.Equal(t, 1, basics.CorrectWords)
	assert.Equal(t, 50, basics.Percentage)
	travel := item.ChapterStats["travel"]
	assert.Equal(t, 1, travel.TotalWords)
	assert.Equal(t, 100, travel.Percentage)

	require.Len(t, attempts["w1"], 1)
	assert.True(t, attempts["w1"][0].Correct)
	require.Len(t, attempts["w2"], 1)
	assert.Equal(t, 1, attempts["w2"][0].HintsCount)
	assert.Equal(t, finishedAt, attempts["w2"][0].Timestamp)
}

func TestCompileResultKeepsAnswerTimestamps(t *testing.T) {
	pool := testPool()
	finishedAt := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)
	answers := []Answer{
		{Question: Question{Word: pool[0]}, Correct: true, TimeSpentMs: 2000, AnsweredAt: finishedAt.Add(-90 * time.Second)},
		{Question: Question{Word: pool[0]}, Correct: false, TimeSpentMs: 3000, AnsweredAt: finishedAt.Add(-30 * time.Second)},
		{Question: Question{Word: pool[1]}, Correct: true, TimeSpentMs: 1000},
	}

	_, attempts := CompileResult(answers, models.TestParameters{}, analytics.ScoreTest(nil), finishedAt)

	require.Len(t, attempts["w1"], 2)
	assert.Equal(t, finishedAt.Add(-90*time.Second), attempts["w1"][0].Timestamp)
	assert.Equal(t, finishedAt.Add(-30*time.Second), attempts["w1"][1].Timestamp)
	// Answers recorded without a moment fall back to the finish time.
	require.Len(t, attempts["w2"], 1)
	assert.Equal(t, finishedAt, attempts["w2"][0].Timestamp)
}

func TestCompileResultUncategorizedChapter(t *testing.T) {
	answers := []Answer{
		{Question: Question{Word: word("w9", "dog", "cane", "")}, Correct: true, TimeSpentMs: 1000},
	}
	item, _ := CompileResult(answers, models.TestParameters{}, analytics.ScoreTest(nil), time.Now())

	_, ok := item.ChapterStats["uncategorized"]
	assert.True(t, ok)
}

func TestPreTestDifficulty(t *testing.T) {
	pool := testPool()
	performances := map[string]models.WordPerformance{}

	// All words untested: every status is new, landing in the medium
	// bucket.
	got := PreTestDifficulty(performances, pool)
	assert.Equal(t, analytics.DifficultyMedium, got.Difficulty)
	assert.Equal(t, len(pool), got.TotalWords)
	assert.Equal(t, len(pool), got.StatusBreakdown[analytics.StatusNew])
}

func TestSessionCurrent(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	pool := testPool()
	session := &Session{Questions: BuildQuestions(pool[:2], pool, rnd)}

	first := session.Current()
	require.NotNil(t, first)
	assert.Equal(t, session.Questions[0].Word.ID, first.Word.ID)

	session.Answers = append(session.Answers, Answer{Question: *first, Correct: true})
	second := session.Current()
	require.NotNil(t, second)
	assert.Equal(t, session.Questions[1].Word.ID, second.Word.ID)

	session.Answers = append(session.Answers, Answer{Question: *second, Correct: false})
	assert.Nil(t, session.Current())
}
