package testsession

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/itabot/internal/analytics"
	"github.com/example/itabot/pkg/models"
)

// optionCount is the number of choices per multiple-choice question.
const optionCount = 4

// Question is a single multiple-choice prompt: the English word with
// Italian translation options.
type Question struct {
	Word         models.Word
	Options      []string
	CorrectIndex int
}

// Answer records how one question was answered.
type Answer struct {
	Question    Question
	ChosenIndex int
	Correct     bool
	TimeSpentMs int
	UsedHint    bool
	HintsCount  int
	AnsweredAt  time.Time
}

// BuildQuestions turns a selection of words into multiple-choice
// questions. Distractors come from the same chapter first and fall back
// to the whole pool; fewer than optionCount options are produced when
// the pool is too small.
func BuildQuestions(selection, pool []models.Word, rnd *rand.Rand) []Question {
	questions := make([]Question, 0, len(selection))
	for _, word := range selection {
		options := distractors(word, pool, optionCount-1, rnd)
		options = append(options, word.Italian)
		correct := len(options) - 1

		rnd.Shuffle(len(options), func(i, j int) {
			if i == correct {
				correct = j
			} else if j == correct {
				correct = i
			}
			options[i], options[j] = options[j], options[i]
		})

		questions = append(questions, Question{
			Word:         word,
			Options:      options,
			CorrectIndex: correct,
		})
	}
	return questions
}

// distractors picks up to count wrong translations for a word
func distractors(word models.Word, pool []models.Word, count int, rnd *rand.Rand) []string {
	sameChapter := make([]string, 0)
	others := make([]string, 0)
	seen := map[string]bool{strings.ToLower(word.Italian): true}

	for _, w := range pool {
		if w.ID == word.ID || seen[strings.ToLower(w.Italian)] {
			continue
		}
		seen[strings.ToLower(w.Italian)] = true
		if w.Chapter != "" && w.Chapter == word.Chapter {
			sameChapter = append(sameChapter, w.Italian)
		} else {
			others = append(others, w.Italian)
		}
	}

	rnd.Shuffle(len(sameChapter), func(i, j int) {
		sameChapter[i], sameChapter[j] = sameChapter[j], sameChapter[i]
	})
	rnd.Shuffle(len(others), func(i, j int) {
		others[i], others[j] = others[j], others[i]
	})

	options := make([]string, 0, count)
	for _, o := range append(sameChapter, others...) {
		if len(options) == count {
			break
		}
		options = append(options, o)
	}
	return options
}

// PreTestDifficulty scores the upcoming test from the current status of
// its words. The score is stored with the result and never recalculated
// later.
func PreTestDifficulty(performances map[string]models.WordPerformance, selection []models.Word) analytics.DifficultyAnalysis {
	statuses := make([]analytics.WordStatus, 0, len(selection))
	for _, word := range selection {
		statuses = append(statuses, analytics.Classify(performances[word.ID]).Status)
	}
	return analytics.ScoreTest(statuses)
}

// CompileResult folds the answers of a finished test into an immutable
// history item plus the per-word attempts to append to the log.
func CompileResult(answers []Answer, params models.TestParameters, difficulty analytics.DifficultyAnalysis, finishedAt time.Time) (*models.TestHistoryItem, map[string][]models.Attempt) {
	item := &models.TestHistoryItem{
		ID:             uuid.NewString(),
		Timestamp:      finishedAt,
		TotalWords:     len(answers),
		WrongWords:     models.StringList{},
		ChapterStats:   models.ChapterStatsMap{},
		Difficulty:     difficulty.Difficulty,
		TestParameters: params,
	}
	attempts := make(map[string][]models.Attempt, len(answers))

	for _, answer := range answers {
		answeredAt := answer.AnsweredAt
		if answeredAt.IsZero() {
			answeredAt = finishedAt
		}
		attempt := models.Attempt{
			Correct:     answer.Correct,
			TimeSpentMs: answer.TimeSpentMs,
			UsedHint:    answer.UsedHint,
			HintsCount:  answer.HintsCount,
			Timestamp:   answeredAt,
		}
		attempts[answer.Question.Word.ID] = append(attempts[answer.Question.Word.ID], attempt)

		item.TotalTime += answer.TimeSpentMs
		item.HintsUsed += answer.HintsCount
		if answer.Correct {
			item.CorrectWords++
		} else {
			item.IncorrectWords++
			item.WrongWords = append(item.WrongWords, answer.Question.Word.English)
		}

		chapter := answer.Question.Word.Chapter
		if chapter == "" {
			chapter = "uncategorized"
		}
		stats := item.ChapterStats[chapter]
		stats.TotalWords++
		if answer.Correct {
			stats.CorrectWords++
		} else {
			stats.IncorrectWords++
		}
		stats.HintsUsed += answer.HintsCount
		stats.Percentage = models.RoundPercentage(stats.CorrectWords, stats.TotalWords)
		item.ChapterStats[chapter] = stats
	}

	item.Percentage = models.RoundPercentage(item.CorrectWords, item.TotalWords)
	if item.TotalWords > 0 {
		item.AvgTimePerWord = item.TotalTime / item.TotalWords
	}
	return item, attempts
}
