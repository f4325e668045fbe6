package testsession

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/example/itabot/internal/analytics"
	"github.com/example/itabot/internal/database"
	"github.com/example/itabot/pkg/models"
)

// Session is one running test for one chat.
type Session struct {
	Questions  []Question
	Answers    []Answer
	Params     models.TestParameters
	Difficulty analytics.DifficultyAnalysis
	StartedAt  time.Time
}

// Current returns the next unanswered question, or nil when the test is
// finished.
func (s *Session) Current() *Question {
	if len(s.Answers) >= len(s.Questions) {
		return nil
	}
	return &s.Questions[len(s.Answers)]
}

// Module wires question building and result recording to the database
type Module struct {
	store     *database.Store
	engine    *analytics.Engine
	projector *analytics.Projector
	rnd       *rand.Rand
}

// NewModule creates a testing module over the shared store and
// analytics projector
func NewModule(store *database.Store, engine *analytics.Engine, projector *analytics.Projector) *Module {
	return &Module{
		store:     store,
		engine:    engine,
		projector: projector,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start builds a new test session from the stored words
func (m *Module) Start(ctx context.Context, params models.TestParameters) (*Session, error) {
	var pool []models.Word
	var err error
	if len(params.Chapters) > 0 {
		for _, chapter := range params.Chapters {
			chapterWords, err := m.store.Words.GetByChapter(ctx, chapter)
			if err != nil {
				return nil, err
			}
			pool = append(pool, chapterWords...)
		}
	} else {
		pool, err = m.store.Words.GetAll(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no words available for test")
	}

	m.rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	selection := pool
	if params.WordCount > 0 && len(selection) > params.WordCount {
		selection = selection[:params.WordCount]
	}

	performances, err := m.store.Performance.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	perfByWord := make(map[string]models.WordPerformance, len(performances))
	for _, perf := range performances {
		perfByWord[perf.WordID] = perf
	}

	return &Session{
		Questions:  BuildQuestions(selection, pool, m.rnd),
		Params:     params,
		Difficulty: PreTestDifficulty(perfByWord, selection),
		StartedAt:  time.Now().UTC(),
	}, nil
}

// Finish records a completed session: history item, attempts and the
// updated statistics commit atomically, then the trends cache is
// invalidated.
func (m *Module) Finish(ctx context.Context, session *Session) (*models.TestHistoryItem, error) {
	if len(session.Answers) == 0 {
		return nil, fmt.Errorf("no answers recorded")
	}

	item, attempts := CompileResult(session.Answers, session.Params, session.Difficulty, time.Now().UTC())

	stats, err := m.store.Statistics.Get(ctx)
	if err != nil {
		return nil, err
	}
	m.engine.ApplyTestResult(stats, *item)

	if err := m.store.RecordTest(ctx, item, attempts, stats); err != nil {
		return nil, err
	}
	m.projector.Invalidate()
	return item, nil
}
