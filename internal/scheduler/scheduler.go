package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/itabot/internal/analytics"
	"github.com/example/itabot/internal/database"
	"github.com/example/itabot/internal/review"
)

// Reminder window defaults, hours in UTC.
const (
	DefaultReminderStartHour = 8
	DefaultReminderEndHour   = 22
)

// Notifier delivers a reminder message to the user.
type Notifier interface {
	SendStreakReminder(message string)
}

// Scheduler runs the background jobs: the evening streak reminder and
// the daily trends cache rollover.
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	store     *database.Store
	engine    *analytics.Engine
	projector *analytics.Projector
}

// New creates a new scheduler instance
func New(notifier Notifier, store *database.Store, engine *analytics.Engine, projector *analytics.Projector) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		store:     store,
		engine:    engine,
		projector: projector,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.checkStreakRisk)

	// Date-keyed windows shift at midnight, so cached projections from
	// the previous day must not survive the rollover.
	s.scheduler.Every(1).Day().At("00:01").Do(s.projector.Invalidate)

	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkStreakRisk sends a reminder when a study streak is about to
// break: the user has an active streak but no test recorded today.
func (s *Scheduler) checkStreakRisk() {
	now := time.Now().UTC()
	if !withinReminderWindow(now.Hour()) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := s.store.Statistics.Get(ctx)
	if err != nil {
		log.Printf("Error loading statistics for reminder: %v", err)
		return
	}

	today := now.Format("2006-01-02")
	if day, ok := stats.DailyProgress[today]; ok && day.Tests > 0 {
		return
	}
	streak := s.engine.ComputeStreak(stats.DailyProgress)
	if streak == 0 {
		return
	}

	message := fmt.Sprintf("🔥 Your %d-day streak is at risk! Take a quick /test to keep it alive.", streak)
	performances, err := s.store.Performance.GetAll(ctx)
	if err == nil {
		due := review.Due(review.Recommend(performances, now), now, 0)
		if len(due) > 0 {
			message = fmt.Sprintf("🔥 Your %d-day streak is at risk and %d word(s) are due for review. Take a quick /test!", streak, len(due))
		}
	}
	s.notifier.SendStreakReminder(message)
}

// withinReminderWindow reports whether reminders may be sent at the
// given hour. The window can be moved with REMINDER_START_HOUR and
// REMINDER_END_HOUR.
func withinReminderWindow(hour int) bool {
	start := envHour("REMINDER_START_HOUR", DefaultReminderStartHour)
	end := envHour("REMINDER_END_HOUR", DefaultReminderEndHour)
	return hour >= start && hour <= end
}

// envHour reads an hour value from the environment, falling back on
// invalid input
func envHour(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	h, err := strconv.Atoi(value)
	if err != nil || h < 0 || h > 23 {
		log.Printf("Warning: invalid %s value %q, using %d", name, value, fallback)
		return fallback
	}
	return h
}
