package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-co-op/gocron/v2"
	"github.com/keystat/keystat/internal/utils"
	"github.com/samber/lo"
)

const (
	DefaultPollInterval = time.Minute
	DefaultCooldown     = 5 * time.Minute
)

// DefaultTriggerTimes are the default times of day at which a cycle is started.
var DefaultTriggerTimes = []string{"00:00", "06:00", "12:00", "18:00"}

// TimeOfDay is a wall clock trigger time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// ParseTimesOfDay parses "HH:MM" values. The result is sorted and has no duplicates.
func ParseTimesOfDay(values []string) ([]TimeOfDay, error) {
	times := make([]TimeOfDay, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parsed, err := time.Parse("15:04", v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errInvalidTimeOfDay, v)
		}
		times = append(times, TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()})
	}
	if len(times) == 0 {
		return nil, errNoTriggerTimes
	}

	times = lo.Uniq(times)
	slices.SortFunc(times, func(a, b TimeOfDay) int {
		return (a.Hour*60 + a.Minute) - (b.Hour*60 + b.Minute)
	})
	return times, nil
}

// State of the Scheduler.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

type cycleRunner interface {
	Run(ctx context.Context) error
}

// SchedulerOptions configures a Scheduler. Zero values fall back to the defaults.
type SchedulerOptions struct {
	Times        []TimeOfDay    // trigger times of day, required
	Location     *time.Location // time zone of Times
	PollInterval time.Duration  // how often the clock is checked
	Cooldown     time.Duration  // pause after an unexpected cycle failure
}

// Scheduler runs a cycle at every trigger time of day. A trigger that passed while a cycle
// was running or while the scheduler was cooling down is still fired once afterwards,
// triggers older than the start of the scheduler are never fired.
type Scheduler struct {
	runner   cycleRunner
	times    []TimeOfDay
	location *time.Location
	poll     time.Duration
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	lastTrigger time.Time // latest fired trigger, or the start time
	pausedUntil time.Time

	cron gocron.Scheduler
}

// NewScheduler creates a new Scheduler instance.
func NewScheduler(runner cycleRunner, opts SchedulerOptions) (*Scheduler, error) {
	if len(opts.Times) == 0 {
		return nil, errNoTriggerTimes
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}

	return &Scheduler{
		runner:   runner,
		times:    opts.Times,
		location: opts.Location,
		poll:     opts.PollInterval,
		cooldown: opts.Cooldown,
		now:      time.Now,
		logger:   slog.Default(),
	}, nil
}

// WithLogger replaces the default logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// State returns the current state of the scheduler.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins polling the clock. Cycles receive ctx, cancel it to abort a running cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.lastTrigger = s.now().In(s.location)
	s.mu.Unlock()

	cron, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		return fmt.Errorf("[gocron.NewScheduler]: %w", err)
	}

	_, err = cron.NewJob(
		gocron.DurationJob(s.poll),
		gocron.NewTask(func() {
			s.tick(ctx)
		}),
		gocron.WithName("keystat.poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("[gocron.NewJob]: %w", err)
	}

	s.cron = cron
	cron.Start()

	s.logger.Info("[Scheduler.Start] Scheduler started",
		"times", lo.Map(s.times, func(t TimeOfDay, _ int) string { return t.String() }),
		"location", s.location.String(),
		"poll", s.poll.String(),
	)
	return nil
}

// Stop stops polling and waits for a running cycle to return.
func (s *Scheduler) Stop() error {
	if s.cron == nil {
		return nil
	}
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("[gocron.Shutdown]: %w", err)
	}
	s.logger.Info("[Scheduler.Stop] Scheduler stopped")
	return nil
}

// tick checks the clock once and runs a cycle if a trigger is due. Reports whether a cycle ran.
func (s *Scheduler) tick(ctx context.Context) bool {
	now := s.now().In(s.location)

	s.mu.Lock()
	if s.state == StateRunning || now.Before(s.pausedUntil) {
		s.mu.Unlock()
		return false
	}
	trigger, ok := s.dueTrigger(now)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.lastTrigger = trigger
	s.state = StateRunning
	s.mu.Unlock()

	s.logger.Info("[Scheduler.tick] Starting cycle", "trigger", trigger.Format(time.RFC3339))
	err := s.runCycle(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle

	if err == nil {
		return true
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		// Already logged and captured by the job.
		return true
	}
	s.pausedUntil = s.now().In(s.location).Add(s.cooldown)
	s.logger.Error("[Scheduler.tick] Unexpected cycle failure, cooling down",
		"error", err, "until", s.pausedUntil.Format(time.RFC3339))
	utils.CaptureSentryException("schedulerCycleError", sentry.CurrentHub().Clone(), err)
	return true
}

// dueTrigger returns the latest trigger instant not after now, if it was not fired yet.
func (s *Scheduler) dueTrigger(now time.Time) (time.Time, bool) {
	var latest time.Time
	for _, day := range []time.Time{now.AddDate(0, 0, -1), now} {
		for _, t := range s.times {
			at := t.on(day)
			if !at.After(now) && at.After(latest) {
				latest = at
			}
		}
	}
	if latest.IsZero() || !latest.After(s.lastTrigger) {
		return time.Time{}, false
	}
	return latest, true
}

func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errCyclePanic, r)
		}
	}()
	return s.runner.Run(ctx)
}
