package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/keystat/keystat/archivist"
	"github.com/keystat/keystat/composer"
	"github.com/keystat/keystat/jobs"
	"github.com/keystat/keystat/publisher"
	"github.com/keystat/keystat/scavenger"
)

type App struct {
	cfg       *Config
	job       *jobs.IndicatorJob
	archivist *archivist.Archivist // nil when POSTGRES_DSN is not set
	logger    *slog.Logger
}

// NewApp wires the fetcher, extractor, composer, publishers and the optional archive into a job.
func NewApp(cfg *Config, logger *slog.Logger) (*App, error) {
	env := cfg.env

	sources := scavenger.NewScavenger(env.EcosAPIKey, cfg.EcosBaseURL, cfg.HTTPTimeout)

	postLocation, err := time.LoadLocation(cfg.PostTimezone)
	if err != nil {
		return nil, fmt.Errorf("[time.LoadLocation] POST_TIMEZONE: %w", err)
	}
	postComposer, err := composer.NewPostComposer(composer.Mode(cfg.Mode), postLocation)
	if err != nil {
		return nil, err
	}

	x := publisher.NewXPublisher(publisher.XCredentials{
		ConsumerKey:       env.ConsumerKey,
		ConsumerSecret:    env.ConsumerSecret,
		AccessToken:       env.AccessToken,
		AccessTokenSecret: env.AccessTokenSecret,
	}, cfg.HTTPTimeout)

	job := jobs.NewIndicatorJob(sources.KeyStatistics, composer.NewExtractor(), postComposer, x).
		WithLogger(logger).
		Timeout(cfg.CycleTimeout)
	if !cfg.DryRun {
		job.Publish()
	}

	app := &App{
		cfg:    cfg,
		job:    job,
		logger: logger,
	}

	if env.TelegramBotToken != "" {
		tg, err := publisher.NewTelegramPublisher(env.TelegramChannelID, env.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		job.WithMirrors(tg)
	}

	if env.PostgresDSN != "" {
		arch, err := archivist.NewArchivist(env.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.archivist = arch
		job.WithArchive(arch.Entities.Posts)
		if cfg.SkipDuplicates {
			job.SkipDuplicates()
		}
	} else if cfg.SkipDuplicates {
		logger.Warn("[NewApp] SKIP_DUPLICATES needs POSTGRES_DSN, duplicates will not be detected")
	}

	return app, nil
}

// RunOnce performs exactly one cycle.
func (a *App) RunOnce(ctx context.Context) error {
	return a.job.Run(ctx)
}

// RunScheduled runs cycles at the configured times until ctx is done.
func (a *App) RunScheduled(ctx context.Context) error {
	times, err := jobs.ParseTimesOfDay(a.cfg.ScheduleTimes)
	if err != nil {
		return fmt.Errorf("SCHEDULE_TIMES: %w", err)
	}
	location, err := time.LoadLocation(a.cfg.ScheduleTimezone)
	if err != nil {
		return fmt.Errorf("[time.LoadLocation] SCHEDULE_TIMEZONE: %w", err)
	}

	s, err := jobs.NewScheduler(a.job, jobs.SchedulerOptions{
		Times:        times,
		Location:     location,
		PollInterval: a.cfg.PollInterval,
		Cooldown:     a.cfg.Cooldown,
	})
	if err != nil {
		return err
	}
	s.WithLogger(a.logger)

	// Sentry hub for fatal errors
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
	})
	defer hub.Flush(2 * time.Second)

	if err := s.Start(ctx); err != nil {
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Category: "scheduler",
			Message:  "Error starting the key statistics scheduler",
			Level:    sentry.LevelFatal,
		}, nil)
		hub.CaptureException(err)
		return err
	}
	a.logger.Info("Started keystat successfully", "env", *a.cfg.env)

	<-ctx.Done()
	a.logger.Info("Shutting down keystat")
	return s.Stop()
}

// Close releases the archive connection.
func (a *App) Close() error {
	if a.archivist == nil {
		return nil
	}
	return a.archivist.Close()
}
