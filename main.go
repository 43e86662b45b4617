package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		report(os.Stderr, err)
		os.Exit(1)
	}
}

// loggedError is an error that run already wrote to the log.
type loggedError struct {
	err error
}

func (e *loggedError) Error() string {
	return e.err.Error()
}

func (e *loggedError) Unwrap() error {
	return e.err
}

// report prints command line errors. Errors of a run were logged already and are skipped.
func report(w io.Writer, err error) {
	var logged *loggedError
	if errors.As(err, &logged) {
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\nRun 'keystat --help' for usage.\n", err)
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "keystat",
		Short:         "Post Bank of Korea key statistics to X",
		Long:          "keystat fetches the Bank of Korea ECOS key statistics, keeps the configured indicators and posts them to X.\nWithout flags it performs exactly one cycle.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := run(cmd.Context(), v); err != nil {
				return &loggedError{err: err}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Bool("schedule", false, "run cycles at SCHEDULE_TIMES until interrupted")
	flags.String("mode", "indicators", "post mode: indicators|announcement")
	flags.Bool("dry-run", false, "print the post instead of publishing it")
	flags.Bool("skip-duplicates", false, "skip a post equal to the latest archived one (needs POSTGRES_DSN)")

	for key, flag := range map[string]string{
		"SCHEDULE":        "schedule",
		"POST_MODE":       "mode",
		"DRY_RUN":         "dry-run",
		"SKIP_DUPLICATES": "skip-duplicates",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(v)
	if err != nil {
		logger.Error("[LoadConfig]", "error", err)
		return err
	}

	if cfg.env.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.env.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			logger.Error("[sentry.Init]", "error", err)
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Error("[NewApp]", "error", err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("[App.Close]", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule {
		if err := app.RunScheduled(ctx); err != nil {
			logger.Error("[App.RunScheduled]", "error", err)
			return err
		}
		return nil
	}
	// Cycle failures are logged by the job.
	return app.RunOnce(ctx)
}
