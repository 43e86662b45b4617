package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/keystat/keystat/composer"
	"github.com/keystat/keystat/jobs"
	"github.com/keystat/keystat/scavenger/ecos"
	"github.com/spf13/viper"
)

// Env is a structure that holds all the secrets that are used in the app.
type Env struct {
	ConsumerKey       string `mapstructure:"CONSUMER_KEY" validate:"required"`
	ConsumerSecret    string `mapstructure:"CONSUMER_SECRET" validate:"required"`
	AccessToken       string `mapstructure:"ACCESS_TOKEN" validate:"required"`
	AccessTokenSecret string `mapstructure:"ACCESS_TOKEN_SECRET" validate:"required"`
	EcosAPIKey        string `mapstructure:"BOK_ECOS_API_KEY" validate:"required"`
	TelegramBotToken  string `mapstructure:"TELEGRAM_BOT_TOKEN" validate:"required_with=TelegramChannelID"`
	TelegramChannelID string `mapstructure:"TELEGRAM_CHANNEL_ID" validate:"required_with=TelegramBotToken"`
	PostgresDSN       string `mapstructure:"POSTGRES_DSN"`
	SentryDSN         string `mapstructure:"SENTRY_DSN"`
}

// LogValue never prints the secrets, only which optional integrations are configured.
func (e Env) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("telegram", e.TelegramBotToken != ""),
		slog.Bool("postgres", e.PostgresDSN != ""),
		slog.Bool("sentry", e.SentryDSN != ""),
	)
}

// Config holds the settings of the app. Every field can be set from the environment.
type Config struct {
	env *Env // Holds all the secrets that are used in the app

	Mode             string        `mapstructure:"POST_MODE" validate:"oneof=indicators announcement"`
	Schedule         bool          `mapstructure:"SCHEDULE"`
	DryRun           bool          `mapstructure:"DRY_RUN"`
	SkipDuplicates   bool          `mapstructure:"SKIP_DUPLICATES"`
	ScheduleTimes    []string      `mapstructure:"SCHEDULE_TIMES" validate:"min=1"`
	ScheduleTimezone string        `mapstructure:"SCHEDULE_TIMEZONE" validate:"required"`
	PostTimezone     string        `mapstructure:"POST_TIMEZONE" validate:"required"`
	PollInterval     time.Duration `mapstructure:"POLL_INTERVAL" validate:"gt=0"`
	Cooldown         time.Duration `mapstructure:"COOLDOWN" validate:"gte=0"`
	CycleTimeout     time.Duration `mapstructure:"CYCLE_TIMEOUT" validate:"gt=0"`
	HTTPTimeout      time.Duration `mapstructure:"HTTP_TIMEOUT" validate:"gt=0"`
	EcosBaseURL      string        `mapstructure:"BOK_ECOS_BASE_URL" validate:"url"`
}

// DefaultConfig creates a new Config object with default values.
func DefaultConfig() *Config {
	return &Config{
		env:              &Env{},
		Mode:             string(composer.ModeIndicators),
		ScheduleTimes:    jobs.DefaultTriggerTimes,
		ScheduleTimezone: "UTC",
		PostTimezone:     "Asia/Seoul",
		PollInterval:     jobs.DefaultPollInterval,
		Cooldown:         jobs.DefaultCooldown,
		CycleTimeout:     jobs.DefaultCycleTimeout,
		HTTPTimeout:      ecos.DefaultTimeout,
		EcosBaseURL:      ecos.BaseURL,
	}
}

// MissingEnvError is returned when a required variable is not set.
type MissingEnvError struct {
	Name string // name of the first missing variable
	With string // set when Name is only required together with another variable
}

func (e *MissingEnvError) Error() string {
	if e.With != "" {
		return fmt.Sprintf("environment variable %s is required when %s is set", e.Name, e.With)
	}
	return fmt.Sprintf("environment variable %s is required", e.Name)
}

// InvalidEnvError is returned when a variable is set to an unusable value.
type InvalidEnvError struct {
	Name string
	Rule string
}

func (e *InvalidEnvError) Error() string {
	return fmt.Sprintf("environment variable %s is invalid: %s", e.Name, e.Rule)
}

// LoadConfig reads .env (if present) and the environment through v and validates the result.
// Flags bound to v take precedence over the environment.
func LoadConfig(v *viper.Viper, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("[godotenv.Load]: %w", err)
	}

	defaults := DefaultConfig()
	for key, value := range defaultValues(defaults) {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	if err := bindEnv(v, &Env{}, defaults); err != nil {
		return nil, err
	}

	env := &Env{}
	if err := v.Unmarshal(env); err != nil {
		return nil, fmt.Errorf("[viper.Unmarshal] env: %w", err)
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("[viper.Unmarshal] config: %w", err)
	}
	cfg.env = env

	validate := newValidator()
	if err := validate.Struct(env); err != nil {
		return nil, envError(env, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, envError(cfg, err)
	}

	return cfg, nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("mapstructure")
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// envError converts validation errors of s into MissingEnvError or InvalidEnvError for the first failing field.
func envError(s any, err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("[validator.Struct]: %w", err)
	}

	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return &MissingEnvError{Name: fe.Field()}
	case "required_with":
		return &MissingEnvError{Name: fe.Field(), With: tagOf(s, fe.Param())}
	default:
		return &InvalidEnvError{Name: fe.Field(), Rule: strings.TrimSuffix(fe.Tag()+"="+fe.Param(), "=")}
	}
}

// tagOf returns the mapstructure tag of the struct field name in s.
func tagOf(s any, name string) string {
	t := reflect.Indirect(reflect.ValueOf(s)).Type()
	if f, ok := t.FieldByName(name); ok {
		return f.Tag.Get("mapstructure")
	}
	return name
}

// bindEnv registers every mapstructure key of the structs, so Unmarshal sees variables that have no default.
func bindEnv(v *viper.Viper, structs ...any) error {
	for _, s := range structs {
		t := reflect.Indirect(reflect.ValueOf(s)).Type()
		for i := 0; i < t.NumField(); i++ {
			key := t.Field(i).Tag.Get("mapstructure")
			if key == "" || key == "-" {
				continue
			}
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("[viper.BindEnv] %s: %w", key, err)
			}
		}
	}
	return nil
}

func defaultValues(c *Config) map[string]any {
	return map[string]any{
		"POST_MODE":         c.Mode,
		"SCHEDULE_TIMES":    c.ScheduleTimes,
		"SCHEDULE_TIMEZONE": c.ScheduleTimezone,
		"POST_TIMEZONE":     c.PostTimezone,
		"POLL_INTERVAL":     c.PollInterval,
		"COOLDOWN":          c.Cooldown,
		"CYCLE_TIMEOUT":     c.CycleTimeout,
		"HTTP_TIMEOUT":      c.HTTPTimeout,
		"BOK_ECOS_BASE_URL": c.EcosBaseURL,
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
