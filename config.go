package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samgozman/tvs-bot/pkg/errlvl"
	"github.com/samgozman/tvs-bot/publisher"
	"github.com/spf13/viper"
)

// Env is a structure that holds all the environment variables that are used in the app.
type Env struct {
	DiscordBotToken          string        `mapstructure:"DISCORD_BOT_TOKEN"`
	ReplitConnectorsHostname string        `mapstructure:"REPLIT_CONNECTORS_HOSTNAME"`
	ReplIdentity             string        `mapstructure:"REPL_IDENTITY"`
	WebReplRenewal           string        `mapstructure:"WEB_REPL_RENEWAL"`
	SentryDSN                string        `mapstructure:"SENTRY_DSN" validate:"omitempty,url"`
	TVSSource                string        `mapstructure:"TVS_SOURCE" default:"api" validate:"oneof=api page auto"`
	TVSAPIURL                string        `mapstructure:"TVS_API_URL" default:"https://client-tvs.a.redstone.finance/tvs-sum" validate:"url"`
	TVSPageURL               string        `mapstructure:"TVS_PAGE_URL" default:"https://www.redstone.finance/" validate:"url"`
	UpdateInterval           time.Duration `mapstructure:"UPDATE_INTERVAL" default:"15m" validate:"gte=1s"`
	CycleTimeout             time.Duration `mapstructure:"CYCLE_TIMEOUT" default:"60s" validate:"gte=1s"`
	PresenceTemplate         string        `mapstructure:"PRESENCE_TEMPLATE" default:"TVS: %s | RedStone Oracle" validate:"contains=%s"`
	MetricsAddr              string        `mapstructure:"METRICS_ADDR" validate:"omitempty,hostname_port"`
	LogLevel                 string        `mapstructure:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

var envKeys = []string{
	"DISCORD_BOT_TOKEN",
	"REPLIT_CONNECTORS_HOSTNAME",
	"REPL_IDENTITY",
	"WEB_REPL_RENEWAL",
	"SENTRY_DSN",
	"TVS_SOURCE",
	"TVS_API_URL",
	"TVS_PAGE_URL",
	"UPDATE_INTERVAL",
	"CYCLE_TIMEOUT",
	"PRESENCE_TEMPLATE",
	"METRICS_ADDR",
	"LOG_LEVEL",
}

var errNoCredential = errors.New("no bot credential: set DISCORD_BOT_TOKEN or REPLIT_CONNECTORS_HOSTNAME with REPL_IDENTITY/WEB_REPL_RENEWAL")

// ConfigError is returned when the app can't be configured. It is always fatal.
type ConfigError struct {
	err error
}

func (e *ConfigError) Error() string {
	return e.Unwrap().Error()
}

func (e *ConfigError) Unwrap() error {
	return errlvl.Wrap(fmt.Errorf("config: %w", e.err), errlvl.FATAL)
}

func newConfigError(err error) *ConfigError {
	return &ConfigError{err: err}
}

// LoadEnv reads the environment (and an optional .env file), applies defaults and validates the result.
func LoadEnv() (*Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("[config][LoadEnv] error loading .env file", "error", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, newConfigError(err)
		}
	}

	env := &Env{}
	if err := v.Unmarshal(env); err != nil {
		return nil, newConfigError(fmt.Errorf("failed to unmarshal env: %w", err))
	}
	if err := defaults.Set(env); err != nil {
		return nil, newConfigError(fmt.Errorf("failed to set defaults: %w", err))
	}
	if err := validator.New().Struct(env); err != nil {
		return nil, newConfigError(err)
	}

	if env.DiscordBotToken == "" && env.ReplitConnectorsHostname == "" {
		return nil, newConfigError(errNoCredential)
	}

	return env, nil
}

// tokenSource picks the bot credential source: the static token wins over the token broker.
func (e *Env) tokenSource() (publisher.TokenSource, error) {
	if e.DiscordBotToken != "" {
		return publisher.StaticToken(e.DiscordBotToken), nil
	}

	b, err := publisher.NewBrokerTokenSource(e.ReplitConnectorsHostname, e.ReplIdentity, e.WebReplRenewal)
	if err != nil {
		return nil, newConfigError(errors.Join(errNoCredential, err))
	}
	return b, nil
}

// logLevel maps LOG_LEVEL to a slog level.
func (e *Env) logLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
