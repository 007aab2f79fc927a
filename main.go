package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
)

func main() {
	env, err := LoadEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: env.logLevel()}))
	slog.SetDefault(logger)

	if env.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:              env.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			logger.Error("Failed to init sentry", "error", err)
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	app, err := NewApp(env)
	if err != nil {
		logger.Error("Failed to create app", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.start(); err != nil {
		logger.Error("Failed to start app", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	app.stop()
}
