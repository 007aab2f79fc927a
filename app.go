package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/samgozman/tvs-bot/jobs"
	"github.com/samgozman/tvs-bot/metrics"
	"github.com/samgozman/tvs-bot/publisher"
	"github.com/samgozman/tvs-bot/scavenger"
)

type App struct {
	env       *Env
	scavenger *scavenger.Scavenger
	publisher *publisher.DiscordPublisher
	job       *jobs.PresenceJob
	scheduler *jobs.Scheduler
	metrics   *metrics.Collector
	server    *metrics.Server // nil if METRICS_ADDR is empty
	logger    *slog.Logger

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

// NewApp wires all the components. Credential problems are returned as *ConfigError.
func NewApp(env *Env) (*App, error) {
	tokens, err := env.tokenSource()
	if err != nil {
		return nil, err
	}

	scav, err := scavenger.New(scavenger.Source(env.TVSSource), env.TVSAPIURL, env.TVSPageURL)
	if err != nil {
		return nil, newConfigError(err)
	}

	scheduler, err := jobs.NewScheduler()
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	pub := publisher.NewDiscordPublisher(tokens, env.PresenceTemplate)
	job := jobs.NewPresenceJob(scav.TVS, pub).
		WithMetrics(collector).
		Timeout(env.CycleTimeout)

	a := &App{
		env:       env,
		scavenger: scav,
		publisher: pub,
		job:       job,
		scheduler: scheduler,
		metrics:   collector,
		logger:    slog.Default(),
	}
	if env.MetricsAddr != "" {
		a.server = metrics.NewServer(env.MetricsAddr, collector, job.Status)
	}
	return a, nil
}

// start runs the first update right away and schedules the next ones.
func (a *App) start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.scheduler.Every("tvs-presence", a.env.UpdateInterval, a.job.Run()); err != nil {
		// Sentry hub for fatal errors
		hub := sentry.CurrentHub().Clone()
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Category: "scheduler",
			Message:  "Error scheduling job for TVS presence",
			Level:    sentry.LevelFatal,
		}, nil)
		hub.CaptureException(err)
		hub.Flush(2 * time.Second)
		return err
	}
	a.scheduler.Start()
	a.started = true

	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				a.logger.Error("[app][start] metrics server stopped", "error", err)
			}
		}()
	}

	a.logger.Info("Started tvs-bot successfully",
		"source", a.scavenger.TVS.Name(),
		"interval", a.env.UpdateInterval.String())
	return nil
}

// stop stops the timer, waits for a running update and disconnects from Discord. Safe to call more than once.
func (a *App) stop() {
	a.stopOnce.Do(func() {
		a.logger.Info("Stopping tvs-bot...")
		a.job.Stop()

		a.mu.Lock()
		started := a.started
		a.mu.Unlock()
		if started {
			if err := a.scheduler.Stop(); err != nil {
				a.logger.Error("[app][stop] error stopping scheduler", "error", err)
			}
		}

		if a.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.server.Shutdown(ctx); err != nil {
				a.logger.Error("[app][stop] error stopping metrics server", "error", err)
			}
			cancel()
		}

		if err := a.publisher.Disconnect(); err != nil {
			a.logger.Error("[app][stop] error disconnecting from discord", "error", err)
		}
		a.logger.Info("Stopped tvs-bot successfully")
	})
}
