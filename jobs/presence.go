package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/samgozman/tvs-bot/internal/utils"
	"github.com/samgozman/tvs-bot/metrics"
	"github.com/samgozman/tvs-bot/scavenger/tvs"
)

const (
	// StalePrefix marks a presence that shows the cached value instead of a fresh one.
	StalePrefix = "~"
	// UnavailableText is published when fetching fails and nothing was fetched before.
	UnavailableText = "⚠️ Data Unavailable"

	defaultCycleTimeout = 60 * time.Second
)

// presencePublisher sets the bot presence text.
type presencePublisher interface {
	Publish(ctx context.Context, text string) error
}

// PresenceJob fetches TVS and publishes it as the bot presence.
// It keeps the last successful snapshot and shows it with StalePrefix when a fetch fails.
type PresenceJob struct {
	fetcher   tvs.Fetcher         // fetcher that will get fresh TVS
	publisher presencePublisher   // publisher that will set the presence
	metrics   *metrics.Collector  // optional
	logger    *slog.Logger        // special logger for the job
	options   *presenceJobOptions // job options

	state atomic.Int32

	mu    sync.RWMutex
	last  *tvs.Snapshot // last successful snapshot, nil until the first success
	text  string        // last published (or attempted) text
	stale bool          // whether the last cycle failed to fetch
}

type presenceJobOptions struct {
	timeout time.Duration // timeout for each of the fetch and publish steps
}

// NewPresenceJob creates a new PresenceJob instance.
func NewPresenceJob(fetcher tvs.Fetcher, publisher presencePublisher) *PresenceJob {
	return &PresenceJob{
		fetcher:   fetcher,
		publisher: publisher,
		logger:    slog.Default(),
		options:   &presenceJobOptions{timeout: defaultCycleTimeout},
	}
}

// WithMetrics sets the collector that will record fetches and publishes.
func (j *PresenceJob) WithMetrics(m *metrics.Collector) *PresenceJob {
	j.metrics = m
	return j
}

// Timeout sets the timeout of the fetch step and, separately, of the publish step. Non-positive values are ignored.
func (j *PresenceJob) Timeout(d time.Duration) *PresenceJob {
	if d > 0 {
		j.options.timeout = d
	}
	return j
}

// Run returns the job function that will be executed by the scheduler.
func (j *PresenceJob) Run() JobFunc {
	return func() {
		j.RunOnce(context.Background())
	}
}

// RunOnce performs one fetch + publish cycle and returns the text it tried to publish.
// It never panics on fetch or publish failures; they are logged and captured.
// A stopped job does nothing and returns "".
func (j *PresenceJob) RunOnce(ctx context.Context) string {
	if j.State() == StateStopped {
		return ""
	}

	cycleID := uuid.NewString()
	logger := j.logger.With("cycle_id", cycleID)

	tx := sentry.StartTransaction(ctx, "PresenceJob.Run")
	tx.Op = "job-presence"

	// Sentry performance monitoring
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
		ctx = sentry.SetHubOnContext(ctx, hub)
	}
	hub.Scope().SetTag("cycle_id", cycleID)

	defer func() {
		tx.Finish()
		hub.Flush(2 * time.Second)
	}()

	j.setState(StateFetching)
	span := tx.StartChild("Fetcher.Fetch")
	fetchCtx, cancelFetch := context.WithTimeout(ctx, j.options.timeout)
	snap, err := j.fetcher.Fetch(fetchCtx)
	cancelFetch()
	span.Finish()
	j.metrics.ObserveFetch(j.fetcher.Name(), err)

	var text string
	fetched := err == nil
	if !fetched {
		logger.Error("[job-presence][Fetch] failed to update TVS", "fetcher", j.fetcher.Name(), "error", err)
		utils.CaptureSentryException("jobPresenceFetchError", hub, err)
		var cached bool
		text, cached = j.fallbackText()
		if cached {
			j.metrics.ObserveStale()
			logger.Info("[job-presence][Fetch] using cached value", "text", text)
		}
	} else {
		j.store(snap)
		j.metrics.SetSnapshot(snap)
		text = snap.Formatted
		logger.Info("[job-presence][Fetch] TVS updated", "value", snap.Formatted, "raw", snap.SourceText, "source", snap.Source)
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Category: "successful",
			Message:  "TVS fetched: " + snap.Formatted,
			Level:    sentry.LevelInfo,
		}, nil)
	}

	j.setState(StatePublishing)
	// publish has its own budget, the fetch may have used up all of its own
	span = tx.StartChild("Publisher.Publish")
	publishCtx, cancelPublish := context.WithTimeout(ctx, j.options.timeout)
	err = j.publisher.Publish(publishCtx, text)
	cancelPublish()
	span.Finish()
	j.metrics.ObservePublish(err)
	if err != nil {
		logger.Error("[job-presence][Publish] failed to update presence", "text", text, "error", err)
		utils.CaptureSentryException("jobPresencePublishError", hub, err)
	}

	j.mu.Lock()
	j.text = text
	j.stale = !fetched
	j.mu.Unlock()

	j.setState(StateIdle)
	return text
}

// Stop moves the job to its terminal state. Cycles that already started run to completion.
func (j *PresenceJob) Stop() {
	j.state.Store(int32(StateStopped))
}

// State returns the current state of the job.
func (j *PresenceJob) State() State {
	return State(j.state.Load())
}

// LastSnapshot returns the last successful snapshot, if any.
func (j *PresenceJob) LastSnapshot() (tvs.Snapshot, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.last == nil {
		return tvs.Snapshot{}, false
	}
	return *j.last, true
}

// Status reports the job state for the health endpoint.
func (j *PresenceJob) Status() metrics.Status {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := metrics.Status{
		Status:   "ok",
		State:    j.State().String(),
		Presence: j.text,
		Stale:    j.stale,
	}
	if j.last != nil {
		s.LastValue = j.last.Formatted
		fetchedAt := j.last.FetchedAt
		s.LastFetchedAt = &fetchedAt
	}
	if j.State() == StateStopped {
		s.Status = "stopped"
	} else if j.stale {
		s.Status = "degraded"
	}
	return s
}

// fallbackText returns the stale-marked cached value, or UnavailableText if nothing was cached.
func (j *PresenceJob) fallbackText() (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.last == nil {
		return UnavailableText, false
	}
	return StalePrefix + j.last.Formatted, true
}

func (j *PresenceJob) store(s tvs.Snapshot) {
	j.mu.Lock()
	j.last = &s
	j.mu.Unlock()
}

// setState changes the state unless the job was stopped.
func (j *PresenceJob) setState(s State) {
	for {
		cur := j.state.Load()
		if State(cur) == StateStopped {
			return
		}
		if j.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}
