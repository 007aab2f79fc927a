// Package tvs fetches RedStone's Total Value Secured metric.
//
// Two strategies are available: APIFetcher reads the plain numeric endpoint and PageFetcher
// scrapes the currency shorthand out of an HTML page. FallbackFetcher chains them.
package tvs

import (
	"context"
	"time"
)

const (
	DefaultAPIURL  = "https://client-tvs.a.redstone.finance/tvs-sum"
	DefaultPageURL = "https://www.redstone.finance/"
)

// Fetcher obtains a fresh TVS Snapshot from some remote source.
type Fetcher interface {
	// Fetch returns a new Snapshot or a *FetchError.
	Fetch(ctx context.Context) (Snapshot, error)
	// Name identifies the strategy in logs and metrics (e.g. "api", "page").
	Name() string
}

// Snapshot is a single successfully fetched TVS value. It is never modified after creation.
type Snapshot struct {
	Value      float64   // Value in raw USD
	Formatted  string    // Formatted is the display string, e.g. "$8.67B"
	SourceText string    // SourceText is the value as extracted from the source, e.g. "$8.67b"
	Source     string    // Source is the name of the Fetcher that produced the snapshot
	FetchedAt  time.Time // FetchedAt is the time the snapshot was created (UTC)
}

// NewSnapshot builds a Snapshot for the given raw value.
func NewSnapshot(value float64, sourceText, source string) Snapshot {
	return Snapshot{
		Value:      value,
		Formatted:  FormatValue(value),
		SourceText: sourceText,
		Source:     source,
		FetchedAt:  time.Now().UTC(),
	}
}
