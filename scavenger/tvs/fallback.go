package tvs

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/samgozman/tvs-bot/pkg/errlvl"
)

// FallbackFetcher tries its fetchers in order and returns the first successful Snapshot.
type FallbackFetcher struct {
	fetchers []Fetcher
	logger   *slog.Logger
}

// NewFallbackFetcher creates a FallbackFetcher. At least one fetcher is expected.
func NewFallbackFetcher(fetchers ...Fetcher) *FallbackFetcher {
	return &FallbackFetcher{
		fetchers: fetchers,
		logger:   slog.Default(),
	}
}

func (f *FallbackFetcher) Name() string {
	return strings.Join(lo.Map(f.fetchers, func(ft Fetcher, _ int) string {
		return ft.Name()
	}), "+")
}

// Fetch returns the first successful Snapshot. If every fetcher failed, the FetchError holds all their errors.
func (f *FallbackFetcher) Fetch(ctx context.Context) (Snapshot, error) {
	if len(f.fetchers) == 0 {
		return Snapshot{}, newNotFoundError(f.Name())
	}

	var errs []error
	for _, ft := range f.fetchers {
		s, err := ft.Fetch(ctx)
		if err == nil {
			return s, nil
		}
		f.logger.Warn("[tvs][fallback] fetcher failed", "fetcher", ft.Name(), "error", err)
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	return Snapshot{}, f.newError(errs)
}

// newError wraps the errors of all fetchers in one FetchError typed after the last failure.
func (f *FallbackFetcher) newError(errs []error) *FetchError {
	fe := &FetchError{Type: ErrorTypeNetwork, Source: f.Name(), level: errlvl.ERROR, errs: errs}

	var last *FetchError
	if errors.As(errs[len(errs)-1], &last) {
		fe.Type = last.Type
		fe.level = last.level
	}
	return fe
}
