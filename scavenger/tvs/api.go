package tvs

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// APIFetcher reads TVS from an endpoint that responds with a bare number, e.g. "8670000000.12".
type APIFetcher struct {
	url     string
	client  *resty.Client
	limiter *rate.Limiter
}

// NewAPIFetcher creates an APIFetcher for the given endpoint (DefaultAPIURL if empty).
func NewAPIFetcher(url string) *APIFetcher {
	if url == "" {
		url = DefaultAPIURL
	}
	return &APIFetcher{
		url:    url,
		client: newHTTPClient("application/json, text/plain, */*"),
	}
}

// WithLimiter makes the fetcher wait on the given limiter before each request.
func (f *APIFetcher) WithLimiter(l *rate.Limiter) *APIFetcher {
	f.limiter = l
	return f
}

func (f *APIFetcher) Name() string {
	return "api"
}

// Fetch requests the endpoint and parses its body as a float.
func (f *APIFetcher) Fetch(ctx context.Context) (Snapshot, error) {
	body, err := get(ctx, f.Name(), f.client, f.limiter, f.url)
	if err != nil {
		return Snapshot{}, err
	}

	text := strings.TrimSpace(body)
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Snapshot{}, newParseError(f.Name(), text, err)
	}
	if !isFinite(value) {
		return Snapshot{}, newParseError(f.Name(), text, nil)
	}

	return NewSnapshot(value, Shorthand(value), f.Name()), nil
}
