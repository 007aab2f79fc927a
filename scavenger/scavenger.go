package scavenger

import (
	"fmt"

	"github.com/samgozman/tvs-bot/scavenger/tvs"
)

// Source selects which strategy the Scavenger uses to obtain TVS.
type Source = string

const (
	SourceAPI  Source = "api"  // numeric endpoint only
	SourcePage Source = "page" // HTML scraping only
	SourceAuto Source = "auto" // numeric endpoint, falling back to HTML scraping
)

// Scavenger holds the fetchers for custom data that is not news. For now this is only the TVS metric.
type Scavenger struct {
	TVS tvs.Fetcher
}

// New builds a Scavenger whose TVS fetcher follows the given source.
// All fetchers of one Scavenger share a single rate limiter.
func New(source Source, apiURL, pageURL string) (*Scavenger, error) {
	limiter := tvs.NewLimiter()
	api := tvs.NewAPIFetcher(apiURL).WithLimiter(limiter)
	page := tvs.NewPageFetcher(pageURL).WithLimiter(limiter)

	var f tvs.Fetcher
	switch source {
	case SourceAPI, "":
		f = api
	case SourcePage:
		f = page
	case SourceAuto:
		f = tvs.NewFallbackFetcher(api, page)
	default:
		return nil, fmt.Errorf("unknown tvs source: %q", source)
	}

	return &Scavenger{TVS: f}, nil
}
