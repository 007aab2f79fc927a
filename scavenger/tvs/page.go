package tvs

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// labelDepth is how many ancestors of a candidate are searched for the TVS label.
const labelDepth = 3

var (
	labelRe = regexp.MustCompile(`(?i)total\s+value\s+secured|\btvs\b`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// PageFetcher scrapes the TVS shorthand ("$8.67b") from an HTML page.
//
// The page is markup owned by a third party, so the heuristic may break on redesigns:
// it picks the innermost elements whose text holds a currency shorthand and prefers
// the one closest to a "Total Value Secured" or "TVS" label.
type PageFetcher struct {
	url     string
	client  *resty.Client
	limiter *rate.Limiter
}

// NewPageFetcher creates a PageFetcher for the given page (DefaultPageURL if empty).
func NewPageFetcher(url string) *PageFetcher {
	if url == "" {
		url = DefaultPageURL
	}
	return &PageFetcher{
		url:    url,
		client: newHTTPClient("text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"),
	}
}

// WithLimiter makes the fetcher wait on the given limiter before each request.
func (f *PageFetcher) WithLimiter(l *rate.Limiter) *PageFetcher {
	f.limiter = l
	return f
}

func (f *PageFetcher) Name() string {
	return "page"
}

// Fetch downloads the page and extracts the TVS value from it.
func (f *PageFetcher) Fetch(ctx context.Context) (Snapshot, error) {
	body, err := get(ctx, f.Name(), f.client, f.limiter, f.url)
	if err != nil {
		return Snapshot{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Snapshot{}, newParseError(f.Name(), "", err)
	}

	text, ok := extractShorthand(doc)
	if !ok {
		return Snapshot{}, newNotFoundError(f.Name())
	}

	value, err := ParseShorthand(text)
	if err != nil {
		return Snapshot{}, newParseError(f.Name(), text, err)
	}

	return NewSnapshot(value, text, f.Name()), nil
}

// candidate is an element holding a currency shorthand.
type candidate struct {
	text     string // matched shorthand
	distance int    // levels up to the nearest label, -1 if none within labelDepth
}

// extractShorthand returns the best currency shorthand found in the document.
func extractShorthand(doc *goquery.Document) (string, bool) {
	doc.Find("script, style, noscript, template").Remove()

	var candidates []candidate
	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		text := findShorthand(normalizeText(sel.Text()))
		if text == "" {
			return
		}
		// Only the innermost element holding the match is a candidate.
		deeper := false
		sel.Children().EachWithBreak(func(_ int, child *goquery.Selection) bool {
			deeper = findShorthand(normalizeText(child.Text())) != ""
			return !deeper
		})
		if deeper {
			return
		}
		candidates = append(candidates, candidate{text: text, distance: labelDistance(sel)})
	})

	if len(candidates) == 0 {
		return "", false
	}

	labeled := lo.Filter(candidates, func(c candidate, _ int) bool {
		return c.distance >= 0
	})
	if len(labeled) == 0 {
		return candidates[0].text, true
	}

	best := lo.MinBy(labeled, func(a, b candidate) bool {
		return a.distance < b.distance
	})
	return best.text, true
}

// labelDistance returns how many levels up from sel the TVS label appears, or -1.
func labelDistance(sel *goquery.Selection) int {
	cur := sel
	for i := 0; i <= labelDepth && cur.Length() > 0; i++ {
		if goquery.NodeName(cur) == "body" {
			break
		}
		if labelRe.MatchString(normalizeText(cur.Text())) {
			return i
		}
		cur = cur.Parent()
	}
	return -1
}

func normalizeText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
