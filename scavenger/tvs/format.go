package tvs

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	billion = decimal.NewFromInt(1_000_000_000)
	million = decimal.NewFromInt(1_000_000)

	// shorthandRe matches currency shorthand like "$8.67b", "$ 850 M" or "$1,234.5m".
	shorthandRe = regexp.MustCompile(`(?i)\$\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*([bm])\b`)

	printer = message.NewPrinter(language.English)
)

// FormatValue renders a raw USD value for display:
// billions as "$8.67B", millions as "$850M" and anything smaller as "$12,345".
func FormatValue(value float64) string {
	d := decimal.NewFromFloat(value)

	switch {
	case value >= 1_000_000_000:
		return "$" + d.Div(billion).StringFixed(2) + "B"
	case value >= 1_000_000:
		return "$" + d.Div(million).Round(0).String() + "M"
	default:
		return "$" + printer.Sprintf("%d", d.Round(0).IntPart())
	}
}

// Shorthand renders the value the way the RedStone site does, always in billions: "$8.67b".
func Shorthand(value float64) string {
	return "$" + decimal.NewFromFloat(value).Div(billion).StringFixed(2) + "b"
}

// ParseShorthand parses the first currency shorthand found in s ("$8.67b", "$850M") into raw USD.
func ParseShorthand(s string) (float64, error) {
	m := shorthandRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("no currency shorthand in %q", s)
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", m[1], err)
	}

	switch strings.ToLower(m[2]) {
	case "b":
		d = d.Mul(billion)
	case "m":
		d = d.Mul(million)
	}

	v, _ := d.Float64()
	return v, nil
}

// findShorthand returns the first shorthand substring of s, or "".
func findShorthand(s string) string {
	return shorthandRe.FindString(s)
}

// isFinite reports whether v is neither NaN nor ±Inf.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
