package unidash

import (
	"strconv"
	"strings"
	"unicode"
)

// Bucket is the traffic-light classification of a usage percentage.
type Bucket string

const (
	BucketGreen  Bucket = "green"
	BucketYellow Bucket = "yellow"
	BucketLow    Bucket = "low"
)

// Thresholds: 85 and up is green, 70-84 yellow, everything below low.
const (
	greenFloor  = 85
	yellowFloor = 70
)

// Table bar and pill-text colors per bucket.
const (
	barGreen  = "#166534"
	barYellow = "#92400e"
	barRed    = "#b91c1c"
)

// Chart palette; red is shared with the table bars.
const (
	chartGreen  = "#36b37e"
	chartYellow = "#f5a623"
)

// ParsePercent extracts the integer value from a literal percentage
// cell such as "92%". Any "%" characters are stripped before parsing.
func ParsePercent(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(s, "%", "")))
}

// PercentOrZero is ParsePercent with parse failures mapped to 0.
func PercentOrZero(s string) int {
	v, err := ParsePercent(s)
	if err != nil {
		return 0
	}
	return v
}

// BucketOf classifies a percentage cell. Values that do not parse are
// treated as the lowest bucket.
func BucketOf(pct string) Bucket {
	v, err := ParsePercent(pct)
	if err != nil {
		return BucketLow
	}
	switch {
	case v >= greenFloor:
		return BucketGreen
	case v >= yellowFloor:
		return BucketYellow
	default:
		return BucketLow
	}
}

// PillClass is the CSS class for the usage pill, same values as the
// bucket names.
func PillClass(pct string) string {
	return string(BucketOf(pct))
}

// BarColor is the table progress-bar fill color for a percentage cell.
func BarColor(pct string) string {
	switch BucketOf(pct) {
	case BucketGreen:
		return barGreen
	case BucketYellow:
		return barYellow
	default:
		return barRed
	}
}

// ChartColor is the bar-chart color for a percentage cell.
func ChartColor(pct string) string {
	switch BucketOf(pct) {
	case BucketGreen:
		return chartGreen
	case BucketYellow:
		return chartYellow
	default:
		return barRed
	}
}

// BarWidth returns the literal cell value with "%" stripped, used as a
// CSS width. Unparsable cells pass through and render as width zero.
func BarWidth(pct string) string {
	return strings.TrimSpace(strings.ReplaceAll(pct, "%", ""))
}

// countOrZero parses a headcount cell, returning 0 unless it is all
// digits.
func countOrZero(s string) int {
	if s == "" {
		return 0
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
