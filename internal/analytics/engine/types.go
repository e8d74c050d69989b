package engine

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
)

var ErrInvalidGroupBy = errors.New("invalid_group_by")

type GroupBy string

const (
	GroupByNone          GroupBy = ""
	GroupByCourse        GroupBy = "course"
	GroupByPaymentMethod GroupBy = "payment_method"
	GroupByCurrencyHint  GroupBy = "currency_hint"
)

func ParseGroupBy(value string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(value))); g {
	case GroupByNone, GroupByCourse, GroupByPaymentMethod, GroupByCurrencyHint:
		return g, nil
	default:
		return "", ErrInvalidGroupBy
	}
}

// Point is one bucket of a money series.
type Point struct {
	Label string          `json:"label"`
	Start time.Time       `json:"start"`
	End   time.Time       `json:"end"`
	Value decimal.Decimal `json:"value"`
}

// CountPoint is one bucket of a count series.
type CountPoint struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Value int       `json:"value"`
}

// AggregationResult is the fold of one request's transactions. Total always
// equals the sum of Series.
type AggregationResult struct {
	Total      decimal.Decimal
	Series     []Point
	Breakdown  *Breakdown
	Count      int
	Skipped    int
	OutOfRange int
	Normalized int
}

type CountResult struct {
	Total      int
	Series     []CountPoint
	Skipped    int
	OutOfRange int
}

func emptySeries(buckets []timewindow.Bucket) []Point {
	series := make([]Point, len(buckets))
	for i, b := range buckets {
		series[i] = Point{Label: b.Label, Start: b.Start, End: b.End, Value: decimal.Zero}
	}
	return series
}

func sumSeries(series []Point) decimal.Decimal {
	total := decimal.Zero
	for _, p := range series {
		total = total.Add(p.Value)
	}
	return total
}

// SeriesValues extracts the bucket values in order.
func SeriesValues(series []Point) []decimal.Decimal {
	out := make([]decimal.Decimal, len(series))
	for i, p := range series {
		out[i] = p.Value
	}
	return out
}

// percent returns round(100*part/whole), or 0 when whole is 0.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(part) * 100).
		Div(decimal.NewFromInt(int64(whole))).
		Round(0).
		IntPart())
}
