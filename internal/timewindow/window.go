package timewindow

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrInvalidRange     = errors.New("invalid_range")
	ErrNoPreviousPeriod = errors.New("no_previous_period")
)

type Period string

const (
	PeriodDay    Period = "day"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodYear   Period = "year"
	PeriodAll    Period = "all"
	PeriodCustom Period = "custom"
)

// ParsePeriod accepts a period name in any case.
func ParsePeriod(value string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(value))); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll, PeriodCustom:
		return p, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Window is the half-open interval [Start, End) records are fetched for.
// Unbounded windows carry no filter at the store.
type Window struct {
	Start     time.Time
	End       time.Time
	Unbounded bool
}

func (w Window) Contains(t time.Time) bool {
	if w.Unbounded {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// Bucket is one half-open sub-interval of a window.
type Bucket struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// Range is a caller-supplied interval for the custom period.
type Range struct {
	From time.Time
	To   time.Time
}

// Resolution is a resolved period: the fetch window plus contiguous, ordered buckets.
type Resolution struct {
	Period  Period
	Window  Window
	Buckets []Bucket
}

// FetchWindow returns nil when the store should apply no time filter.
func (r Resolution) FetchWindow() *Window {
	if r.Window.Unbounded {
		return nil
	}
	w := r.Window
	return &w
}

// Locate returns the index of the bucket containing t, or -1.
func Locate(buckets []Bucket, t time.Time) int {
	idx := sort.Search(len(buckets), func(i int) bool {
		return buckets[i].End.After(t)
	})
	if idx < len(buckets) && buckets[idx].Contains(t) {
		return idx
	}
	return -1
}
