package timewindow

import (
	"fmt"
	"strconv"
	"time"
)

// customDailyLimit is the longest custom span still bucketed per day.
const customDailyLimit = 62 * 24 * time.Hour

// Resolver turns a period selection into concrete buckets in one location.
type Resolver struct {
	loc   *time.Location
	floor time.Time
}

func NewResolver(loc *time.Location, floor time.Time) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if floor.IsZero() {
		floor = time.Date(2020, time.January, 1, 0, 0, 0, 0, loc)
	}
	floor = floor.In(loc)
	return &Resolver{loc: loc, floor: startOfDay(floor)}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve computes the window and buckets for period relative to now. rng is
// only read for the custom period.
func (r *Resolver) Resolve(period Period, now time.Time, rng *Range) (Resolution, error) {
	now = now.In(r.loc)

	switch period {
	case PeriodDay:
		return r.day(startOfDay(now)), nil
	case PeriodWeek:
		return r.week(startOfDay(now).AddDate(0, 0, -6)), nil
	case PeriodMonth:
		return r.month(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)), nil
	case PeriodYear:
		return r.year(now.Year()), nil
	case PeriodAll:
		return r.all(now), nil
	case PeriodCustom:
		if rng == nil {
			return Resolution{}, fmt.Errorf("%w: custom period requires from and to", ErrInvalidRange)
		}
		return r.custom(rng.From, rng.To)
	default:
		return Resolution{}, ErrInvalidPeriod
	}
}

// Previous returns the equally shaped resolution immediately before res.
func (r *Resolver) Previous(res Resolution) (Resolution, error) {
	start := res.Window.Start.In(r.loc)

	switch res.Period {
	case PeriodDay:
		return r.day(start.AddDate(0, 0, -1)), nil
	case PeriodWeek:
		return r.week(start.AddDate(0, 0, -7)), nil
	case PeriodMonth:
		return r.month(start.AddDate(0, -1, 0)), nil
	case PeriodYear:
		return r.year(start.Year() - 1), nil
	case PeriodCustom:
		span := res.Window.End.Sub(res.Window.Start)
		return r.custom(res.Window.Start.Add(-span), res.Window.Start)
	case PeriodAll:
		return Resolution{}, ErrNoPreviousPeriod
	default:
		return Resolution{}, ErrInvalidPeriod
	}
}

func (r *Resolver) day(midnight time.Time) Resolution {
	buckets := make([]Bucket, 0, 8)
	for h := 0; h < 24; h += 3 {
		start := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, 0, 0, 0, r.loc)
		end := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h+3, 0, 0, 0, r.loc)
		buckets = append(buckets, Bucket{Label: fmt.Sprintf("%02d:00", h), Start: start, End: end})
	}
	return r.resolution(PeriodDay, buckets)
}

func (r *Resolver) week(first time.Time) Resolution {
	buckets := make([]Bucket, 0, 7)
	for i := 0; i < 7; i++ {
		start := first.AddDate(0, 0, i)
		buckets = append(buckets, Bucket{Label: start.Format("Mon"), Start: start, End: start.AddDate(0, 0, 1)})
	}
	return r.resolution(PeriodWeek, buckets)
}

func (r *Resolver) month(first time.Time) Resolution {
	next := first.AddDate(0, 1, 0)
	buckets := make([]Bucket, 0, 4)
	for i, day := range []int{1, 8, 15, 22} {
		start := time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, r.loc)
		end := next
		if i < 3 {
			end = start.AddDate(0, 0, 7)
		}
		buckets = append(buckets, Bucket{Label: "Week " + strconv.Itoa(i+1), Start: start, End: end})
	}
	return r.resolution(PeriodMonth, buckets)
}

func (r *Resolver) year(year int) Resolution {
	buckets := make([]Bucket, 0, 12)
	for m := time.January; m <= time.December; m++ {
		start := time.Date(year, m, 1, 0, 0, 0, 0, r.loc)
		buckets = append(buckets, Bucket{Label: start.Format("Jan"), Start: start, End: start.AddDate(0, 1, 0)})
	}
	return r.resolution(PeriodYear, buckets)
}

func (r *Resolver) all(now time.Time) Resolution {
	floor := r.floor
	if now.Before(floor) {
		floor = startOfDay(now)
	}
	var buckets []Bucket
	for y := floor.Year(); y <= now.Year(); y++ {
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, r.loc)
		if start.Before(floor) {
			start = floor
		}
		end := time.Date(y+1, time.January, 1, 0, 0, 0, 0, r.loc)
		buckets = append(buckets, Bucket{Label: strconv.Itoa(y), Start: start, End: end})
	}
	return Resolution{
		Period:  PeriodAll,
		Window:  Window{Start: floor, End: now, Unbounded: true},
		Buckets: buckets,
	}
}

func (r *Resolver) custom(from, to time.Time) (Resolution, error) {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return Resolution{}, ErrInvalidRange
	}
	from, to = from.In(r.loc), to.In(r.loc)

	daily := to.Sub(from) <= customDailyLimit
	var buckets []Bucket
	for start := from; start.Before(to); {
		var end time.Time
		var label string
		if daily {
			end = startOfDay(start).AddDate(0, 0, 1)
			label = start.Format("2006-01-02")
		} else {
			end = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, r.loc).AddDate(0, 1, 0)
			label = start.Format("2006-01")
		}
		if end.After(to) {
			end = to
		}
		buckets = append(buckets, Bucket{Label: label, Start: start, End: end})
		start = end
	}
	return Resolution{
		Period:  PeriodCustom,
		Window:  Window{Start: from, End: to},
		Buckets: buckets,
	}, nil
}

func (r *Resolver) resolution(period Period, buckets []Bucket) Resolution {
	return Resolution{
		Period:  period,
		Window:  Window{Start: buckets[0].Start, End: buckets[len(buckets)-1].End},
		Buckets: buckets,
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
