package timewindow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(res Resolution) []string {
	out := make([]string, 0, len(res.Buckets))
	for _, b := range res.Buckets {
		out = append(out, b.Label)
	}
	return out
}

func assertContiguous(t *testing.T, res Resolution) {
	t.Helper()
	require.NotEmpty(t, res.Buckets)
	for i := 1; i < len(res.Buckets); i++ {
		assert.True(t, res.Buckets[i-1].End.Equal(res.Buckets[i].Start), "gap between bucket %d and %d", i-1, i)
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Week ")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	_, err = ParsePeriod("fortnight")
	assert.True(t, errors.Is(err, ErrInvalidPeriod))
}

func TestResolveDay(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})
	now := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

	res, err := r.Resolve(PeriodDay, now, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"00:00", "03:00", "06:00", "09:00", "12:00", "15:00", "18:00", "21:00"}, labels(res))
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), res.Window.Start)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), res.Window.End)
	assertContiguous(t, res)
}

func TestResolveWeekEndsToday(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})
	// Sunday
	now := time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC)

	res, err := r.Resolve(PeriodWeek, now, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, labels(res))
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), res.Window.Start)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), res.Window.End)
	assertContiguous(t, res)
}

func TestResolveMonthLastBucketAbsorbsTail(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})
	now := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	res, err := r.Resolve(PeriodMonth, now, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Week 1", "Week 2", "Week 3", "Week 4"}, labels(res))
	assert.Equal(t, time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC), res.Buckets[3].Start)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), res.Buckets[3].End)
	assertContiguous(t, res)
}

func TestResolveYear(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})

	res, err := r.Resolve(PeriodYear, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	assert.Len(t, res.Buckets, 12)
	assert.Equal(t, "Jan", res.Buckets[0].Label)
	assert.Equal(t, "Dec", res.Buckets[11].Label)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), res.Window.End)
	assertContiguous(t, res)
}

func TestResolveAllIsUnbounded(t *testing.T) {
	floor := time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC)
	r := NewResolver(time.UTC, floor)
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	res, err := r.Resolve(PeriodAll, now, nil)
	require.NoError(t, err)

	assert.True(t, res.Window.Unbounded)
	assert.Nil(t, res.FetchWindow())
	assert.Equal(t, []string{"2022", "2023", "2024"}, labels(res))
	assert.Equal(t, floor, res.Buckets[0].Start)
	assertContiguous(t, res)

	_, err = r.Previous(res)
	assert.True(t, errors.Is(err, ErrNoPreviousPeriod))
}

func TestResolveCustomDaily(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})
	rng := &Range{
		From: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 4, 6, 0, 0, 0, time.UTC),
	}

	res, err := r.Resolve(PeriodCustom, time.Now(), rng)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"}, labels(res))
	assert.Equal(t, rng.From, res.Buckets[0].Start)
	assert.Equal(t, rng.To, res.Buckets[3].End)
	assertContiguous(t, res)
}

func TestResolveCustomMonthly(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})
	rng := &Range{
		From: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	res, err := r.Resolve(PeriodCustom, time.Now(), rng)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03", "2024-04"}, labels(res))
	assertContiguous(t, res)
}

func TestResolveCustomRejectsInvertedRange(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})
	now := time.Now()

	_, err := r.Resolve(PeriodCustom, now, &Range{From: now, To: now})
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = r.Resolve(PeriodCustom, now, nil)
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = r.Resolve(Period("quarter"), now, nil)
	assert.True(t, errors.Is(err, ErrInvalidPeriod))
}

func TestLocateBoundaryBelongsToLaterBucket(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})
	res, err := r.Resolve(PeriodDay, time.Date(2024, 3, 13, 1, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, Locate(res.Buckets, time.Date(2024, 3, 13, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, Locate(res.Buckets, time.Date(2024, 3, 13, 2, 59, 59, 0, time.UTC)))
	assert.Equal(t, 7, Locate(res.Buckets, time.Date(2024, 3, 13, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, -1, Locate(res.Buckets, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, Locate(res.Buckets, time.Date(2024, 3, 12, 23, 0, 0, 0, time.UTC)))
}

func TestPreviousShapes(t *testing.T) {
	r := NewResolver(time.UTC, time.Time{})
	now := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

	week, err := r.Resolve(PeriodWeek, now, nil)
	require.NoError(t, err)
	prevWeek, err := r.Previous(week)
	require.NoError(t, err)
	assert.Equal(t, week.Window.Start, prevWeek.Window.End)
	assert.Len(t, prevWeek.Buckets, 7)

	month, err := r.Resolve(PeriodMonth, now, nil)
	require.NoError(t, err)
	prevMonth, err := r.Previous(month)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), prevMonth.Window.Start)
	assert.Equal(t, month.Window.Start, prevMonth.Window.End)

	custom, err := r.Resolve(PeriodCustom, now, &Range{
		From: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	prevCustom, err := r.Previous(custom)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), prevCustom.Window.Start)
	assert.Len(t, prevCustom.Buckets, 3)
}

func TestResolveInLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	r := NewResolver(loc, time.Time{})
	// DST starts 2024-03-10 in New York.
	res, err := r.Resolve(PeriodDay, time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	assert.Len(t, res.Buckets, 8)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), res.Window.End)
	assert.Equal(t, 23*time.Hour, res.Window.End.Sub(res.Window.Start))
	assertContiguous(t, res)
}
