package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	analyticsdomain "github.com/smallbiznis/coursepulse/internal/analytics/domain"
	"github.com/smallbiznis/coursepulse/internal/analytics/engine"
	"github.com/smallbiznis/coursepulse/internal/clock"
	"github.com/smallbiznis/coursepulse/internal/config"
	currencyservice "github.com/smallbiznis/coursepulse/internal/currency/service"
	recordsdomain "github.com/smallbiznis/coursepulse/internal/records/domain"
	"github.com/smallbiznis/coursepulse/internal/records/mock"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	now    = time.Date(2024, 3, 17, 20, 0, 0, 0, time.UTC)
	monday = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func amount(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(dec(v)) }

type fixture struct {
	svc     analyticsdomain.Service
	fetcher *mock.MockFetcher
	clock   *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	fetcher := mock.NewMockFetcher(ctrl)
	holder, err := config.NewStaticCurrencyConfigHolder(config.CurrencyConfig{
		Base:  "USD",
		Rates: map[string]float64{"USD": 1, "EUR": 0.5},
	})
	require.NoError(t, err)

	fake := clock.NewFakeClock(now)
	svc := NewService(Params{
		Fetcher:  fetcher,
		Resolver: timewindow.NewResolver(time.UTC, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
		Currency: currencyservice.NewService(currencyservice.Params{Holder: holder, Log: zap.NewNop()}),
		Clock:    fake,
		Log:      zap.NewNop(),
	})
	return fixture{svc: svc, fetcher: fetcher, clock: fake}
}

func courses() []recordsdomain.Course {
	return []recordsdomain.Course{
		{ID: "go-101", InstructorID: "ins-1", Title: "Go 101", Price: amount(100), DiscountedPrice: amount(80)},
		{ID: "sql-201", InstructorID: "ins-1", Title: "SQL 201", Slug: "sql", Price: amount(60)},
	}
}

func weekTransactions() []recordsdomain.Transaction {
	return []recordsdomain.Transaction{
		{ID: "1", CourseID: "go-101", Amount: amount(300), Status: "completed", PaymentMethod: "card", CreatedAt: monday.Add(9 * time.Hour)},
		{ID: "2", CourseID: "sql-201", Amount: amount(50), Status: "successful", PaymentMethod: "wallet", CreatedAt: monday.AddDate(0, 0, 2).Add(15 * time.Hour)},
	}
}

func allScope() analyticsdomain.Scope { return analyticsdomain.Scope{All: true} }

func TestComputeRevenueWeek(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), recordsdomain.CourseQuery{All: true}).Return(courses(), nil)
	f.fetcher.EXPECT().
		FetchTransactions(gomock.Any(), gomock.Nil(), gomock.Not(gomock.Nil()), recordsdomain.RealizedStatuses).
		Return(weekTransactions(), nil)

	report, err := f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{
		Scope:   allScope(),
		Period:  timewindow.PeriodWeek,
		GroupBy: engine.GroupByCourse,
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", report.Currency)
	assert.False(t, report.CurrencyFallback)
	assert.True(t, report.Total.Equal(dec(350)), report.Total.String())
	require.Len(t, report.Series, 7)
	assert.True(t, report.Series[0].Value.Equal(dec(300)))
	assert.True(t, report.Series[2].Value.Equal(dec(50)))
	assert.Equal(t, 2, report.Count)

	assert.Equal(t, []string{"go-101", "sql"}, report.Breakdown.Keys())
	require.Len(t, report.BreakdownEntries, 2)
	assert.Equal(t, "Go 101", report.BreakdownEntries[0].Label)

	card, ok := report.ByMethod.Get("card")
	require.True(t, ok)
	assert.True(t, card.Equal(dec(300)))
}

func TestComputeRevenueConvertsCurrency(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(weekTransactions(), nil)

	report, err := f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{
		Scope:    allScope(),
		Period:   timewindow.PeriodWeek,
		Currency: "eur",
	})
	require.NoError(t, err)

	assert.Equal(t, "EUR", report.Currency)
	assert.True(t, report.Total.Equal(decimal.RequireFromString("175")), report.Total.String())
	assert.Nil(t, report.Breakdown)
	assert.Empty(t, report.GroupBy)
}

func TestComputeRevenueUnsupportedCurrencyFallsBackToBase(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(weekTransactions(), nil)

	report, err := f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{
		Scope:    allScope(),
		Period:   timewindow.PeriodWeek,
		Currency: "XYZ",
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", report.Currency)
	assert.True(t, report.CurrencyFallback)
	assert.True(t, report.Total.Equal(dec(350)))
}

func TestComputeRevenueInstructorScopePassesCourseIDs(t *testing.T) {
	f := newFixture(t)
	scope := analyticsdomain.Scope{InstructorID: "ins-1"}
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), recordsdomain.CourseQuery{InstructorID: "ins-1"}).Return(courses(), nil)
	f.fetcher.EXPECT().
		FetchTransactions(gomock.Any(), []string{"go-101", "sql-201"}, gomock.Any(), gomock.Any()).
		Return(nil, nil)

	report, err := f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{Scope: scope, Period: timewindow.PeriodDay})
	require.NoError(t, err)
	assert.True(t, report.Total.IsZero())
	assert.Len(t, report.Series, 8)
}

func TestComputeRevenueEmptyScopeSkipsTransactions(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(nil, nil)

	report, err := f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{
		Scope:  analyticsdomain.Scope{CourseIDs: []string{"missing"}},
		Period: timewindow.PeriodMonth,
	})
	require.NoError(t, err)
	assert.True(t, report.Total.IsZero())
	assert.Equal(t, 0, report.Count)
	assert.NotEmpty(t, report.Series)
}

func TestComputeRevenueRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{Scope: analyticsdomain.Scope{}, Period: timewindow.PeriodWeek})
	assert.ErrorIs(t, err, analyticsdomain.ErrInvalidScope)

	_, err = f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{Scope: allScope(), Period: "fortnight"})
	assert.ErrorIs(t, err, timewindow.ErrInvalidPeriod)

	_, err = f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{
		Scope:  allScope(),
		Period: timewindow.PeriodCustom,
		Range:  &timewindow.Range{From: now, To: now.AddDate(0, 0, -3)},
	})
	assert.ErrorIs(t, err, timewindow.ErrInvalidRange)
}

func TestComputeRevenueDataUnavailable(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	_, err := f.svc.ComputeRevenue(context.Background(), analyticsdomain.RevenueRequest{Scope: allScope(), Period: timewindow.PeriodWeek})
	require.Error(t, err)
	assert.ErrorIs(t, err, recordsdomain.ErrDataUnavailable)
}

func TestComputeCompletion(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchEnrollments(gomock.Any(), gomock.Nil(), gomock.Any()).Return([]recordsdomain.Enrollment{
		{StudentID: "s1", CourseID: "go-101", Progress: 100, Completed: true, EnrolledAt: monday},
		{StudentID: "s2", CourseID: "go-101", Progress: 100, EnrolledAt: monday},
		{StudentID: "s3", CourseID: "sql-201", Progress: 40, EnrolledAt: monday},
		{StudentID: "", CourseID: "sql-201", Progress: 10, EnrolledAt: monday},
	}, nil)

	report, err := f.svc.ComputeCompletion(context.Background(), analyticsdomain.CompletionRequest{Scope: allScope(), Period: timewindow.PeriodAll})
	require.NoError(t, err)

	assert.Equal(t, 67, report.Rate)
	assert.Equal(t, 2, report.CompletedCount)
	assert.Equal(t, 3, report.TotalCount)
	assert.Equal(t, 1, report.Inconsistent)
	assert.Equal(t, 1, report.Skipped)
}

func TestComputeCompletionNoEnrollments(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchEnrollments(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	report, err := f.svc.ComputeCompletion(context.Background(), analyticsdomain.CompletionRequest{Scope: allScope(), Period: timewindow.PeriodMonth})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Rate)
	assert.Equal(t, 0, report.TotalCount)
}

func TestComputeCourseProgress(t *testing.T) {
	f := newFixture(t)
	progress := []recordsdomain.LessonProgress{
		{StudentID: "s1", CourseID: "go-101", LessonID: "l1", Completed: true},
		{StudentID: "s1", CourseID: "go-101", LessonID: "l2", Completed: true},
		{StudentID: "s1", CourseID: "go-101", LessonID: "l3", Completed: true},
		{StudentID: "s1", CourseID: "go-101", LessonID: "l4", Completed: true},
		{StudentID: "s1", CourseID: "go-101", LessonID: "l5", Completed: false},
	}
	f.fetcher.EXPECT().FetchLessonCounts(gomock.Any(), []string{"go-101"}).Return(map[string]int{"go-101": 10}, nil)
	f.fetcher.EXPECT().FetchLessonProgress(gomock.Any(), recordsdomain.LessonProgressQuery{
		StudentIDs: []string{"s1"},
		CourseIDs:  []string{"go-101"},
	}, gomock.Nil()).Return(progress, nil)

	got, err := f.svc.ComputeCourseProgress(context.Background(), "s1", "go-101")
	require.NoError(t, err)
	assert.Equal(t, 40, got.ProgressPercent)
	assert.Equal(t, 4, got.CompletedLessons)
	assert.Equal(t, 10, got.TotalLessons)
}

func TestComputeCourseProgressWithoutLessons(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchLessonCounts(gomock.Any(), gomock.Any()).Return(map[string]int{}, nil)
	f.fetcher.EXPECT().FetchLessonProgress(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	got, err := f.svc.ComputeCourseProgress(context.Background(), "s1", "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, got.ProgressPercent)
}

func TestComputeCourseProgressRequiresIDs(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ComputeCourseProgress(context.Background(), " ", "go-101")
	assert.ErrorIs(t, err, analyticsdomain.ErrInvalidRequest)
}

func TestComputePeriodDelta(t *testing.T) {
	f := newFixture(t)
	got := f.svc.ComputePeriodDelta([]decimal.Decimal{dec(100), dec(150)})
	assert.Equal(t, engine.PeriodDelta{ChangePercent: 50, IsPositive: true}, got)

	got = f.svc.ComputePeriodDelta([]decimal.Decimal{dec(0), dec(0)})
	assert.Equal(t, 0, got.ChangePercent)
	assert.True(t, got.IsPositive)
}

func TestComputeEnrollments(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchEnrollments(gomock.Any(), gomock.Any(), gomock.Any()).Return([]recordsdomain.Enrollment{
		{StudentID: "s1", CourseID: "go-101", EnrolledAt: monday.Add(time.Hour)},
		{StudentID: "s2", CourseID: "go-101", EnrolledAt: monday.Add(2 * time.Hour)},
		{StudentID: "s3", CourseID: "sql-201", EnrolledAt: monday.AddDate(0, 0, 4)},
		{StudentID: "s4", CourseID: "sql-201", EnrolledAt: monday.AddDate(0, 0, -20)},
	}, nil)

	report, err := f.svc.ComputeEnrollments(context.Background(), analyticsdomain.EnrollmentRequest{Scope: allScope(), Period: timewindow.PeriodWeek})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Series[0].Value)
	assert.Equal(t, 1, report.Series[4].Value)
	assert.Equal(t, 1, report.OutOfRange)
}

// windowed mimics the store: it returns only records inside window.
func windowedTransactions(all []recordsdomain.Transaction) func(context.Context, []string, *timewindow.Window, []string) ([]recordsdomain.Transaction, error) {
	return func(_ context.Context, _ []string, window *timewindow.Window, _ []string) ([]recordsdomain.Transaction, error) {
		var out []recordsdomain.Transaction
		for _, tx := range all {
			if window == nil || window.Contains(tx.CreatedAt) {
				out = append(out, tx)
			}
		}
		return out, nil
	}
}

func windowedEnrollments(all []recordsdomain.Enrollment) func(context.Context, []string, *timewindow.Window) ([]recordsdomain.Enrollment, error) {
	return func(_ context.Context, _ []string, window *timewindow.Window) ([]recordsdomain.Enrollment, error) {
		var out []recordsdomain.Enrollment
		for _, e := range all {
			if window == nil || window.Contains(e.EnrolledAt) {
				out = append(out, e)
			}
		}
		return out, nil
	}
}

func TestComputeOverviewComparesWithPreviousPeriod(t *testing.T) {
	f := newFixture(t)
	march := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	february := time.Date(2024, 2, 10, 10, 0, 0, 0, time.UTC)

	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(windowedTransactions([]recordsdomain.Transaction{
			{ID: "1", CourseID: "go-101", Amount: amount(200), Status: "completed", CreatedAt: march},
			{ID: "2", CourseID: "go-101", Amount: amount(100), Status: "completed", CreatedAt: february},
		}))
	f.fetcher.EXPECT().FetchEnrollments(gomock.Any(), gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(windowedEnrollments([]recordsdomain.Enrollment{
			{StudentID: "s1", CourseID: "go-101", Completed: true, Progress: 100, EnrolledAt: march},
			{StudentID: "s2", CourseID: "go-101", Progress: 30, EnrolledAt: march},
			{StudentID: "s3", CourseID: "go-101", Progress: 50, EnrolledAt: march},
			{StudentID: "s4", CourseID: "go-101", Progress: 20, EnrolledAt: february},
		}))

	report, err := f.svc.ComputeOverview(context.Background(), analyticsdomain.OverviewRequest{Scope: allScope(), Period: timewindow.PeriodMonth})
	require.NoError(t, err)

	assert.True(t, report.HasPrevious)
	assert.Equal(t, 2, report.Courses)
	assert.True(t, report.Revenue.Current.Equal(dec(200)))
	assert.True(t, report.Revenue.Previous.Equal(dec(100)))
	assert.Equal(t, engine.PeriodDelta{ChangePercent: 100, IsPositive: true}, report.Revenue.Delta)

	assert.Equal(t, 3, report.Enrollments.Current)
	assert.Equal(t, 1, report.Enrollments.Previous)
	assert.Equal(t, 200, report.Enrollments.Delta.ChangePercent)

	assert.Equal(t, 33, report.CompletionRate.Current)
	assert.Equal(t, 0, report.CompletionRate.Previous)
	assert.Equal(t, 100, report.CompletionRate.Delta.ChangePercent)
}

func TestComputeOverviewAllHasNoPrevious(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchTransactions(gomock.Any(), gomock.Any(), gomock.Nil(), gomock.Any()).Times(1).Return(nil, nil)
	f.fetcher.EXPECT().FetchEnrollments(gomock.Any(), gomock.Any(), gomock.Nil()).Times(1).Return(nil, nil)

	report, err := f.svc.ComputeOverview(context.Background(), analyticsdomain.OverviewRequest{Scope: allScope(), Period: timewindow.PeriodAll})
	require.NoError(t, err)
	assert.False(t, report.HasPrevious)
	assert.True(t, report.Revenue.Previous.IsZero())
}

func TestComputeOverviewPropagatesFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchCourses(gomock.Any(), gomock.Any()).Return(courses(), nil)
	f.fetcher.EXPECT().FetchTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("timeout")).AnyTimes()
	f.fetcher.EXPECT().FetchEnrollments(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	_, err := f.svc.ComputeOverview(context.Background(), analyticsdomain.OverviewRequest{Scope: allScope(), Period: timewindow.PeriodWeek})
	assert.ErrorIs(t, err, recordsdomain.ErrDataUnavailable)
}

func TestComputeStudentStats(t *testing.T) {
	f := newFixture(t)
	yesterday := now.AddDate(0, 0, -1)
	f.fetcher.EXPECT().FetchStudentEnrollments(gomock.Any(), "s1").Return([]recordsdomain.Enrollment{
		{StudentID: "s1", CourseID: "go-101", Progress: 100, Completed: true},
		{StudentID: "s1", CourseID: "sql-201", Progress: 50},
	}, nil)
	f.fetcher.EXPECT().FetchLessonProgress(gomock.Any(), recordsdomain.LessonProgressQuery{StudentIDs: []string{"s1"}}, gomock.Nil()).
		Return([]recordsdomain.LessonProgress{
			{StudentID: "s1", CourseID: "go-101", LessonID: "l1", Completed: true, LastAccessed: now.Add(-time.Hour)},
			{StudentID: "s1", CourseID: "go-101", LessonID: "l2", Completed: true, LastAccessed: yesterday},
			{StudentID: "s1", CourseID: "sql-201", LessonID: "l1", Completed: false, LastAccessed: now.AddDate(0, 0, -5)},
		}, nil)

	stats, err := f.svc.ComputeStudentStats(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.EnrolledCourses)
	assert.Equal(t, 1, stats.CompletedCourses)
	assert.Equal(t, 75, stats.AverageProgress)
	assert.Equal(t, 2, stats.LessonsCompleted)
	assert.Equal(t, 3, stats.ActiveDays)
	assert.Equal(t, 2, stats.CurrentStreak)
	require.NotNil(t, stats.LastActive)
	assert.True(t, stats.LastActive.Equal(now.Add(-time.Hour)))
}

func TestComputeStudentStatsCountsDistinctCourses(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchStudentEnrollments(gomock.Any(), "s2").Return([]recordsdomain.Enrollment{
		{StudentID: "s2", CourseID: "go-101", Progress: 100, Completed: true},
		{StudentID: "s2", CourseID: "go-101", Progress: 100, Completed: true},
		{StudentID: "s2", CourseID: "sql-201", Progress: 20},
	}, nil)
	f.fetcher.EXPECT().FetchLessonProgress(gomock.Any(), gomock.Any(), gomock.Nil()).Return(nil, nil)

	stats, err := f.svc.ComputeStudentStats(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EnrolledCourses)
	assert.Equal(t, 1, stats.CompletedCourses)
	assert.LessOrEqual(t, stats.CompletedCourses, stats.EnrolledCourses)
}

func TestComputeStudentStatsWithoutActivity(t *testing.T) {
	f := newFixture(t)
	f.fetcher.EXPECT().FetchStudentEnrollments(gomock.Any(), "ghost").Return(nil, nil)
	f.fetcher.EXPECT().FetchLessonProgress(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	stats, err := f.svc.ComputeStudentStats(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EnrolledCourses)
	assert.Nil(t, stats.LastActive)
}
