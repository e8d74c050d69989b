package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/coursepulse/internal/records/domain"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	sunday = time.Date(2024, 3, 17, 20, 0, 0, 0, time.UTC)
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func amount(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(dec(v)) }

func weekBuckets(t *testing.T) []timewindow.Bucket {
	t.Helper()
	res, err := timewindow.NewResolver(time.UTC, time.Time{}).Resolve(timewindow.PeriodWeek, sunday, nil)
	require.NoError(t, err)
	return res.Buckets
}

func catalog() map[string]domain.Course {
	return map[string]domain.Course{
		"go-101":  {ID: "go-101", Title: "Go 101", Price: amount(100), DiscountedPrice: amount(80)},
		"sql-201": {ID: "sql-201", Title: "SQL 201", Slug: "sql", Price: amount(60)},
		"free":    {ID: "free", Title: "Free Course"},
	}
}

func TestWeeklyRevenueScenario(t *testing.T) {
	buckets := weekBuckets(t)
	in := RevenueInput{
		Courses: catalog(),
		Transactions: []domain.Transaction{
			{ID: "1", CourseID: "go-101", Amount: amount(300), Status: "completed", CreatedAt: monday.Add(9 * time.Hour)},
			{ID: "2", CourseID: "go-101", Amount: amount(50), Status: "successful", CreatedAt: monday.AddDate(0, 0, 2).Add(15 * time.Hour)},
			{ID: "3", CourseID: "go-101", Amount: amount(999), Status: "pending", CreatedAt: monday.Add(time.Hour)},
		},
	}

	result := AggregateRevenue(in, buckets, GroupByNone)

	assert.True(t, result.Total.Equal(dec(350)), result.Total.String())
	assert.Equal(t, "Mon", result.Series[0].Label)
	assert.True(t, result.Series[0].Value.Equal(dec(300)))
	assert.True(t, result.Series[2].Value.Equal(dec(50)))
	for _, i := range []int{1, 3, 4, 5, 6} {
		assert.True(t, result.Series[i].Value.IsZero(), "bucket %d", i)
	}
	assert.Equal(t, 2, result.Count)
	assert.Nil(t, result.Breakdown)
}

func TestAggregateRevenueSeriesSumsToTotal(t *testing.T) {
	buckets := weekBuckets(t)
	var txs []domain.Transaction
	for i := 0; i < 50; i++ {
		txs = append(txs, domain.Transaction{
			CourseID:  "sql-201",
			Amount:    decimal.NewNullDecimal(decimal.New(int64(i*137+1), -2)),
			Status:    "Completed",
			CreatedAt: monday.Add(time.Duration(i*3) * time.Hour),
		})
	}

	result := AggregateRevenue(RevenueInput{Transactions: txs, Courses: catalog()}, buckets, GroupByCourse)

	assert.True(t, sumSeries(result.Series).Equal(result.Total))
	breakdownTotal := decimal.Zero
	for _, e := range result.Breakdown.Entries() {
		breakdownTotal = breakdownTotal.Add(e.Value)
	}
	assert.True(t, breakdownTotal.Equal(result.Total))
	assert.Equal(t, result.Count+result.OutOfRange, 50)
}

func TestAggregateRevenueIsIdempotent(t *testing.T) {
	buckets := weekBuckets(t)
	in := RevenueInput{
		Courses: catalog(),
		Transactions: []domain.Transaction{
			{CourseID: "go-101", Amount: amount(10), Status: "completed", CreatedAt: monday, PaymentMethod: "Card"},
			{CourseID: "sql-201", Status: "completed", CreatedAt: monday.Add(30 * time.Hour), Metadata: map[string]interface{}{"payment_method": "paypal"}},
		},
	}

	first := AggregateRevenue(in, buckets, GroupByPaymentMethod)
	second := AggregateRevenue(in, buckets, GroupByPaymentMethod)

	firstJSON, err := json.Marshal(first.Breakdown)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Breakdown)
	require.NoError(t, err)

	assert.Equal(t, first.Series, second.Series)
	assert.Equal(t, string(firstJSON), string(secondJSON))
	assert.False(t, in.Transactions[1].Amount.Valid, "input must not be mutated")
}

func TestAggregateRevenueDiagnostics(t *testing.T) {
	buckets := weekBuckets(t)
	in := RevenueInput{
		Courses: catalog(),
		Transactions: []domain.Transaction{
			{CourseID: "go-101", Status: "completed", CreatedAt: monday},
			{CourseID: "", Amount: amount(5), Status: "completed", CreatedAt: monday},
			{CourseID: "go-101", Amount: amount(5), Status: "completed"},
			{CourseID: "ghost", Status: "completed", CreatedAt: monday},
			{CourseID: "ghost", Amount: amount(7), Status: "completed", CreatedAt: monday},
			{CourseID: "go-101", Amount: amount(5), Status: "completed", CreatedAt: monday.AddDate(0, 0, -1)},
			{CourseID: "free", Status: "completed", CreatedAt: monday},
		},
	}

	result := AggregateRevenue(in, buckets, GroupByNone)

	assert.Equal(t, 3, result.Skipped)
	assert.Equal(t, 1, result.OutOfRange)
	assert.Equal(t, 2, result.Normalized)
	assert.Equal(t, 3, result.Count)
	assert.True(t, result.Total.Equal(dec(87)), result.Total.String())
}

func TestNormalizeAmount(t *testing.T) {
	course := catalog()["go-101"]

	zero := domain.Transaction{Amount: amount(0)}
	assert.True(t, NormalizeAmount(zero, &course).Equal(dec(80)))

	paid := domain.Transaction{Amount: amount(50)}
	assert.True(t, NormalizeAmount(paid, &course).Equal(dec(50)))

	listOnly := catalog()["sql-201"]
	assert.True(t, NormalizeAmount(domain.Transaction{}, &listOnly).Equal(dec(60)))

	free := catalog()["free"]
	assert.True(t, NormalizeAmount(domain.Transaction{}, &free).IsZero())
	assert.True(t, NormalizeAmount(domain.Transaction{}, nil).IsZero())

	zeroDiscount := domain.Course{Price: amount(100), DiscountedPrice: amount(0)}
	assert.True(t, NormalizeAmount(domain.Transaction{}, &zeroDiscount).IsZero())
}

func TestBreakdownKeepsInsertionOrder(t *testing.T) {
	buckets := weekBuckets(t)
	in := RevenueInput{
		Courses: catalog(),
		Transactions: []domain.Transaction{
			{CourseID: "sql-201", Amount: amount(10), Status: "completed", CreatedAt: monday},
			{CourseID: "go-101", Amount: amount(20), Status: "completed", CreatedAt: monday},
			{CourseID: "sql-201", Amount: amount(5), Status: "completed", CreatedAt: monday},
		},
	}

	b := BreakdownRevenue(in, buckets, GroupByCourse)

	assert.Equal(t, []string{"sql", "go-101"}, b.Keys())
	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"sql":"15","go-101":"20"}`, string(raw))
	assert.Equal(t, "Go 101", b.Entries()[1].Label)
}

func TestCourseKeysNeverCollide(t *testing.T) {
	buckets := weekBuckets(t)
	courses := map[string]domain.Course{
		"a": {ID: "a", Title: "Intro"},
		"b": {ID: "b", Title: "Intro"},
	}
	in := RevenueInput{
		Courses: courses,
		Transactions: []domain.Transaction{
			{CourseID: "a", Amount: amount(1), Status: "completed", CreatedAt: monday},
			{CourseID: "b", Amount: amount(2), Status: "completed", CreatedAt: monday},
		},
	}

	b := BreakdownRevenue(in, buckets, GroupByCourse)
	assert.Equal(t, []string{"intro", "intro-b"}, b.Keys())
}

func TestPaymentMethodFallback(t *testing.T) {
	assert.Equal(t, "card", PaymentMethod(domain.Transaction{PaymentMethod: " Card "}))
	assert.Equal(t, "paypal", PaymentMethod(domain.Transaction{Metadata: map[string]interface{}{"payment_method": "PayPal"}}))
	assert.Equal(t, "unknown", PaymentMethod(domain.Transaction{Metadata: map[string]interface{}{"payment_method": 12}}))
	assert.Equal(t, "unknown", PaymentMethod(domain.Transaction{}))
}

func TestCompletionRateBounds(t *testing.T) {
	assert.Equal(t, 0, CompletionRate(nil).Rate)

	stats := CompletionRate([]domain.Enrollment{
		{StudentID: "s1", CourseID: "c", Completed: true, Progress: 40},
		{StudentID: "s2", CourseID: "c", Progress: 100},
		{StudentID: "s3", CourseID: "c", Progress: 10},
		{StudentID: "", CourseID: "c", Progress: 100},
	})

	assert.Equal(t, 67, stats.Rate)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Inconsistent)
	assert.Equal(t, 1, stats.Skipped)

	all := CompletionRate([]domain.Enrollment{{StudentID: "s", CourseID: "c", Completed: true, Progress: 100}})
	assert.Equal(t, 100, all.Rate)
	assert.Zero(t, all.Inconsistent)
}

func TestAverageProgress(t *testing.T) {
	assert.Equal(t, 0, AverageProgress(nil))
	assert.Equal(t, 55, AverageProgress([]domain.Enrollment{
		{CourseID: "a", Progress: 10},
		{CourseID: "b", Completed: true, Progress: 30},
	}))
}

func TestLessonCompletionScenario(t *testing.T) {
	var progress []domain.LessonProgress
	for i := 0; i < 4; i++ {
		progress = append(progress, domain.LessonProgress{
			StudentID: "stu", CourseID: "go-101", LessonID: string(rune('a' + i)), Completed: true,
		})
	}
	progress = append(progress,
		domain.LessonProgress{StudentID: "stu", CourseID: "go-101", LessonID: "e"},
		domain.LessonProgress{StudentID: "other", CourseID: "go-101", LessonID: "f", Completed: true},
	)

	stats := LessonCompletion(progress, "stu", "go-101", 10)
	assert.Equal(t, LessonStats{Percent: 40, Completed: 4, Total: 10}, stats)

	noLessons := LessonCompletion(nil, "stu", "go-101", 0)
	assert.Equal(t, 0, noLessons.Percent)

	grown := LessonCompletion(progress, "stu", "go-101", 2)
	assert.Equal(t, 5, grown.Total)
	assert.Equal(t, 80, grown.Percent)
}

func TestPercentChangeZeroGuard(t *testing.T) {
	assert.Equal(t, PeriodDelta{ChangePercent: 100, IsPositive: true}, Delta([]decimal.Decimal{dec(0), dec(50)}))
	assert.Equal(t, PeriodDelta{ChangePercent: 0, IsPositive: true}, Delta([]decimal.Decimal{dec(0), dec(0)}))
	assert.Equal(t, PeriodDelta{ChangePercent: 0, IsPositive: true}, Delta([]decimal.Decimal{dec(10)}))
	assert.Equal(t, PeriodDelta{ChangePercent: -50, IsPositive: false}, Delta([]decimal.Decimal{dec(7), dec(200), dec(100)}))
	assert.Equal(t, 33, PercentChange(dec(3), dec(4)))
	assert.Equal(t, PeriodDelta{ChangePercent: 100, IsPositive: true}, DeltaCounts(2, 4))
}

func TestPercentChangeNegativePrevious(t *testing.T) {
	assert.Equal(t, -100, PercentChange(dec(-50), dec(0)))
	assert.Equal(t, 100, PercentChange(dec(-50), dec(-100)))
	assert.Equal(t, PeriodDelta{ChangePercent: -300, IsPositive: false}, Delta([]decimal.Decimal{dec(-50), dec(100)}))
}

func TestCompletedCoursesIgnoresDuplicateRows(t *testing.T) {
	enrollments := []domain.Enrollment{
		{StudentID: "s", CourseID: "a", Completed: true},
		{StudentID: "s", CourseID: "a", Progress: 100},
		{StudentID: "s", CourseID: "b", Progress: 40},
		{StudentID: "s", CourseID: "", Completed: true},
	}
	assert.Equal(t, 1, CompletedCourses(enrollments))
	assert.Len(t, CourseIDs(enrollments), 2)
}

func TestCountEnrollments(t *testing.T) {
	buckets := weekBuckets(t)
	result := CountEnrollments([]domain.Enrollment{
		{CourseID: "c", EnrolledAt: monday},
		{CourseID: "c", EnrolledAt: monday.Add(time.Hour)},
		{CourseID: "c", EnrolledAt: monday.AddDate(0, 0, 6)},
		{CourseID: "c", EnrolledAt: monday.AddDate(0, 0, 7)},
		{CourseID: "", EnrolledAt: monday},
	}, buckets)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Series[0].Value)
	assert.Equal(t, 1, result.Series[6].Value)
	assert.Equal(t, 1, result.OutOfRange)
	assert.Equal(t, 1, result.Skipped)
}

func TestStudentActivityStreak(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	at := func(day int, hour int) domain.LessonProgress {
		return domain.LessonProgress{LastAccessed: time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)}
	}

	activity := StudentActivity([]domain.LessonProgress{at(14, 8), at(14, 20), at(13, 1), at(11, 5), {}}, now, time.UTC)
	assert.Equal(t, 3, activity.ActiveDays)
	assert.Equal(t, 2, activity.CurrentStreak)
	assert.Equal(t, time.Date(2024, 3, 14, 20, 0, 0, 0, time.UTC), activity.LastActive)

	stale := StudentActivity([]domain.LessonProgress{at(11, 5)}, now, time.UTC)
	assert.Equal(t, 0, stale.CurrentStreak)

	today := StudentActivity([]domain.LessonProgress{at(15, 8), at(14, 8)}, now, nil)
	assert.Equal(t, 2, today.CurrentStreak)
}

func TestParseGroupBy(t *testing.T) {
	g, err := ParseGroupBy("Payment_Method")
	require.NoError(t, err)
	assert.Equal(t, GroupByPaymentMethod, g)

	_, err = ParseGroupBy("student")
	assert.ErrorIs(t, err, ErrInvalidGroupBy)
}
