package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	analyticsdomain "github.com/smallbiznis/coursepulse/internal/analytics/domain"
	"github.com/smallbiznis/coursepulse/internal/analytics/engine"
	"github.com/smallbiznis/coursepulse/internal/clock"
	currencydomain "github.com/smallbiznis/coursepulse/internal/currency/domain"
	obslogger "github.com/smallbiznis/coursepulse/internal/observability/logger"
	"github.com/smallbiznis/coursepulse/internal/observability/metrics"
	recordsdomain "github.com/smallbiznis/coursepulse/internal/records/domain"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	opRevenue        = "revenue"
	opCompletion     = "completion"
	opCourseProgress = "course_progress"
	opEnrollments    = "enrollments"
	opOverview       = "overview"
	opStudentStats   = "student_stats"
)

type Params struct {
	fx.In

	Fetcher  recordsdomain.Fetcher
	Resolver *timewindow.Resolver
	Currency currencydomain.Service
	Clock    clock.Clock
	Log      *zap.Logger
	Metrics  *metrics.AnalyticsMetrics `optional:"true"`
	Counters *metrics.Metrics          `optional:"true"`
}

type Service struct {
	fetcher  recordsdomain.Fetcher
	resolver *timewindow.Resolver
	currency currencydomain.Service
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.AnalyticsMetrics
	counters *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(p Params) analyticsdomain.Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		fetcher:  p.Fetcher,
		resolver: p.Resolver,
		currency: p.Currency,
		clock:    p.Clock,
		log:      log.Named("analytics.service"),
		metrics:  p.Metrics,
		counters: p.Counters,
		tracer:   otel.Tracer("coursepulse/analytics"),
	}
}

func (s *Service) ComputeRevenue(ctx context.Context, req analyticsdomain.RevenueRequest) (report analyticsdomain.RevenueReport, err error) {
	ctx, done := s.begin(ctx, opRevenue, req.Period)
	defer func() { done(err) }()

	res, err := s.resolve(req.Period, req.Range)
	if err != nil {
		return analyticsdomain.RevenueReport{}, err
	}
	courses, courseIDs, err := s.loadScope(ctx, req.Scope)
	if err != nil {
		return analyticsdomain.RevenueReport{}, err
	}

	var txs []recordsdomain.Transaction
	if courses != nil {
		txs, err = s.fetchTransactions(ctx, courseIDs, res.FetchWindow())
		if err != nil {
			return analyticsdomain.RevenueReport{}, err
		}
	}

	in := engine.RevenueInput{Transactions: txs, Courses: courses}
	agg := engine.AggregateRevenue(in, res.Buckets, req.GroupBy)
	byMethod := agg.Breakdown
	if req.GroupBy != engine.GroupByPaymentMethod {
		byMethod = engine.BreakdownRevenue(in, res.Buckets, engine.GroupByPaymentMethod)
	}
	s.recordFold(ctx, opRevenue, agg.Count, agg.Skipped, agg.OutOfRange)
	if agg.Normalized > 0 {
		obslogger.WithContext(ctx, s.log).Debug("substituted course price for missing transaction amounts",
			zap.Int("normalized", agg.Normalized),
		)
	}

	target, fallback := s.targetCurrency(ctx, req.Currency)
	convert := s.converter(target)

	report = analyticsdomain.RevenueReport{
		Period:           res.Period,
		WindowStart:      res.Window.Start,
		WindowEnd:        res.Window.End,
		Currency:         target,
		CurrencyFallback: fallback,
		Series:           make([]engine.Point, len(agg.Series)),
		ByMethod:         byMethod.Map(convert),
		Count:            agg.Count,
		Skipped:          agg.Skipped,
		OutOfRange:       agg.OutOfRange,
		Normalized:       agg.Normalized,
	}
	for i, p := range agg.Series {
		p.Value = convert(p.Value)
		report.Series[i] = p
	}
	report.Total = sumPoints(report.Series)
	if req.GroupBy != engine.GroupByNone {
		report.GroupBy = req.GroupBy
		report.Breakdown = agg.Breakdown.Map(convert)
		report.BreakdownEntries = report.Breakdown.Entries()
	}
	return report, nil
}

func (s *Service) ComputeCompletion(ctx context.Context, req analyticsdomain.CompletionRequest) (report analyticsdomain.CompletionReport, err error) {
	ctx, done := s.begin(ctx, opCompletion, req.Period)
	defer func() { done(err) }()

	res, err := s.resolve(req.Period, req.Range)
	if err != nil {
		return analyticsdomain.CompletionReport{}, err
	}
	stats, err := s.completionFor(ctx, req.Scope, res.FetchWindow())
	if err != nil {
		return analyticsdomain.CompletionReport{}, err
	}

	return analyticsdomain.CompletionReport{
		Period:         res.Period,
		Rate:           stats.Rate,
		CompletedCount: stats.Completed,
		TotalCount:     stats.Total,
		Inconsistent:   stats.Inconsistent,
		Skipped:        stats.Skipped,
	}, nil
}

func (s *Service) ComputeCourseProgress(ctx context.Context, studentID, courseID string) (progress analyticsdomain.CourseProgress, err error) {
	ctx, done := s.begin(ctx, opCourseProgress, "")
	defer func() { done(err) }()

	studentID, courseID = strings.TrimSpace(studentID), strings.TrimSpace(courseID)
	if studentID == "" || courseID == "" {
		return analyticsdomain.CourseProgress{}, fmt.Errorf("%w: student_id and course_id are required", analyticsdomain.ErrInvalidRequest)
	}

	counts, err := s.fetcher.FetchLessonCounts(ctx, []string{courseID})
	if err != nil {
		return analyticsdomain.CourseProgress{}, s.fetchFailed(ctx, "lessons", err)
	}
	rows, err := s.fetcher.FetchLessonProgress(ctx, recordsdomain.LessonProgressQuery{
		StudentIDs: []string{studentID},
		CourseIDs:  []string{courseID},
	}, nil)
	if err != nil {
		return analyticsdomain.CourseProgress{}, s.fetchFailed(ctx, "lesson_progress", err)
	}

	stats := engine.LessonCompletion(rows, studentID, courseID, counts[courseID])
	return analyticsdomain.CourseProgress{
		StudentID:        studentID,
		CourseID:         courseID,
		ProgressPercent:  stats.Percent,
		CompletedLessons: stats.Completed,
		TotalLessons:     stats.Total,
	}, nil
}

func (s *Service) ComputePeriodDelta(series []decimal.Decimal) engine.PeriodDelta {
	return engine.Delta(series)
}

func (s *Service) ComputeEnrollments(ctx context.Context, req analyticsdomain.EnrollmentRequest) (report analyticsdomain.EnrollmentReport, err error) {
	ctx, done := s.begin(ctx, opEnrollments, req.Period)
	defer func() { done(err) }()

	res, err := s.resolve(req.Period, req.Range)
	if err != nil {
		return analyticsdomain.EnrollmentReport{}, err
	}
	enrollments, err := s.enrollmentsFor(ctx, req.Scope, res.FetchWindow())
	if err != nil {
		return analyticsdomain.EnrollmentReport{}, err
	}

	counted := engine.CountEnrollments(enrollments, res.Buckets)
	s.recordFold(ctx, opEnrollments, counted.Total, counted.Skipped, counted.OutOfRange)
	return analyticsdomain.EnrollmentReport{
		Period:     res.Period,
		Total:      counted.Total,
		Series:     counted.Series,
		Skipped:    counted.Skipped,
		OutOfRange: counted.OutOfRange,
	}, nil
}

// ComputeOverview computes the period and the one before it side by side.
// The two halves are fetched concurrently.
func (s *Service) ComputeOverview(ctx context.Context, req analyticsdomain.OverviewRequest) (report analyticsdomain.OverviewReport, err error) {
	ctx, done := s.begin(ctx, opOverview, req.Period)
	defer func() { done(err) }()

	current, err := s.resolve(req.Period, req.Range)
	if err != nil {
		return analyticsdomain.OverviewReport{}, err
	}
	previous, err := s.resolver.Previous(current)
	hasPrevious := err == nil
	if err != nil && !errors.Is(err, timewindow.ErrNoPreviousPeriod) {
		return analyticsdomain.OverviewReport{}, err
	}

	courses, courseIDs, err := s.loadScope(ctx, req.Scope)
	if err != nil {
		return analyticsdomain.OverviewReport{}, err
	}

	var cur, prev periodFigures
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = s.figuresFor(gctx, courses, courseIDs, current)
		return err
	})
	if hasPrevious {
		g.Go(func() error {
			var err error
			prev, err = s.figuresFor(gctx, courses, courseIDs, previous)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return analyticsdomain.OverviewReport{}, err
	}

	target, fallback := s.targetCurrency(ctx, req.Currency)
	convert := s.converter(target)
	curRevenue, prevRevenue := convert(cur.revenue), convert(prev.revenue)

	return analyticsdomain.OverviewReport{
		Period:           current.Period,
		Currency:         target,
		CurrencyFallback: fallback,
		HasPrevious:      hasPrevious,
		Courses:          len(courses),
		Revenue: analyticsdomain.AmountComparison{
			Current:  curRevenue,
			Previous: prevRevenue,
			Delta:    engine.Delta([]decimal.Decimal{prevRevenue, curRevenue}),
		},
		Enrollments: analyticsdomain.CountComparison{
			Current:  cur.enrollments,
			Previous: prev.enrollments,
			Delta:    engine.DeltaCounts(prev.enrollments, cur.enrollments),
		},
		CompletionRate: analyticsdomain.CountComparison{
			Current:  cur.completionRate,
			Previous: prev.completionRate,
			Delta:    engine.DeltaCounts(prev.completionRate, cur.completionRate),
		},
	}, nil
}

func (s *Service) ComputeStudentStats(ctx context.Context, studentID string) (stats analyticsdomain.StudentStats, err error) {
	ctx, done := s.begin(ctx, opStudentStats, "")
	defer func() { done(err) }()

	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return analyticsdomain.StudentStats{}, fmt.Errorf("%w: student_id is required", analyticsdomain.ErrInvalidRequest)
	}

	enrollments, err := s.fetcher.FetchStudentEnrollments(ctx, studentID)
	if err != nil {
		return analyticsdomain.StudentStats{}, s.fetchFailed(ctx, "enrollments", err)
	}
	progress, err := s.fetcher.FetchLessonProgress(ctx, recordsdomain.LessonProgressQuery{
		StudentIDs: []string{studentID},
	}, nil)
	if err != nil {
		return analyticsdomain.StudentStats{}, s.fetchFailed(ctx, "lesson_progress", err)
	}

	activity := engine.StudentActivity(progress, s.clock.Now(), s.resolver.Location())

	stats = analyticsdomain.StudentStats{
		StudentID:        studentID,
		EnrolledCourses:  len(engine.CourseIDs(enrollments)),
		CompletedCourses: engine.CompletedCourses(enrollments),
		AverageProgress:  engine.AverageProgress(enrollments),
		LessonsCompleted: engine.CompletedLessons(progress),
		ActiveDays:       activity.ActiveDays,
		CurrentStreak:    activity.CurrentStreak,
	}
	if !activity.LastActive.IsZero() {
		last := activity.LastActive
		stats.LastActive = &last
	}
	return stats, nil
}

type periodFigures struct {
	revenue        decimal.Decimal
	enrollments    int
	completionRate int
}

func (s *Service) figuresFor(ctx context.Context, courses map[string]recordsdomain.Course, courseIDs []string, res timewindow.Resolution) (periodFigures, error) {
	figures := periodFigures{revenue: decimal.Zero}
	if courses == nil {
		return figures, nil
	}

	txs, err := s.fetchTransactions(ctx, courseIDs, res.FetchWindow())
	if err != nil {
		return periodFigures{}, err
	}
	enrollments, err := s.fetcher.FetchEnrollments(ctx, courseIDs, res.FetchWindow())
	if err != nil {
		return periodFigures{}, s.fetchFailed(ctx, "enrollments", err)
	}

	agg := engine.AggregateRevenue(engine.RevenueInput{Transactions: txs, Courses: courses}, res.Buckets, engine.GroupByNone)
	counted := engine.CountEnrollments(enrollments, res.Buckets)
	s.recordFold(ctx, opOverview, agg.Count+counted.Total, agg.Skipped+counted.Skipped, agg.OutOfRange+counted.OutOfRange)

	figures.revenue = agg.Total
	figures.enrollments = counted.Total
	figures.completionRate = engine.CompletionRate(enrollments).Rate
	return figures, nil
}

func (s *Service) completionFor(ctx context.Context, scope analyticsdomain.Scope, window *timewindow.Window) (engine.CompletionStats, error) {
	enrollments, err := s.enrollmentsFor(ctx, scope, window)
	if err != nil {
		return engine.CompletionStats{}, err
	}
	stats := engine.CompletionRate(enrollments)
	if stats.Inconsistent > 0 {
		obslogger.WithContext(ctx, s.log).Debug("enrollments with completed flag disagreeing with progress",
			zap.Int("inconsistent", stats.Inconsistent),
			zap.Int("total", stats.Total),
		)
	}
	s.recordFold(ctx, opCompletion, stats.Total, stats.Skipped, 0)
	return stats, nil
}

func (s *Service) enrollmentsFor(ctx context.Context, scope analyticsdomain.Scope, window *timewindow.Window) ([]recordsdomain.Enrollment, error) {
	courses, courseIDs, err := s.loadScope(ctx, scope)
	if err != nil || courses == nil {
		return nil, err
	}
	enrollments, err := s.fetcher.FetchEnrollments(ctx, courseIDs, window)
	if err != nil {
		return nil, s.fetchFailed(ctx, "enrollments", err)
	}
	return enrollments, nil
}

// loadScope resolves a scope to its courses. A nil map means the scope holds
// no courses and nothing else should be fetched. courseIDs is nil for the
// all-courses scope so the store applies no course filter.
func (s *Service) loadScope(ctx context.Context, scope analyticsdomain.Scope) (map[string]recordsdomain.Course, []string, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}

	list, err := s.fetcher.FetchCourses(ctx, recordsdomain.CourseQuery{
		IDs:          scope.CourseIDs,
		InstructorID: strings.TrimSpace(scope.InstructorID),
		All:          scope.All,
	})
	if err != nil {
		return nil, nil, s.fetchFailed(ctx, "courses", err)
	}
	if len(list) == 0 {
		obslogger.WithScope(obslogger.WithContext(ctx, s.log), scope.InstructorID, scope.CourseIDs, scope.All).
			Debug("scope resolved to no courses")
		return nil, nil, nil
	}

	courses := make(map[string]recordsdomain.Course, len(list))
	var ids []string
	for _, c := range list {
		courses[c.ID] = c
		if !scope.All {
			ids = append(ids, c.ID)
		}
	}
	return courses, ids, nil
}

func (s *Service) fetchTransactions(ctx context.Context, courseIDs []string, window *timewindow.Window) ([]recordsdomain.Transaction, error) {
	txs, err := s.fetcher.FetchTransactions(ctx, courseIDs, window, recordsdomain.RealizedStatuses)
	if err != nil {
		return nil, s.fetchFailed(ctx, "transactions", err)
	}
	return txs, nil
}

func (s *Service) resolve(period timewindow.Period, rng *timewindow.Range) (timewindow.Resolution, error) {
	if period == "" {
		return timewindow.Resolution{}, timewindow.ErrInvalidPeriod
	}
	return s.resolver.Resolve(period, s.clock.Now(), rng)
}

// targetCurrency answers unsupported or empty codes with the base currency.
func (s *Service) targetCurrency(ctx context.Context, requested string) (string, bool) {
	base := s.currency.Base()
	requested = strings.ToUpper(strings.TrimSpace(requested))
	if requested == "" {
		return base, false
	}
	if !s.currency.Supports(requested) {
		obslogger.WithContext(ctx, s.log).Debug("unsupported currency, answering in base",
			zap.String("requested", requested),
			zap.String("base", base),
		)
		s.metrics.IncCurrencyFallback(requested)
		return base, true
	}
	return requested, false
}

func (s *Service) converter(target string) func(decimal.Decimal) decimal.Decimal {
	base := s.currency.Base()
	return func(amount decimal.Decimal) decimal.Decimal {
		converted, err := s.currency.Convert(amount, base, target)
		if err != nil {
			// target was checked by targetCurrency; a reload can still drop it.
			s.log.Warn("currency conversion failed, keeping base amount", zap.String("currency", target), zap.Error(err))
			return amount.Round(2)
		}
		return converted.Round(2)
	}
}

func (s *Service) fetchFailed(ctx context.Context, source string, err error) error {
	s.metrics.IncFetchError(source, err)
	obslogger.WithContext(ctx, s.log).Warn("record fetch failed", zap.String("source", source), zap.Error(err))
	if errors.Is(err, recordsdomain.ErrDataUnavailable) {
		return err
	}
	return fmt.Errorf("fetch %s: %w: %w", source, recordsdomain.ErrDataUnavailable, err)
}

func (s *Service) recordFold(ctx context.Context, operation string, counted, skipped, outOfRange int) {
	s.metrics.AddAggregated(operation, counted)
	s.metrics.AddSkipped(operation, metrics.SkipReasonInvalidRecord, skipped)
	s.metrics.AddSkipped(operation, metrics.SkipReasonOutOfRange, outOfRange)
	if skipped > 0 {
		obslogger.WithContext(ctx, s.log).Debug("skipped malformed records",
			zap.String("operation", operation),
			zap.Int("skipped", skipped),
		)
	}
}

// begin opens a span and returns the function that closes it and records metrics.
func (s *Service) begin(ctx context.Context, operation string, period timewindow.Period) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "analytics."+operation, trace.WithAttributes(
		attribute.String("analytics.operation", operation),
		attribute.String("analytics.period", string(period)),
	))
	s.counters.RecordAnalyticsRequest(ctx, operation, string(period))

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, operation+" failed")
		}
		span.End()
		s.metrics.ObserveComputation(operation, string(period), time.Since(start), err)
	}
}

func sumPoints(series []engine.Point) decimal.Decimal {
	total := decimal.Zero
	for _, p := range series {
		total = total.Add(p.Value)
	}
	return total
}
