package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/coursepulse/internal/analytics/engine"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
)

var (
	ErrInvalidScope   = errors.New("invalid_scope")
	ErrInvalidRequest = errors.New("invalid_request")
)

// Scope selects the courses a computation covers: every course, one
// instructor's courses, or an explicit list (optionally limited to an instructor).
type Scope struct {
	InstructorID string
	CourseIDs    []string
	All          bool
}

func (s Scope) Validate() error {
	hasFilter := strings.TrimSpace(s.InstructorID) != "" || len(s.CourseIDs) > 0
	switch {
	case s.All && hasFilter:
		return ErrInvalidScope
	case !s.All && !hasFilter:
		return ErrInvalidScope
	}
	for _, id := range s.CourseIDs {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidScope
		}
	}
	return nil
}

// Key is a stable representation used to coalesce identical requests.
func (s Scope) Key() string {
	if s.All {
		return "all"
	}
	ids := append([]string(nil), s.CourseIDs...)
	sort.Strings(ids)
	return "instructor=" + strings.TrimSpace(s.InstructorID) + ";courses=" + strings.Join(ids, ",")
}

type RevenueRequest struct {
	Scope    Scope
	Period   timewindow.Period
	Range    *timewindow.Range
	Currency string
	GroupBy  engine.GroupBy
}

type RevenueReport struct {
	Period           timewindow.Period       `json:"period"`
	WindowStart      time.Time               `json:"window_start"`
	WindowEnd        time.Time               `json:"window_end"`
	Currency         string                  `json:"currency"`
	CurrencyFallback bool                    `json:"currency_fallback"`
	Total            decimal.Decimal         `json:"total"`
	Series           []engine.Point          `json:"series"`
	ByMethod         *engine.Breakdown       `json:"by_method"`
	GroupBy          engine.GroupBy          `json:"group_by,omitempty"`
	Breakdown        *engine.Breakdown       `json:"breakdown,omitempty"`
	BreakdownEntries []engine.BreakdownEntry `json:"breakdown_entries,omitempty"`
	Count            int                     `json:"count"`
	Skipped          int                     `json:"skipped"`
	OutOfRange       int                     `json:"out_of_range"`
	Normalized       int                     `json:"normalized"`
}

type CompletionRequest struct {
	Scope  Scope
	Period timewindow.Period
	Range  *timewindow.Range
}

type CompletionReport struct {
	Period         timewindow.Period `json:"period"`
	Rate           int               `json:"rate"`
	CompletedCount int               `json:"completed_count"`
	TotalCount     int               `json:"total_count"`
	Inconsistent   int               `json:"inconsistent"`
	Skipped        int               `json:"skipped"`
}

type CourseProgress struct {
	StudentID        string `json:"student_id"`
	CourseID         string `json:"course_id"`
	ProgressPercent  int    `json:"progress_percent"`
	CompletedLessons int    `json:"completed_lessons"`
	TotalLessons     int    `json:"total_lessons"`
}

type EnrollmentRequest struct {
	Scope  Scope
	Period timewindow.Period
	Range  *timewindow.Range
}

type EnrollmentReport struct {
	Period     timewindow.Period   `json:"period"`
	Total      int                 `json:"total"`
	Series     []engine.CountPoint `json:"series"`
	Skipped    int                 `json:"skipped"`
	OutOfRange int                 `json:"out_of_range"`
}

type OverviewRequest struct {
	Scope    Scope
	Period   timewindow.Period
	Range    *timewindow.Range
	Currency string
}

type AmountComparison struct {
	Current  decimal.Decimal    `json:"current"`
	Previous decimal.Decimal    `json:"previous"`
	Delta    engine.PeriodDelta `json:"delta"`
}

type CountComparison struct {
	Current  int                `json:"current"`
	Previous int                `json:"previous"`
	Delta    engine.PeriodDelta `json:"delta"`
}

type OverviewReport struct {
	Period           timewindow.Period `json:"period"`
	Currency         string            `json:"currency"`
	CurrencyFallback bool              `json:"currency_fallback"`
	HasPrevious      bool              `json:"has_previous"`
	Courses          int               `json:"courses"`
	Revenue          AmountComparison  `json:"revenue"`
	Enrollments      CountComparison   `json:"enrollments"`
	CompletionRate   CountComparison   `json:"completion_rate"`
}

type StudentStats struct {
	StudentID        string     `json:"student_id"`
	EnrolledCourses  int        `json:"enrolled_courses"`
	CompletedCourses int        `json:"completed_courses"`
	AverageProgress  int        `json:"average_progress"`
	LessonsCompleted int        `json:"lessons_completed"`
	ActiveDays       int        `json:"active_days"`
	CurrentStreak    int        `json:"current_streak"`
	LastActive       *time.Time `json:"last_active,omitempty"`
}

type Service interface {
	ComputeRevenue(ctx context.Context, req RevenueRequest) (RevenueReport, error)
	ComputeCompletion(ctx context.Context, req CompletionRequest) (CompletionReport, error)
	ComputeCourseProgress(ctx context.Context, studentID, courseID string) (CourseProgress, error)
	ComputePeriodDelta(series []decimal.Decimal) engine.PeriodDelta
	ComputeEnrollments(ctx context.Context, req EnrollmentRequest) (EnrollmentReport, error)
	ComputeOverview(ctx context.Context, req OverviewRequest) (OverviewReport, error)
	ComputeStudentStats(ctx context.Context, studentID string) (StudentStats, error)
}
