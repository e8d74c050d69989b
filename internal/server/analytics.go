package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	analyticsdomain "github.com/smallbiznis/coursepulse/internal/analytics/domain"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
)

type periodDeltaRequest struct {
	Series []decimal.Decimal `json:"series"`
}

func (s *Server) Revenue(c *gin.Context) {
	scope, period, rng, ok := s.readScopeAndWindow(c)
	if !ok {
		return
	}
	groupBy, err := parseGroupBy(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))

	key := requestKey("revenue", scope, period, rng, currency, string(groupBy))
	resp, err := s.shared(c.Request.Context(), key, func(ctx context.Context) (interface{}, error) {
		return s.analytics.ComputeRevenue(ctx, analyticsdomain.RevenueRequest{
			Scope:    scope,
			Period:   period,
			Range:    rng,
			Currency: currency,
			GroupBy:  groupBy,
		})
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Completion(c *gin.Context) {
	scope, period, rng, ok := s.readScopeAndWindow(c)
	if !ok {
		return
	}

	resp, err := s.shared(c.Request.Context(), requestKey("completion", scope, period, rng), func(ctx context.Context) (interface{}, error) {
		return s.analytics.ComputeCompletion(ctx, analyticsdomain.CompletionRequest{
			Scope:  scope,
			Period: period,
			Range:  rng,
		})
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Enrollments(c *gin.Context) {
	scope, period, rng, ok := s.readScopeAndWindow(c)
	if !ok {
		return
	}

	resp, err := s.shared(c.Request.Context(), requestKey("enrollments", scope, period, rng), func(ctx context.Context) (interface{}, error) {
		return s.analytics.ComputeEnrollments(ctx, analyticsdomain.EnrollmentRequest{
			Scope:  scope,
			Period: period,
			Range:  rng,
		})
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Overview(c *gin.Context) {
	scope, period, rng, ok := s.readScopeAndWindow(c)
	if !ok {
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))

	resp, err := s.shared(c.Request.Context(), requestKey("overview", scope, period, rng, currency), func(ctx context.Context) (interface{}, error) {
		return s.analytics.ComputeOverview(ctx, analyticsdomain.OverviewRequest{
			Scope:    scope,
			Period:   period,
			Range:    rng,
			Currency: currency,
		})
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CourseProgress(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("student_id"))
	courseID := strings.TrimSpace(c.Param("course_id"))

	resp, err := s.analytics.ComputeCourseProgress(c.Request.Context(), studentID, courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) StudentStats(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("student_id"))

	resp, err := s.shared(c.Request.Context(), "student_stats|"+studentID, func(ctx context.Context) (interface{}, error) {
		return s.analytics.ComputeStudentStats(ctx, studentID)
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PeriodDelta(c *gin.Context) {
	var req periodDeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("series", "invalid_series", "series must be a list of numbers"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.analytics.ComputePeriodDelta(req.Series)})
}

func (s *Server) readScopeAndWindow(c *gin.Context) (analyticsdomain.Scope, timewindow.Period, *timewindow.Range, bool) {
	scope, err := parseScope(c)
	if err != nil {
		AbortWithError(c, err)
		return analyticsdomain.Scope{}, "", nil, false
	}
	if err := scope.Validate(); err != nil {
		AbortWithError(c, err)
		return analyticsdomain.Scope{}, "", nil, false
	}
	period, rng, err := parseWindow(c, s.cfg.Analytics.Location())
	if err != nil {
		AbortWithError(c, err)
		return analyticsdomain.Scope{}, "", nil, false
	}
	return scope, period, rng, true
}

// shared runs fn once for concurrent callers with the same key. fn gets a
// context detached from any single caller's cancellation; each caller stops
// waiting when its own request ends.
func (s *Server) shared(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func requestKey(operation string, scope analyticsdomain.Scope, period timewindow.Period, rng *timewindow.Range, extra ...string) string {
	parts := []string{operation, scope.Key(), string(period)}
	if rng != nil {
		parts = append(parts, rng.From.UTC().Format(time.RFC3339Nano), rng.To.UTC().Format(time.RFC3339Nano))
	}
	parts = append(parts, extra...)
	return strings.Join(parts, "|")
}
