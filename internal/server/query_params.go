package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/coursepulse/internal/analytics/domain"
	"github.com/smallbiznis/coursepulse/internal/analytics/engine"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
)

const (
	dateOnlyLayout = "2006-01-02"
	defaultPeriod  = timewindow.PeriodMonth
)

type windowQuery struct {
	Period string `form:"period"`
	From   string `form:"from"`
	To     string `form:"to"`
}

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseScope reads instructor_id, repeated course_id and all from the query.
func parseScope(c *gin.Context) (analyticsdomain.Scope, error) {
	all, err := parseOptionalBool(c.Query("all"))
	if err != nil {
		return analyticsdomain.Scope{}, newValidationError("all", "invalid_all", "all must be a boolean")
	}

	var courseIDs []string
	for _, raw := range c.QueryArray("course_id") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				courseIDs = append(courseIDs, id)
			}
		}
	}

	return analyticsdomain.Scope{
		InstructorID: strings.TrimSpace(c.Query("instructor_id")),
		CourseIDs:    courseIDs,
		All:          all != nil && *all,
	}, nil
}

// parseWindow resolves the period and the optional custom range. A range
// without a period implies custom. Date-only bounds are read in loc, and a
// date-only "to" includes that whole day.
func parseWindow(c *gin.Context, loc *time.Location) (timewindow.Period, *timewindow.Range, error) {
	var query windowQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return "", nil, ErrInvalidRequest
	}

	from, err := parseOptionalTime(query.From, false, loc)
	if err != nil {
		return "", nil, newValidationError("from", "invalid_from", "from must be RFC3339 or YYYY-MM-DD")
	}
	to, err := parseOptionalTime(query.To, true, loc)
	if err != nil {
		return "", nil, newValidationError("to", "invalid_to", "to must be RFC3339 or YYYY-MM-DD")
	}

	rawPeriod := strings.TrimSpace(query.Period)
	if rawPeriod == "" {
		if from != nil || to != nil {
			rawPeriod = string(timewindow.PeriodCustom)
		} else {
			rawPeriod = string(defaultPeriod)
		}
	}
	period, err := timewindow.ParsePeriod(rawPeriod)
	if err != nil {
		return "", nil, err
	}

	if period != timewindow.PeriodCustom {
		return period, nil, nil
	}
	if from == nil || to == nil {
		return "", nil, timewindow.ErrInvalidRange
	}
	return period, &timewindow.Range{From: *from, To: *to}, nil
}

func parseOptionalTime(value string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, loc)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		parsed = parsed.AddDate(0, 0, 1)
	}
	return &parsed, nil
}

func parseGroupBy(c *gin.Context) (engine.GroupBy, error) {
	return engine.ParseGroupBy(c.Query("group_by"))
}

func scopeKey(c *gin.Context) string {
	scope, err := parseScope(c)
	if err != nil {
		return "invalid"
	}
	return scope.Key()
}

func studentKey(c *gin.Context) string {
	return "student=" + strings.TrimSpace(c.Param("student_id"))
}
