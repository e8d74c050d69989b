package engine

import (
	"strings"

	"github.com/smallbiznis/coursepulse/internal/records/domain"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
)

// CountEnrollments buckets enrollments by enrollment date.
func CountEnrollments(enrollments []domain.Enrollment, buckets []timewindow.Bucket) CountResult {
	result := CountResult{Series: make([]CountPoint, len(buckets))}
	for i, b := range buckets {
		result.Series[i] = CountPoint{Label: b.Label, Start: b.Start, End: b.End}
	}

	for _, e := range enrollments {
		if strings.TrimSpace(e.CourseID) == "" || e.EnrolledAt.IsZero() {
			result.Skipped++
			continue
		}
		idx := timewindow.Locate(buckets, e.EnrolledAt)
		if idx < 0 {
			result.OutOfRange++
			continue
		}
		result.Series[idx].Value++
		result.Total++
	}
	return result
}
