package engine

import (
	"sort"
	"strings"

	"github.com/smallbiznis/coursepulse/internal/records/domain"
)

// CompletionStats summarizes enrollments. An enrollment counts as completed
// when its flag is set or its progress reached 100. Inconsistent counts rows
// where the flag and the progress disagree.
type CompletionStats struct {
	Rate         int
	Completed    int
	Total        int
	Inconsistent int
	Skipped      int
}

func IsCompleted(e domain.Enrollment) bool {
	return e.Completed || e.Progress >= 100
}

func EffectiveProgress(e domain.Enrollment) int {
	switch {
	case IsCompleted(e):
		return 100
	case e.Progress < 0:
		return 0
	default:
		return e.Progress
	}
}

func CompletionRate(enrollments []domain.Enrollment) CompletionStats {
	var stats CompletionStats
	for _, e := range enrollments {
		if strings.TrimSpace(e.StudentID) == "" || strings.TrimSpace(e.CourseID) == "" {
			stats.Skipped++
			continue
		}
		stats.Total++
		if IsCompleted(e) {
			stats.Completed++
		}
		if e.Completed != (e.Progress >= 100) {
			stats.Inconsistent++
		}
	}
	stats.Rate = percent(stats.Completed, stats.Total)
	return stats
}

// AverageProgress is the rounded mean effective progress, 0 for no enrollments.
func AverageProgress(enrollments []domain.Enrollment) int {
	sum, n := 0, 0
	for _, e := range enrollments {
		if strings.TrimSpace(e.CourseID) == "" {
			continue
		}
		sum += EffectiveProgress(e)
		n++
	}
	return percent(sum, n*100)
}

type LessonStats struct {
	Percent   int
	Completed int
	Total     int
}

// LessonCompletion computes one student's lesson progress in one course. The
// denominator is the larger of lessonCount and the distinct lessons seen.
func LessonCompletion(progress []domain.LessonProgress, studentID, courseID string, lessonCount int) LessonStats {
	seen := make(map[string]bool)
	for _, p := range progress {
		if p.StudentID != studentID || p.CourseID != courseID || strings.TrimSpace(p.LessonID) == "" {
			continue
		}
		seen[p.LessonID] = seen[p.LessonID] || p.Completed
	}

	stats := LessonStats{Total: lessonCount}
	if len(seen) > stats.Total {
		stats.Total = len(seen)
	}
	for _, done := range seen {
		if done {
			stats.Completed++
		}
	}
	stats.Percent = percent(stats.Completed, stats.Total)
	return stats
}

// CompletedLessons counts distinct completed (course, lesson) pairs.
func CompletedLessons(progress []domain.LessonProgress) int {
	done := make(map[[2]string]struct{})
	for _, p := range progress {
		if p.Completed && p.LessonID != "" {
			done[[2]string{p.CourseID, p.LessonID}] = struct{}{}
		}
	}
	return len(done)
}

// CourseIDs returns the distinct course ids of enrollments in sorted order.
func CourseIDs(enrollments []domain.Enrollment) []string {
	set := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		if e.CourseID != "" {
			set[e.CourseID] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CompletedCourses counts distinct courses with at least one completed enrollment.
func CompletedCourses(enrollments []domain.Enrollment) int {
	set := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		if e.CourseID != "" && IsCompleted(e) {
			set[e.CourseID] = struct{}{}
		}
	}
	return len(set)
}
