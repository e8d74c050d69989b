package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/coursepulse/internal/timewindow"
)

var ErrDataUnavailable = errors.New("data_unavailable")

type LessonProgressQuery struct {
	StudentIDs []string
	CourseIDs  []string
}

// CourseQuery selects courses by id, by instructor, or all of them.
type CourseQuery struct {
	IDs          []string
	InstructorID string
	All          bool
}

func (q CourseQuery) IsEmpty() bool {
	return len(q.IDs) == 0 && q.InstructorID == "" && !q.All
}

// Fetcher reads raw records from the platform store. A nil window applies no
// time filter. An empty id slice applies no filter on that column. Store
// failures wrap ErrDataUnavailable.
//
//go:generate mockgen -destination=../mock/fetcher_mock.go -package=mock github.com/smallbiznis/coursepulse/internal/records/domain Fetcher
type Fetcher interface {
	FetchEnrollments(ctx context.Context, courseIDs []string, window *timewindow.Window) ([]Enrollment, error)
	FetchStudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
	FetchLessonProgress(ctx context.Context, query LessonProgressQuery, window *timewindow.Window) ([]LessonProgress, error)
	FetchTransactions(ctx context.Context, courseIDs []string, window *timewindow.Window, statuses []string) ([]Transaction, error)
	FetchCourses(ctx context.Context, query CourseQuery) ([]Course, error)
	FetchLessonCounts(ctx context.Context, courseIDs []string) (map[string]int, error)
}
