package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/coursepulse/internal/records/domain"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type repo struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewFetcher(p Params) domain.Fetcher {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &repo{db: p.DB, log: log.Named("records.repository")}
}

func (r *repo) FetchEnrollments(ctx context.Context, courseIDs []string, window *timewindow.Window) ([]domain.Enrollment, error) {
	var rows []EnrollmentRow
	stmt := r.db.WithContext(ctx).Model(&EnrollmentRow{})
	stmt = whereIn(stmt, "course_id", courseIDs)
	stmt = whereWindow(stmt, "enrolled_at", window)
	if err := stmt.Order("enrolled_at ASC").Find(&rows).Error; err != nil {
		return nil, unavailable("fetch enrollments", err)
	}

	out := make([]domain.Enrollment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) FetchStudentEnrollments(ctx context.Context, studentID string) ([]domain.Enrollment, error) {
	var rows []EnrollmentRow
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("enrolled_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("fetch student enrollments", err)
	}

	out := make([]domain.Enrollment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) FetchLessonProgress(ctx context.Context, query domain.LessonProgressQuery, window *timewindow.Window) ([]domain.LessonProgress, error) {
	var rows []LessonProgressRow
	stmt := r.db.WithContext(ctx).Model(&LessonProgressRow{})
	stmt = whereIn(stmt, "student_id", query.StudentIDs)
	stmt = whereIn(stmt, "course_id", query.CourseIDs)
	stmt = whereWindow(stmt, "last_accessed", window)
	if err := stmt.Order("last_accessed ASC").Find(&rows).Error; err != nil {
		return nil, unavailable("fetch lesson progress", err)
	}

	out := make([]domain.LessonProgress, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) FetchTransactions(ctx context.Context, courseIDs []string, window *timewindow.Window, statuses []string) ([]domain.Transaction, error) {
	var rows []TransactionRow
	stmt := r.db.WithContext(ctx).Model(&TransactionRow{})
	stmt = whereIn(stmt, "course_id", courseIDs)
	stmt = whereWindow(stmt, "created_at", window)
	if len(statuses) > 0 {
		lowered := make([]string, 0, len(statuses))
		for _, s := range statuses {
			lowered = append(lowered, strings.ToLower(strings.TrimSpace(s)))
		}
		stmt = stmt.Where("LOWER(status) IN ?", lowered)
	}
	if err := stmt.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, unavailable("fetch transactions", err)
	}

	out := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) FetchCourses(ctx context.Context, query domain.CourseQuery) ([]domain.Course, error) {
	if query.IsEmpty() {
		return []domain.Course{}, nil
	}

	var rows []CourseRow
	stmt := r.db.WithContext(ctx).Model(&CourseRow{})
	if !query.All {
		stmt = whereIn(stmt, "id", query.IDs)
		if id := strings.TrimSpace(query.InstructorID); id != "" {
			stmt = stmt.Where("instructor_id = ?", id)
		}
	}
	if err := stmt.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, unavailable("fetch courses", err)
	}

	out := make([]domain.Course, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type lessonCount struct {
	CourseID string
	Total    int
}

func (r *repo) FetchLessonCounts(ctx context.Context, courseIDs []string) (map[string]int, error) {
	var rows []lessonCount
	stmt := r.db.WithContext(ctx).Model(&LessonRow{}).Select("course_id, COUNT(*) AS total")
	stmt = whereIn(stmt, "course_id", courseIDs)
	if err := stmt.Group("course_id").Scan(&rows).Error; err != nil {
		return nil, unavailable("fetch lesson counts", err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.CourseID] = row.Total
	}
	return out, nil
}

func whereIn(stmt *gorm.DB, column string, values []string) *gorm.DB {
	if len(values) == 0 {
		return stmt
	}
	return stmt.Where(column+" IN ?", values)
}

func whereWindow(stmt *gorm.DB, column string, window *timewindow.Window) *gorm.DB {
	if window == nil || window.Unbounded {
		return stmt
	}
	return stmt.Where(column+" >= ? AND "+column+" < ?", window.Start.UTC(), window.End.UTC())
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrDataUnavailable, err)
}
