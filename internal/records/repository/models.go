package repository

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/coursepulse/internal/records/domain"
	"gorm.io/datatypes"
)

// CourseRow maps the courses table.
type CourseRow struct {
	ID              string              `gorm:"primaryKey;type:varchar(64)"`
	InstructorID    string              `gorm:"type:varchar(64);index;not null"`
	Title           string              `gorm:"type:varchar(255);not null"`
	Slug            string              `gorm:"type:varchar(255)"`
	Price           decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	DiscountedPrice decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	CreatedAt       time.Time           `gorm:"not null"`
}

func (CourseRow) TableName() string { return "courses" }

type LessonRow struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	CourseID string       `gorm:"type:varchar(64);index;not null"`
	Position int          `gorm:"not null"`
	Title    string       `gorm:"type:varchar(255);not null"`
}

func (LessonRow) TableName() string { return "lessons" }

type EnrollmentRow struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	StudentID  string       `gorm:"type:varchar(64);index;not null"`
	CourseID   string       `gorm:"type:varchar(64);index;not null"`
	EnrolledAt time.Time    `gorm:"index;not null"`
	Progress   int          `gorm:"not null;default:0"`
	Completed  bool         `gorm:"not null;default:false"`
}

func (EnrollmentRow) TableName() string { return "enrollments" }

type LessonProgressRow struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	StudentID    string       `gorm:"type:varchar(64);index;not null"`
	CourseID     string       `gorm:"type:varchar(64);index;not null"`
	LessonID     string       `gorm:"type:varchar(64);not null"`
	Completed    bool         `gorm:"not null;default:false"`
	LastAccessed time.Time    `gorm:"index;not null"`
}

func (LessonProgressRow) TableName() string { return "lesson_progress" }

type TransactionRow struct {
	ID            snowflake.ID        `gorm:"primaryKey"`
	UserID        string              `gorm:"type:varchar(64);index;not null"`
	CourseID      string              `gorm:"type:varchar(64);index;not null"`
	Amount        decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	CurrencyHint  string              `gorm:"type:varchar(8)"`
	Status        string              `gorm:"type:varchar(32);index;not null"`
	PaymentMethod *string             `gorm:"type:varchar(64)"`
	Metadata      datatypes.JSONMap
	CreatedAt     time.Time           `gorm:"index;not null"`
}

func (TransactionRow) TableName() string { return "transactions" }

// Models lists every row type, in dependency order, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&CourseRow{},
		&LessonRow{},
		&EnrollmentRow{},
		&LessonProgressRow{},
		&TransactionRow{},
	}
}

func (r CourseRow) toDomain() domain.Course {
	return domain.Course{
		ID:              r.ID,
		InstructorID:    r.InstructorID,
		Title:           r.Title,
		Slug:            r.Slug,
		Price:           r.Price,
		DiscountedPrice: r.DiscountedPrice,
	}
}

func (r EnrollmentRow) toDomain() domain.Enrollment {
	return domain.Enrollment{
		StudentID:  r.StudentID,
		CourseID:   r.CourseID,
		EnrolledAt: r.EnrolledAt.UTC(),
		Progress:   r.Progress,
		Completed:  r.Completed,
	}
}

func (r LessonProgressRow) toDomain() domain.LessonProgress {
	return domain.LessonProgress{
		StudentID:    r.StudentID,
		CourseID:     r.CourseID,
		LessonID:     r.LessonID,
		Completed:    r.Completed,
		LastAccessed: r.LastAccessed.UTC(),
	}
}

func (r TransactionRow) toDomain() domain.Transaction {
	method := ""
	if r.PaymentMethod != nil {
		method = *r.PaymentMethod
	}
	var metadata map[string]interface{}
	if len(r.Metadata) > 0 {
		metadata = map[string]interface{}(r.Metadata)
	}
	return domain.Transaction{
		ID:            r.ID.String(),
		UserID:        r.UserID,
		CourseID:      r.CourseID,
		Amount:        r.Amount,
		CurrencyHint:  r.CurrencyHint,
		Status:        r.Status,
		PaymentMethod: method,
		Metadata:      metadata,
		CreatedAt:     r.CreatedAt.UTC(),
	}
}
