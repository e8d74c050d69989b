package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending    = "pending"
	TransactionStatusCompleted  = "completed"
	TransactionStatusSuccessful = "successful"
	TransactionStatusFailed     = "failed"
)

// RealizedStatuses are the transaction statuses that count as revenue.
var RealizedStatuses = []string{TransactionStatusCompleted, TransactionStatusSuccessful}

// IsRealized reports whether status counts as revenue, ignoring case.
func IsRealized(status string) bool {
	status = strings.TrimSpace(status)
	for _, s := range RealizedStatuses {
		if strings.EqualFold(status, s) {
			return true
		}
	}
	return false
}

// Enrollment links a student to a course. Progress is 0..100.
type Enrollment struct {
	StudentID  string
	CourseID   string
	EnrolledAt time.Time
	Progress   int
	Completed  bool
}

// LessonProgress is one student's state on one lesson.
type LessonProgress struct {
	StudentID    string
	CourseID     string
	LessonID     string
	Completed    bool
	LastAccessed time.Time
}

// Transaction is a payment for a course. Amount is in the base currency and
// may be null or zero on records written by older checkout flows.
type Transaction struct {
	ID            string
	UserID        string
	CourseID      string
	Amount        decimal.NullDecimal
	CurrencyHint  string
	Status        string
	PaymentMethod string
	Metadata      map[string]interface{}
	CreatedAt     time.Time
}

// Course carries the catalog fields analytics needs.
type Course struct {
	ID              string
	InstructorID    string
	Title           string
	Slug            string
	Price           decimal.NullDecimal
	DiscountedPrice decimal.NullDecimal
}
