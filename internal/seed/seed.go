package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/coursepulse/internal/records/repository"
	store "github.com/smallbiznis/coursepulse/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAlreadySeeded = errors.New("already_seeded")

var demoCatalog = []struct {
	title      string
	price      int64
	discounted int64
	lessons    int
}{
	{"Go Fundamentals", 100, 80, 10},
	{"Practical SQL", 60, 0, 8},
	{"Distributed Systems in Practice", 150, 120, 12},
	{"Intro to Data Visualization", 0, 0, 6},
	{"Kubernetes for Developers", 90, 0, 9},
	{"Writing Technical Docs", 40, 30, 5},
}

var (
	paymentMethods = []string{"card", "bank_transfer", "wallet", "paypal"}
	currencyHints  = []string{"USD", "EUR", "INR", ""}
	statuses       = []string{"completed", "successful", "success", "pending", "failed", "refunded"}
	gateways       = []string{"stripe", "razorpay", "paystack"}
)

// Options controls the demo dataset. Seed makes runs reproducible.
type Options struct {
	Now         time.Time
	Instructors int
	Students    int
	Days        int
	Seed        int64
	Reset       bool
}

func DefaultOptions(now time.Time) Options {
	return Options{Now: now, Instructors: 2, Students: 60, Days: 400, Seed: 42}
}

type Summary struct {
	InstructorIDs  []string
	Courses        int
	Lessons        int
	Enrollments    int
	LessonProgress int
	Transactions   int
}

type seeder struct {
	rnd  *rand.Rand
	node *snowflake.Node
	opts Options
}

// Run writes a demo LMS dataset. It refuses to touch a non-empty courses
// table unless Reset is set.
func Run(ctx context.Context, db *gorm.DB, opts Options, log *zap.Logger) (Summary, error) {
	if db == nil {
		return Summary{}, errors.New("seed database handle is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Instructors <= 0 || opts.Students <= 0 || opts.Days <= 0 {
		return Summary{}, fmt.Errorf("seed options must be positive: %+v", opts)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return Summary{}, err
	}
	s := &seeder{rnd: rand.New(rand.NewSource(opts.Seed)), node: node, opts: opts}

	courses := store.ProvideStore[repository.CourseRow](db)
	lessons := store.ProvideStore[repository.LessonRow](db)
	enrollments := store.ProvideStore[repository.EnrollmentRow](db)
	progress := store.ProvideStore[repository.LessonProgressRow](db)
	transactions := store.ProvideStore[repository.TransactionRow](db)

	existing, err := courses.Count(ctx, &repository.CourseRow{})
	if err != nil {
		return Summary{}, err
	}
	if existing > 0 && !opts.Reset {
		return Summary{}, ErrAlreadySeeded
	}

	data := s.generate()

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Reset {
			if err := transactions.WithTrx(tx).DeleteAll(ctx); err != nil {
				return err
			}
			if err := progress.WithTrx(tx).DeleteAll(ctx); err != nil {
				return err
			}
			if err := enrollments.WithTrx(tx).DeleteAll(ctx); err != nil {
				return err
			}
			if err := lessons.WithTrx(tx).DeleteAll(ctx); err != nil {
				return err
			}
			if err := courses.WithTrx(tx).DeleteAll(ctx); err != nil {
				return err
			}
		}
		if err := courses.WithTrx(tx).BatchCreate(ctx, data.courses); err != nil {
			return fmt.Errorf("seed courses: %w", err)
		}
		if err := lessons.WithTrx(tx).BatchCreate(ctx, data.lessons); err != nil {
			return fmt.Errorf("seed lessons: %w", err)
		}
		if err := enrollments.WithTrx(tx).BatchCreate(ctx, data.enrollments); err != nil {
			return fmt.Errorf("seed enrollments: %w", err)
		}
		if err := progress.WithTrx(tx).BatchCreate(ctx, data.progress); err != nil {
			return fmt.Errorf("seed lesson progress: %w", err)
		}
		if err := transactions.WithTrx(tx).BatchCreate(ctx, data.transactions); err != nil {
			return fmt.Errorf("seed transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		InstructorIDs:  data.instructorIDs,
		Courses:        len(data.courses),
		Lessons:        len(data.lessons),
		Enrollments:    len(data.enrollments),
		LessonProgress: len(data.progress),
		Transactions:   len(data.transactions),
	}
	log.Info("demo data seeded",
		zap.Strings("instructor_ids", summary.InstructorIDs),
		zap.Int("courses", summary.Courses),
		zap.Int("enrollments", summary.Enrollments),
		zap.Int("transactions", summary.Transactions),
	)
	return summary, nil
}

type dataset struct {
	instructorIDs []string
	courses       []*repository.CourseRow
	lessons       []*repository.LessonRow
	enrollments   []*repository.EnrollmentRow
	progress      []*repository.LessonProgressRow
	transactions  []*repository.TransactionRow
}

func (s *seeder) generate() dataset {
	var data dataset
	for i := 0; i < s.opts.Instructors; i++ {
		data.instructorIDs = append(data.instructorIDs, s.uuid())
	}

	lessonIDs := make(map[string][]string)
	for i, item := range demoCatalog {
		course := &repository.CourseRow{
			ID:           s.uuid(),
			InstructorID: data.instructorIDs[i%len(data.instructorIDs)],
			Title:        item.title,
			Slug:         slug.Make(item.title),
			CreatedAt:    s.opts.Now.AddDate(0, 0, -s.opts.Days).UTC(),
		}
		if item.price > 0 {
			course.Price = decimal.NewNullDecimal(decimal.NewFromInt(item.price))
		}
		if item.discounted > 0 {
			course.DiscountedPrice = decimal.NewNullDecimal(decimal.NewFromInt(item.discounted))
		}
		data.courses = append(data.courses, course)

		for pos := 1; pos <= item.lessons; pos++ {
			lesson := &repository.LessonRow{
				ID:       s.node.Generate(),
				CourseID: course.ID,
				Position: pos,
				Title:    fmt.Sprintf("%s, part %d", item.title, pos),
			}
			data.lessons = append(data.lessons, lesson)
			lessonIDs[course.ID] = append(lessonIDs[course.ID], lesson.ID.String())
		}
	}

	for i := 0; i < s.opts.Students; i++ {
		studentID := s.uuid()
		for _, idx := range s.rnd.Perm(len(data.courses))[:1+s.rnd.Intn(3)] {
			course := data.courses[idx]
			enrolledAt := s.randomTime()
			lessonsDone := s.rnd.Intn(len(lessonIDs[course.ID]) + 1)
			progress := lessonsDone * 100 / len(lessonIDs[course.ID])

			data.enrollments = append(data.enrollments, &repository.EnrollmentRow{
				ID:         s.node.Generate(),
				StudentID:  studentID,
				CourseID:   course.ID,
				EnrolledAt: enrolledAt,
				Progress:   progress,
				// a few rows keep the flag out of step with progress
				Completed: progress == 100 && s.rnd.Intn(10) > 0,
			})
			data.progress = append(data.progress, s.lessonProgress(studentID, course.ID, lessonIDs[course.ID], lessonsDone, enrolledAt)...)
			data.transactions = append(data.transactions, s.purchase(studentID, course, enrolledAt))
		}
	}
	return data
}

func (s *seeder) lessonProgress(studentID, courseID string, lessons []string, done int, since time.Time) []*repository.LessonProgressRow {
	rows := make([]*repository.LessonProgressRow, 0, done+1)
	seen := done
	if seen < len(lessons) {
		seen++
	}
	for i := 0; i < seen; i++ {
		accessed := since.Add(time.Duration(s.rnd.Int63n(int64(s.opts.Now.Sub(since)) + 1)))
		rows = append(rows, &repository.LessonProgressRow{
			ID:           s.node.Generate(),
			StudentID:    studentID,
			CourseID:     courseID,
			LessonID:     lessons[i],
			Completed:    i < done,
			LastAccessed: accessed.UTC(),
		})
	}
	return rows
}

func (s *seeder) purchase(studentID string, course *repository.CourseRow, at time.Time) *repository.TransactionRow {
	method := paymentMethods[s.rnd.Intn(len(paymentMethods))]
	tx := &repository.TransactionRow{
		ID:           s.node.Generate(),
		UserID:       studentID,
		CourseID:     course.ID,
		CurrencyHint: currencyHints[s.rnd.Intn(len(currencyHints))],
		Status:       statuses[s.rnd.Intn(len(statuses))],
		Metadata: datatypes.JSONMap{
			"gateway":   gateways[s.rnd.Intn(len(gateways))],
			"reference": s.uuid(),
		},
		CreatedAt: at,
	}
	// some rows carry the method only in gateway metadata
	if s.rnd.Intn(4) == 0 {
		tx.Metadata["payment_method"] = method
	} else {
		tx.PaymentMethod = &method
	}

	switch n := s.rnd.Intn(10); {
	case n == 0:
		// amount left empty so the course price stands in
	case n == 1:
		tx.Amount = decimal.NewNullDecimal(decimal.Zero)
	default:
		price := course.DiscountedPrice
		if !price.Valid {
			price = course.Price
		}
		if price.Valid {
			tx.Amount = decimal.NewNullDecimal(price.Decimal)
		} else {
			tx.Amount = decimal.NewNullDecimal(decimal.Zero)
		}
	}
	return tx
}

func (s *seeder) randomTime() time.Time {
	offset := time.Duration(s.rnd.Int63n(int64(s.opts.Days) * int64(24*time.Hour)))
	return s.opts.Now.Add(-offset).UTC().Truncate(time.Second)
}

// uuid draws from the seeded source so datasets are reproducible.
func (s *seeder) uuid() string {
	id, err := uuid.NewRandomFromReader(s.rnd)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
