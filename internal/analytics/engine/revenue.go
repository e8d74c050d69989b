package engine

import (
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/coursepulse/internal/records/domain"
	"github.com/smallbiznis/coursepulse/internal/timewindow"
)

const unknownKey = "unknown"

// RevenueInput is the raw material for a revenue fold. Courses is keyed by
// course id and is used for amount normalization and breakdown labels.
type RevenueInput struct {
	Transactions []domain.Transaction
	Courses      map[string]domain.Course
}

// AggregateRevenue folds realized transactions into buckets. Records that are
// malformed are counted in Skipped; records outside every bucket in OutOfRange.
// The input is never modified.
func AggregateRevenue(in RevenueInput, buckets []timewindow.Bucket, groupBy GroupBy) AggregationResult {
	result := AggregationResult{Series: emptySeries(buckets)}
	keys := newKeyResolver(groupBy, in.Courses)
	if groupBy != GroupByNone {
		result.Breakdown = NewBreakdown()
	}

	for _, tx := range in.Transactions {
		amount, idx, outcome := placeTransaction(tx, in.Courses, buckets)
		switch outcome {
		case outcomeSkipped:
			result.Skipped++
			continue
		case outcomeExcluded:
			continue
		case outcomeOutOfRange:
			result.OutOfRange++
			continue
		case outcomeNormalized:
			result.Normalized++
		}

		result.Series[idx].Value = result.Series[idx].Value.Add(amount)
		result.Count++
		if result.Breakdown != nil {
			key, label := keys.resolve(tx)
			result.Breakdown.Add(key, label, amount)
		}
	}

	result.Total = sumSeries(result.Series)
	return result
}

// BreakdownRevenue groups the same transactions AggregateRevenue would count.
func BreakdownRevenue(in RevenueInput, buckets []timewindow.Bucket, groupBy GroupBy) *Breakdown {
	if groupBy == GroupByNone {
		return NewBreakdown()
	}
	return AggregateRevenue(in, buckets, groupBy).Breakdown
}

type placement int

const (
	outcomeCounted placement = iota
	outcomeNormalized
	outcomeExcluded
	outcomeSkipped
	outcomeOutOfRange
)

func placeTransaction(tx domain.Transaction, courses map[string]domain.Course, buckets []timewindow.Bucket) (decimal.Decimal, int, placement) {
	if !domain.IsRealized(tx.Status) {
		return decimal.Zero, -1, outcomeExcluded
	}
	if strings.TrimSpace(tx.CourseID) == "" || tx.CreatedAt.IsZero() {
		return decimal.Zero, -1, outcomeSkipped
	}

	var course *domain.Course
	if c, ok := courses[tx.CourseID]; ok {
		course = &c
	}
	amount, normalized := normalizeAmount(tx, course)
	if normalized && course == nil {
		return decimal.Zero, -1, outcomeSkipped
	}

	idx := timewindow.Locate(buckets, tx.CreatedAt)
	if idx < 0 {
		return decimal.Zero, -1, outcomeOutOfRange
	}
	if normalized {
		return amount, idx, outcomeNormalized
	}
	return amount, idx, outcomeCounted
}

// keyResolver maps transactions to breakdown keys for one fold.
type keyResolver struct {
	groupBy  GroupBy
	courses  map[string]domain.Course
	byCourse map[string]string
	owners   map[string]string
}

func newKeyResolver(groupBy GroupBy, courses map[string]domain.Course) *keyResolver {
	return &keyResolver{
		groupBy:  groupBy,
		courses:  courses,
		byCourse: make(map[string]string),
		owners:   make(map[string]string),
	}
}

func (k *keyResolver) resolve(tx domain.Transaction) (string, string) {
	switch k.groupBy {
	case GroupByCourse:
		return k.courseKey(tx.CourseID)
	case GroupByPaymentMethod:
		method := PaymentMethod(tx)
		return method, method
	case GroupByCurrencyHint:
		hint := strings.ToUpper(strings.TrimSpace(tx.CurrencyHint))
		if hint == "" {
			hint = unknownKey
		}
		return hint, hint
	default:
		return unknownKey, unknownKey
	}
}

// courseKey prefers the stored slug and falls back to a slug of the title.
// Two courses never share a key.
func (k *keyResolver) courseKey(courseID string) (string, string) {
	course, ok := k.courses[courseID]
	if !ok {
		return courseID, courseID
	}
	label := course.Title
	if label == "" {
		label = courseID
	}
	if key, ok := k.byCourse[courseID]; ok {
		return key, label
	}

	key := strings.TrimSpace(course.Slug)
	if key == "" {
		key = slug.Make(course.Title)
	}
	if key == "" {
		key = courseID
	}
	if owner, taken := k.owners[key]; taken && owner != courseID {
		key = fmt.Sprintf("%s-%s", key, slug.Make(courseID))
	}
	k.owners[key] = courseID
	k.byCourse[courseID] = key
	return key, label
}

// PaymentMethod resolves the method from the column, then the gateway
// metadata, then "unknown".
func PaymentMethod(tx domain.Transaction) string {
	if method := strings.ToLower(strings.TrimSpace(tx.PaymentMethod)); method != "" {
		return method
	}
	if raw, ok := tx.Metadata["payment_method"]; ok {
		if method, ok := raw.(string); ok {
			if method = strings.ToLower(strings.TrimSpace(method)); method != "" {
				return method
			}
		}
	}
	return unknownKey
}
