package engine

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/coursepulse/internal/records/domain"
)

// NormalizeAmount returns the transaction amount when it is positive, otherwise
// the course's discounted price, then its list price, then zero.
func NormalizeAmount(tx domain.Transaction, course *domain.Course) decimal.Decimal {
	amount, _ := normalizeAmount(tx, course)
	return amount
}

// normalizeAmount also reports whether a course price was substituted.
func normalizeAmount(tx domain.Transaction, course *domain.Course) (decimal.Decimal, bool) {
	if tx.Amount.Valid && tx.Amount.Decimal.IsPositive() {
		return tx.Amount.Decimal, false
	}
	if course == nil {
		return decimal.Zero, true
	}
	if course.DiscountedPrice.Valid {
		return course.DiscountedPrice.Decimal, true
	}
	if course.Price.Valid {
		return course.Price.Decimal, true
	}
	return decimal.Zero, true
}
