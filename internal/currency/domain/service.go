package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedCurrency = errors.New("unsupported_currency")

// Service rescales amounts between configured currencies. Rates are expressed
// as units of a currency per one unit of the base currency.
type Service interface {
	Base() string
	Supports(code string) bool
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	Rate(code string) (decimal.Decimal, error)
}
