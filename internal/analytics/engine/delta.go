package engine

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type PeriodDelta struct {
	ChangePercent int  `json:"change_percent"`
	IsPositive    bool `json:"is_positive"`
}

// PercentChange is round(100*(current-previous)/previous). A zero previous
// value yields 100 when current grew and 0 otherwise.
func PercentChange(previous, current decimal.Decimal) int {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	return int(current.Sub(previous).Mul(hundred).Div(previous).Round(0).IntPart())
}

// Delta compares the last two points of series. Fewer than two points is no change.
func Delta(series []decimal.Decimal) PeriodDelta {
	if len(series) < 2 {
		return PeriodDelta{ChangePercent: 0, IsPositive: true}
	}
	change := PercentChange(series[len(series)-2], series[len(series)-1])
	return PeriodDelta{ChangePercent: change, IsPositive: change >= 0}
}

// DeltaCounts is Delta for integer series.
func DeltaCounts(previous, current int) PeriodDelta {
	return Delta([]decimal.Decimal{decimal.NewFromInt(int64(previous)), decimal.NewFromInt(int64(current))})
}
