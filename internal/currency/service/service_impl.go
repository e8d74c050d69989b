package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/coursepulse/internal/config"
	"github.com/smallbiznis/coursepulse/internal/currency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Holder *config.CurrencyConfigHolder
	Log    *zap.Logger
}

type Service struct {
	holder *config.CurrencyConfigHolder
	log    *zap.Logger
}

func NewService(p Params) domain.Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		holder: p.Holder,
		log:    log.Named("currency.service"),
	}
}

func (s *Service) Base() string {
	return s.holder.Get().Base
}

func (s *Service) Supports(code string) bool {
	_, ok := s.holder.Get().Rates[normalizeCode(code)]
	return ok
}

func (s *Service) Rate(code string) (decimal.Decimal, error) {
	return rateFor(s.holder.Get(), code)
}

// Convert rescales amount from one currency to another using a single snapshot
// of the rate table, so a concurrent reload cannot mix two tables.
func (s *Service) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	cfg := s.holder.Get()

	from, to = normalizeCode(from), normalizeCode(to)
	fromRate, err := rateFor(cfg, from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := rateFor(cfg, to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return amount, nil
	}

	return amount.Div(fromRate).Mul(toRate), nil
}

func rateFor(cfg config.CurrencyConfig, code string) (decimal.Decimal, error) {
	code = normalizeCode(code)
	rate, ok := cfg.Rates[code]
	if !ok || rate <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrUnsupportedCurrency, code)
	}
	return decimal.NewFromFloat(rate), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
