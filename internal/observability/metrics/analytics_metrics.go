package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	FetchErrorDeadlineExceeded = "deadline_exceeded"
	FetchErrorCanceled         = "canceled"
	FetchErrorConnection       = "connection"
	FetchErrorUndefinedTable   = "undefined_table"
	FetchErrorQueryCanceled    = "query_canceled"
	FetchErrorDB               = "db"
	FetchErrorUnknown          = "unknown"
)

const (
	SkipReasonOutOfRange     = "out_of_range"
	SkipReasonInvalidRecord  = "invalid_record"
	SkipReasonStatusExcluded = "status_excluded"
)

// AnalyticsMetrics captures aggregation health for the /metrics scrape endpoint.
type AnalyticsMetrics struct {
	computations      *prometheus.CounterVec
	computeDuration   *prometheus.HistogramVec
	recordsAggregated *prometheus.CounterVec
	recordsSkipped    *prometheus.CounterVec
	currencyFallbacks *prometheus.CounterVec
	fetchErrors       *prometheus.CounterVec
}

var (
	analyticsMetricsOnce sync.Once
	analyticsMetrics     *AnalyticsMetrics
)

// NewAnalyticsMetrics returns the process-wide collectors registered on the default registry.
func NewAnalyticsMetrics(cfg Config) *AnalyticsMetrics {
	analyticsMetricsOnce.Do(func() {
		analyticsMetrics = newAnalyticsMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return analyticsMetrics
}

func newAnalyticsMetrics(registerer prometheus.Registerer, cfg Config) *AnalyticsMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	m := &AnalyticsMetrics{
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "coursepulse_analytics_computations_total",
			Help:        "Analytics computations by operation, period and outcome.",
			ConstLabels: constLabels,
		}, []string{"operation", "period", "outcome"}),
		computeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "coursepulse_analytics_compute_duration_seconds",
			Help:        "Wall time of a full analytics computation including record fetches.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}, []string{"operation", "period"}),
		recordsAggregated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "coursepulse_analytics_records_aggregated_total",
			Help:        "Records that landed in a bucket.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "coursepulse_analytics_records_skipped_total",
			Help:        "Records excluded from aggregation by reason.",
			ConstLabels: constLabels,
		}, []string{"operation", "reason"}),
		currencyFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "coursepulse_currency_fallbacks_total",
			Help:        "Requests for unsupported currencies answered in the base currency.",
			ConstLabels: constLabels,
		}, []string{"currency"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "coursepulse_record_fetch_errors_total",
			Help:        "Record store failures by source and low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"source", "reason"}),
	}

	registerer.MustRegister(
		m.computations,
		m.computeDuration,
		m.recordsAggregated,
		m.recordsSkipped,
		m.currencyFallbacks,
		m.fetchErrors,
	)
	return m
}

func constLabelsFor(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "coursepulse"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{"service": serviceName, "env": environment}
}

// ObserveComputation records one finished computation. err decides the outcome label.
func (m *AnalyticsMetrics) ObserveComputation(operation, period string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.computations.WithLabelValues(operation, period, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	m.computeDuration.WithLabelValues(operation, period).Observe(duration.Seconds())
}

func (m *AnalyticsMetrics) AddAggregated(operation string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsAggregated.WithLabelValues(operation).Add(float64(count))
}

func (m *AnalyticsMetrics) AddSkipped(operation, reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.recordsSkipped.WithLabelValues(operation, reason).Add(float64(count))
}

func (m *AnalyticsMetrics) IncCurrencyFallback(currency string) {
	if m == nil {
		return
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		currency = "invalid"
	}
	m.currencyFallbacks.WithLabelValues(currency).Inc()
}

func (m *AnalyticsMetrics) IncFetchError(source string, err error) {
	if m == nil || err == nil {
		return
	}
	m.fetchErrors.WithLabelValues(source, ClassifyFetchError(err)).Inc()
}

// ClassifyFetchError maps a record store error to a metric reason.
func ClassifyFetchError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return FetchErrorDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return FetchErrorCanceled
	case hasPGCode(err, "42P01"):
		return FetchErrorUndefinedTable
	case hasPGCode(err, "57014"):
		return FetchErrorQueryCanceled
	case hasPGClass(err, "08"):
		return FetchErrorConnection
	case isDBError(err):
		return FetchErrorDB
	default:
		return FetchErrorUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func hasPGClass(err error, class string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, class)
}

func isDBError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField)
}
