package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sumire/orgissues/internal/domain"
	"github.com/sumire/orgissues/internal/service"
)

const namespace = "orgissues"

// Metrics holds the HTTP and audit trail collectors.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActivityEntries *prometheus.CounterVec
}

// New creates the collectors. Register them with PrometheusCollectors.
func New() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request handling time",
			Buckets:   prometheus.ExponentialBuckets(1e-3, 4, 8),
		}, []string{"method", "route"}),

		ActivityEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "activity_entries_total",
			Help:      "Count of activity log rows appended, by action",
		}, []string{"action"}),
	}
}

// PrometheusCollectors returns every collector for registration.
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Requests,
		m.RequestDuration,
		m.ActivityEntries,
	}
}

// Middleware records request counts and latency. Errors are handed to the
// echo error handler first so the recorded status is the one sent.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.Requests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// InstrumentActivity wraps an ActivityStore so successful appends are counted.
func (m *Metrics) InstrumentActivity(store service.ActivityStore) service.ActivityStore {
	return &instrumentedActivity{ActivityStore: store, entries: m.ActivityEntries}
}

type instrumentedActivity struct {
	service.ActivityStore
	entries *prometheus.CounterVec
}

func (s *instrumentedActivity) Append(ctx context.Context, entry domain.ActivityLog) (*domain.ActivityLog, error) {
	stored, err := s.ActivityStore.Append(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.entries.WithLabelValues(string(entry.Action)).Inc()
	return stored, nil
}
