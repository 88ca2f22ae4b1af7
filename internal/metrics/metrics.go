// Package metrics exports engine lifecycle events and provider calls as
// Prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/provider"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the weave_* metric families.
type Collector struct {
	steps         *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	loops         *prometheus.CounterVec
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_steps_total",
				Help: "Executed steps by type and outcome",
			},
			[]string{"step_type", "outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weave_step_duration_seconds",
				Help:    "Duration of step execution including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step_type"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_step_retries_total",
				Help: "Retry attempts by step id",
			},
			[]string{"step_id"},
		),
		loops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_loop_iterations_total",
				Help: "Backward jumps by loop head",
			},
			[]string{"head_step_id"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_provider_queries_total",
				Help: "Provider queries by outcome",
			},
			[]string{"outcome"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "weave_provider_query_duration_seconds",
				Help:    "Duration of provider queries",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
	}
	for _, col := range []prometheus.Collector{c.steps, c.stepDuration, c.retries, c.loops, c.queries, c.queryDuration} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hooks returns lifecycle hooks recording step, retry and loop events.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			c.steps.WithLabelValues(e.StepType, Outcome(e.Err)).Inc()
			c.stepDuration.WithLabelValues(e.StepType).Observe(e.Duration.Seconds())
		},
		OnRetry: func(_ context.Context, e *domain.RetryEvent) {
			c.retries.WithLabelValues(e.StepID).Inc()
		},
		OnLoop: func(_ context.Context, e *domain.LoopEvent) {
			c.loops.WithLabelValues(e.HeadStepID).Inc()
		},
	}
}

// Provider returns middleware counting and timing provider queries.
func (c *Collector) Provider() provider.Middleware {
	return func(next ports.Provider) ports.Provider {
		return ports.ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			out, err := next.Query(ctx, prompt)
			c.queryDuration.Observe(time.Since(start).Seconds())
			c.queries.WithLabelValues(Outcome(err)).Inc()
			return out, err
		})
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Router returns a chi router serving g at /metrics. Callers may mount
// further handlers on it.
func Router(g prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", Handler(g))
	return r
}

// Outcome labels an error by its class.
func Outcome(err error) string {
	switch domain.Classify(err) {
	case nil:
		return "ok"
	case domain.ErrProtocolFormat:
		return "protocol_format"
	case domain.ErrInputInvalid:
		return "input_invalid"
	case domain.ErrSystem:
		return "system"
	default:
		return "resource_unavailable"
	}
}
