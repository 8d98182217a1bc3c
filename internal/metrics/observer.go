// Package metrics exports recurrence engine and HTTP measurements to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jasonliu2000/reminders-backend/server/recurrence"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "reminders"

// Observer records range query latency, candidate fan-out and engine
// anomalies.
type Observer struct {
	queryDuration *promclient.HistogramVec
	candidates    promclient.Counter
	matched       promclient.Counter
	anomalies     *promclient.CounterVec
	requests      *promclient.CounterVec
}

// NewObserver registers the metrics on reg, or on the default registerer when
// reg is nil. Registering twice on the same registry reuses the existing
// collectors.
func NewObserver(namespace string, reg promclient.Registerer) (*Observer, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	o := &Observer{
		queryDuration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "range_query_duration_seconds",
			Help:      "Latency of occurs-in-range queries by outcome.",
			Buckets:   promclient.DefBuckets,
		}, []string{"outcome"}),
		candidates: promclient.NewCounter(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "range_query_candidates_total",
			Help:      "Reminders evaluated by the recurrence engine.",
		}),
		matched: promclient.NewCounter(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "range_query_matched_total",
			Help:      "Reminders found to occur in the queried range.",
		}),
		anomalies: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "recurrence_anomalies_total",
			Help:      "Stored reminders the engine could not evaluate, by reason.",
		}, []string{"reason"}),
		requests: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
	}

	var err error
	if o.queryDuration, err = register(reg, o.queryDuration); err != nil {
		return nil, fmt.Errorf("register range query histogram: %w", err)
	}
	if o.candidates, err = register(reg, o.candidates); err != nil {
		return nil, fmt.Errorf("register candidates counter: %w", err)
	}
	if o.matched, err = register(reg, o.matched); err != nil {
		return nil, fmt.Errorf("register matched counter: %w", err)
	}
	if o.anomalies, err = register(reg, o.anomalies); err != nil {
		return nil, fmt.Errorf("register anomaly counter: %w", err)
	}
	if o.requests, err = register(reg, o.requests); err != nil {
		return nil, fmt.Errorf("register request counter: %w", err)
	}
	return o, nil
}

func register[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are promclient.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

func (o *Observer) ObserveRangeQuery(outcome string, candidates, matched int, elapsed time.Duration) {
	if o == nil {
		return
	}
	o.queryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	o.candidates.Add(float64(candidates))
	o.matched.Add(float64(matched))
}

func (o *Observer) ObserveAnomaly(reason string) {
	if o == nil {
		return
	}
	o.anomalies.WithLabelValues(reason).Inc()
}

// InstrumentHandler counts requests served by next.
func (o *Observer) InstrumentHandler(next http.Handler) http.Handler {
	if o == nil {
		return next
	}
	return promhttp.InstrumentHandlerCounter(o.requests, next)
}

var _ recurrence.Observer = (*Observer)(nil)
