package memo

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver exports coordinator events as Prometheus metrics.
type PrometheusObserver struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver registers memo metrics under namespace on reg.
// Collectors already registered by an earlier observer are reused.
//
// Example: export metrics
//
//	obs, _ := memo.NewPrometheusObserver(prometheus.DefaultRegisterer, "app")
//	c := memo.New(memo.NewMemoryStore(ctx), memo.WithObserver(obs))
//	defer c.Close()
func NewPrometheusObserver(reg prometheus.Registerer, namespace string) (*PrometheusObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "memo",
		Name:      "operations_total",
		Help:      "Coordinator operations by op, driver and result.",
	}, []string{"op", "driver", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "memo",
		Name:      "operation_duration_seconds",
		Help:      "Coordinator operation latency in seconds.",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"op", "driver"})

	var err error
	if ops, err = registerCollector(reg, ops); err != nil {
		return nil, err
	}
	if duration, err = registerCollector(reg, duration); err != nil {
		return nil, err
	}
	return &PrometheusObserver{ops: ops, duration: duration}, nil
}

// OnCacheOp implements Observer.
func (o *PrometheusObserver) OnCacheOp(_ context.Context, op string, _ string, hit bool, err error, dur time.Duration, driver Driver) {
	o.ops.WithLabelValues(op, string(driver), resultLabel(hit, err)).Inc()
	o.duration.WithLabelValues(op, string(driver)).Observe(dur.Seconds())
}

func resultLabel(hit bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case hit:
		return "hit"
	default:
		return "miss"
	}
}

func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
