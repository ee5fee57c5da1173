package session

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics 会话级别的 Prometheus 指标
type metrics struct {
	duration *prometheus.HistogramVec
	size     *prometheus.GaugeVec
	loaded   *prometheus.CounterVec
	backend  string
}

func newMetrics(reg prometheus.Registerer, backend string) (*metrics, error) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bidindex",
		Name:      "operation_duration_seconds",
		Help:      "Latency of session operations.",
		Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
	}, []string{"backend", "op"})

	size := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bidindex",
		Name:      "records",
		Help:      "Number of records held by the backend.",
	}, []string{"backend"})

	loaded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bidindex",
		Name:      "load_rows_total",
		Help:      "Rows seen by Load, by outcome.",
	}, []string{"backend", "outcome"})

	m := &metrics{backend: backend}
	var err error
	if m.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if m.size, err = register(reg, size); err != nil {
		return nil, err
	}
	if m.loaded, err = register(reg, loaded); err != nil {
		return nil, err
	}
	return m, nil
}

// register 注册采集器；同名采集器已存在时复用已注册的那个
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

func (m *metrics) observe(op string, start time.Time) {
	m.duration.WithLabelValues(m.backend, op).Observe(time.Since(start).Seconds())
}

func (m *metrics) setSize(n int) {
	m.size.WithLabelValues(m.backend).Set(float64(n))
}

func (m *metrics) countLoad(outcome string, n int) {
	if n > 0 {
		m.loaded.WithLabelValues(m.backend, outcome).Add(float64(n))
	}
}
