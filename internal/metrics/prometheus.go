// Package metrics provides Prometheus metrics for sitecontrol.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitecontrol"

// Metrics holds the registered Prometheus collectors.
type Metrics struct {
	LoadCounter     *prometheus.CounterVec
	SaveCounter     *prometheus.CounterVec
	UploadCounter   *prometheus.CounterVec
	SignInCounter   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FeedClients     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		LoadCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_loads_total",
			Help:      "Settings loads by the source that supplied the record.",
		}, []string{"source"}),
		SaveCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_saves_total",
			Help:      "Settings writes by target store and result.",
		}, []string{"target", "result"}),
		UploadCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_uploads_total",
			Help:      "Background image uploads by role and result.",
		}, []string{"role", "result"}),
		SignInCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_sign_ins_total",
			Help:      "Admin sign-in attempts by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		FeedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Connected settings stream clients.",
		}),
	}

	collectors := []prometheus.Collector{
		m.LoadCounter,
		m.SaveCounter,
		m.UploadCounter,
		m.SignInCounter,
		m.RequestDuration,
		m.FeedClients,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// RecordLoad counts a settings load served by source.
func (m *Metrics) RecordLoad(source string) {
	m.LoadCounter.WithLabelValues(source).Inc()
}

// RecordSave counts a write to target with the given result.
func (m *Metrics) RecordSave(target, result string) {
	m.SaveCounter.WithLabelValues(target, result).Inc()
}

// RecordUpload counts an asset upload.
func (m *Metrics) RecordUpload(role, result string) {
	m.UploadCounter.WithLabelValues(role, result).Inc()
}

// RecordSignIn counts an admin sign-in attempt.
func (m *Metrics) RecordSignIn(result string) {
	m.SignInCounter.WithLabelValues(result).Inc()
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

// SetFeedClients sets the number of connected stream clients.
func (m *Metrics) SetFeedClients(n int) {
	m.FeedClients.Set(float64(n))
}
