// Package metrics exposes Prometheus instruments for alert runs, upstream
// fetches and push delivery. A nil *Metrics records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alertaid"

// Metrics groups the service instruments.
type Metrics struct {
	fetchAttempts *prometheus.CounterVec
	alertRuns     *prometheus.CounterVec
	pushSends     *prometheus.CounterVec
	tokens        prometheus.Gauge
	gatherer      prometheus.Gatherer
}

// New registers the instruments on reg. When reg is also a Gatherer it is
// used by Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Upstream fetch attempts by host and outcome.",
		}, []string{"host", "outcome"}),
		alertRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_runs_total",
			Help:      "Alert runs by outcome.",
		}, []string{"outcome"}),
		pushSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_sends_total",
			Help:      "Push notification requests by outcome.",
		}, []string{"outcome"}),
		tokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_tokens",
			Help:      "Number of registered device tokens.",
		}),
	}
	reg.MustRegister(m.fetchAttempts, m.alertRuns, m.pushSends, m.tokens)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// FetchAttempt counts one upstream request.
func (m *Metrics) FetchAttempt(host string, err error) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(host, outcome(err)).Inc()
}

// AlertRun counts one alert run; outcome is "no_alert", "alerted" or "failed".
func (m *Metrics) AlertRun(outcome string) {
	if m == nil {
		return
	}
	m.alertRuns.WithLabelValues(outcome).Inc()
}

// PushSend counts one push request.
func (m *Metrics) PushSend(err error) {
	if m == nil {
		return
	}
	m.pushSends.WithLabelValues(outcome(err)).Inc()
}

// SetTokens records the current token count.
func (m *Metrics) SetTokens(n int) {
	if m == nil {
		return
	}
	m.tokens.Set(float64(n))
}

// Handler serves the exposition format for the registry passed to New.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
