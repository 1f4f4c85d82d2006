package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FetchAttempt("earthquake.phivolcs.dost.gov.ph", nil)
	m.FetchAttempt("earthquake.phivolcs.dost.gov.ph", errors.New("boom"))
	m.FetchAttempt("earthquake.phivolcs.dost.gov.ph", errors.New("boom"))
	m.AlertRun("alerted")
	m.PushSend(nil)
	m.SetTokens(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchAttempts.WithLabelValues("earthquake.phivolcs.dost.gov.ph", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchAttempts.WithLabelValues("earthquake.phivolcs.dost.gov.ph", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertRuns.WithLabelValues("alerted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pushSends.WithLabelValues("success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.tokens))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FetchAttempt("host", nil)
		m.AlertRun("failed")
		m.PushSend(errors.New("x"))
		m.SetTokens(1)
	})
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.AlertRun("no_alert")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `alertaid_alert_runs_total{outcome="no_alert"} 1`)
}
