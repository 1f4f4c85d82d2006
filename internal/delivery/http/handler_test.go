package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/repository"
	"alertaid-backend/internal/usecase"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.PushMessage
}

func (n *recordingNotifier) Send(_ context.Context, msg domain.PushMessage) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return `{"data":{"status":"ok","id":"x"}}`, nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type stubWeather struct {
	w   domain.WeatherSnapshot
	err error
}

func (s stubWeather) Current(context.Context) (domain.WeatherSnapshot, error) { return s.w, s.err }

type stubQuake struct {
	ev  *domain.Earthquake
	err error
}

func (s stubQuake) Latest(context.Context) (*domain.Earthquake, error) { return s.ev, s.err }

type server struct {
	router   http.Handler
	store    *repository.TokenRepository
	notifier *recordingNotifier
}

func newServer(t *testing.T, weather usecase.WeatherSource, quake usecase.QuakeSource) *server {
	t.Helper()
	log := zaptest.NewLogger(t)

	store, err := repository.NewTokenRepository(filepath.Join(t.TempDir(), "tokens.json"))
	require.NoError(t, err)

	n := &recordingNotifier{}
	alerts := usecase.NewAlertUsecase(weather, quake, store,
		usecase.NewDispatcher(n, 4, log, nil),
		repository.NewInMemoryReportRepository(0),
		usecase.AlertSettings{
			Rules: usecase.Rules{
				Place:              "Toledo City",
				RainThresholdMM:    20,
				WindThresholdKmh:   20,
				MagnitudeThreshold: 4.5,
			},
			Composer: usecase.Composer{Mode: usecase.ComposeAll},
			Title:    "AlertAID Emergency Update",
		}, log, nil)

	router := NewRouter(Handlers{
		Tokens: NewTokenHandler(usecase.NewTokenUsecase(store, log, nil), log),
		Alerts: NewAlertHandler(alerts, log),
		Test:   NewTestHandler(alerts, log),
	}, log)

	return &server{router: router, store: store, notifier: n}
}

func (s *server) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func calm() stubWeather {
	return stubWeather{w: domain.WeatherSnapshot{RainMM: 5, WindSpeedKmh: 8, TemperatureC: 28, HumidityPct: 70}}
}

func TestHealth(t *testing.T) {
	s := newServer(t, calm(), stubQuake{})

	rec := s.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AlertAID backend is running.", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestRegister(t *testing.T) {
	s := newServer(t, calm(), stubQuake{})

	rec := s.do(t, http.MethodPost, "/register", `{"token":"ExponentPushToken[abc]"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Token saved","count":1}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/register", `{"token":"ExponentPushToken[abc]"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Token saved","count":1}`, rec.Body.String())

	tokens, err := s.store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ExponentPushToken[abc]"}, tokens)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	s := newServer(t, calm(), stubQuake{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing token", body: `{}`, want: "Token is required"},
		{name: "blank token", body: `{"token":"  "}`, want: "Token is required"},
		{name: "empty body", body: "", want: "Token is required"},
		{name: "malformed", body: `{"token":`, want: "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, strings.TrimSpace(rec.Body.String()))
		})
	}

	n, err := s.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegisterMethodNotAllowed(t *testing.T) {
	s := newServer(t, calm(), stubQuake{})
	rec := s.do(t, http.MethodGet, "/register", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTokenCount(t *testing.T) {
	s := newServer(t, calm(), stubQuake{})
	s.do(t, http.MethodPost, "/register", `{"token":"a"}`)
	s.do(t, http.MethodPost, "/register", `{"token":"b"}`)

	rec := s.do(t, http.MethodGet, "/tokens/count", "")
	assert.JSONEq(t, `{"success":true,"message":"Token count retrieved","count":2}`, rec.Body.String())
}

func decodeRun(t *testing.T, rec *httptest.ResponseRecorder) RunAlertsResponse {
	t.Helper()
	var resp RunAlertsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRunAlertsRainfall(t *testing.T) {
	s := newServer(t,
		stubWeather{w: domain.WeatherSnapshot{RainMM: 25}},
		stubQuake{err: errors.New("service unavailable after 3 attempts")})
	s.do(t, http.MethodPost, "/register", `{"token":"a"}`)

	rec := s.do(t, http.MethodGet, "/run-alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeRun(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Alerts processed.", resp.Message)
	assert.Equal(t, "Severe rainfall detected in Toledo City. Stay alert for possible flooding.", resp.Alert)
	assert.NotContains(t, resp.Alert, "Earthquake")
	assert.Equal(t, 1, resp.Sent)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1, s.notifier.count())
}

func TestRunAlertsEarthquake(t *testing.T) {
	s := newServer(t, calm(), stubQuake{ev: &domain.Earthquake{Magnitude: 5.1, Place: "Batangas, Philippines"}})
	s.do(t, http.MethodPost, "/register", `{"token":"a"}`)

	rec := s.do(t, http.MethodGet, "/run-alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeRun(t, rec)
	assert.Contains(t, resp.Alert, "5.1")
	assert.Contains(t, resp.Alert, "Batangas, Philippines")
}

func TestRunAlertsNothingTriggered(t *testing.T) {
	s := newServer(t, calm(), stubQuake{ev: &domain.Earthquake{Magnitude: 3, Place: "Leyte"}})

	rec := s.do(t, http.MethodGet, "/run-alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeRun(t, rec)
	assert.Equal(t, "No alerts triggered.", resp.Message)
	assert.Empty(t, resp.Alert)
	assert.NotEmpty(t, resp.Weather)
	assert.Equal(t, 0, s.notifier.count())
}

func TestRunAlertsBothSourcesDown(t *testing.T) {
	s := newServer(t, stubWeather{err: errors.New("timeout")}, stubQuake{err: errors.New("timeout")})

	rec := s.do(t, http.MethodGet, "/run-alerts", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing alerts", strings.TrimSpace(rec.Body.String()))
}

func TestReports(t *testing.T) {
	s := newServer(t, calm(), stubQuake{})
	s.do(t, http.MethodGet, "/run-alerts", "")
	s.do(t, http.MethodGet, "/run-alerts", "")

	rec := s.do(t, http.MethodGet, "/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var reports []domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	assert.Len(t, reports, 2)
}

func TestSendTestAlert(t *testing.T) {
	s := newServer(t, calm(), stubQuake{})

	rec := s.do(t, http.MethodGet, "/send-test-alert", "")
	assert.JSONEq(t, `{"success":false,"message":"No registered devices","count":0}`, rec.Body.String())

	s.do(t, http.MethodPost, "/register", `{"token":"a"}`)
	s.do(t, http.MethodPost, "/register", `{"token":"b"}`)

	rec = s.do(t, http.MethodGet, "/send-test-alert", "")
	assert.JSONEq(t, `{"success":true,"message":"Test alert sent to 2 devices.","count":2}`, rec.Body.String())
	assert.Equal(t, 2, s.notifier.count())
}
