package usecase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/infrastructure/fetch"
	"alertaid-backend/internal/infrastructure/quake"
)

type alertFixture struct {
	notifier *fakeNotifier
	store    *fakeStore
	reports  *memReports
}

func newAlertUsecase(t *testing.T, w WeatherSource, q QuakeSource, tokens []string, mode string) (*AlertUsecase, *alertFixture) {
	t.Helper()
	f := &alertFixture{
		notifier: &fakeNotifier{},
		store:    &fakeStore{tokens: tokens},
		reports:  &memReports{},
	}
	log := zaptest.NewLogger(t)
	uc := NewAlertUsecase(w, q, f.store, NewDispatcher(f.notifier, 4, log, nil), f.reports, AlertSettings{
		Rules:    testRules,
		Composer: Composer{Mode: mode},
		Title:    "AlertAID Emergency Update",
		Location: time.FixedZone("PHT", 8*3600),
	}, log, nil)
	return uc, f
}

var errUnavailable = &fetch.UnavailableError{URL: "https://quake.example", Attempts: 3, Err: fetch.ErrNonJSON}

func TestRunRainfallWithQuakeUnavailable(t *testing.T) {
	uc, f := newAlertUsecase(t,
		fakeWeather{snapshot: domain.WeatherSnapshot{RainMM: 25, TemperatureC: 24}},
		fakeQuake{err: errUnavailable},
		[]string{"tok-1", "tok-2"}, ComposeAll)

	report, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Triggered)
	assert.Equal(t, rainAlert, report.Message)
	assert.NotContains(t, report.Message, "Earthquake")
	assert.NotEmpty(t, report.QuakeError)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 2, report.Delivery.Attempted)
	assert.Equal(t, 2, report.Delivery.Succeeded)

	sent := f.notifier.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "AlertAID Emergency Update", sent[0].Title)
	assert.Equal(t, rainAlert, sent[0].Body)

	require.Len(t, f.reports.reports, 1)
	assert.Equal(t, report.ID, f.reports.reports[0].ID)
}

func TestRunCompletesWhenPhivolcsServesHTML(t *testing.T) {
	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body>503 Service Temporarily Unavailable</body></html>")
	}))
	defer upstream.Close()

	log := zaptest.NewLogger(t)
	phivolcs := quake.NewPhivolcsClient(
		fetch.New(5*time.Second, log, nil),
		upstream.URL,
		false,
		quake.RetryPolicy{Attempts: 3, Delay: time.Millisecond},
		time.UTC,
	)

	uc, f := newAlertUsecase(t,
		fakeWeather{snapshot: domain.WeatherSnapshot{RainMM: 25}},
		phivolcs,
		[]string{"tok-1"}, ComposeAll)

	report, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Contains(t, report.QuakeError, "unavailable after 3 attempt(s)")
	assert.Nil(t, report.Earthquake)
	assert.True(t, report.Triggered)
	assert.Equal(t, rainAlert, report.Message)
	assert.Len(t, f.notifier.messages(), 1)
}

func TestRunEarthquakeOnly(t *testing.T) {
	uc, f := newAlertUsecase(t,
		fakeWeather{snapshot: domain.WeatherSnapshot{RainMM: 5}},
		fakeQuake{event: &domain.Earthquake{Magnitude: 5.1, Place: "Batangas, Philippines", Source: "phivolcs"}},
		[]string{"tok-1"}, ComposeAll)

	report, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Triggered)
	assert.Contains(t, report.Message, "5.1")
	assert.Contains(t, report.Message, "Batangas, Philippines")
	assert.Len(t, f.notifier.messages(), 1)
}

func TestRunNoAlertWithoutTokens(t *testing.T) {
	uc, f := newAlertUsecase(t,
		fakeWeather{snapshot: domain.WeatherSnapshot{RainMM: 5, WindSpeedKmh: 4}},
		fakeQuake{event: &domain.Earthquake{Magnitude: 3.2, Place: "Leyte"}},
		nil, ComposeAll)

	report, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Triggered)
	assert.Empty(t, report.Message)
	assert.NotEmpty(t, report.WeatherInfo)
	assert.Equal(t, 0, report.Delivery.Attempted)
	assert.Empty(t, f.notifier.messages())
}

func TestRunTriggeredWithEmptyStore(t *testing.T) {
	uc, f := newAlertUsecase(t,
		fakeWeather{snapshot: domain.WeatherSnapshot{WindSpeedKmh: 40}},
		fakeQuake{},
		nil, ComposeAll)

	report, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Triggered)
	assert.Equal(t, 0, report.Delivery.Attempted)
	assert.Empty(t, f.notifier.messages())
}

func TestRunBothSourcesFail(t *testing.T) {
	uc, f := newAlertUsecase(t,
		fakeWeather{err: errors.New("dial tcp: connection refused")},
		fakeQuake{err: errUnavailable},
		[]string{"tok-1"}, ComposeAll)

	report, err := uc.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoHazardData)
	require.NotNil(t, report)
	assert.NotEmpty(t, report.WeatherError)
	assert.NotEmpty(t, report.QuakeError)
	assert.Empty(t, f.notifier.messages())
	assert.Len(t, f.reports.reports, 1)
}

func TestRunWeatherFailsQuakeTriggers(t *testing.T) {
	uc, _ := newAlertUsecase(t,
		fakeWeather{err: errors.New("timeout")},
		fakeQuake{event: &domain.Earthquake{Magnitude: 6.2, Place: "Surigao"}},
		[]string{"tok-1"}, ComposeAll)

	report, err := uc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Triggered)
	assert.Nil(t, report.Weather)
	assert.Empty(t, report.WeatherInfo)
}

func TestRunComposeModes(t *testing.T) {
	weather := fakeWeather{snapshot: domain.WeatherSnapshot{RainMM: 30, WindSpeedKmh: 35}}
	quakes := fakeQuake{event: &domain.Earthquake{Magnitude: 5, Place: "Cebu"}}

	uc, _ := newAlertUsecase(t, weather, quakes, nil, ComposeAll)
	report, err := uc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Alerts, 3)
	assert.True(t, strings.HasPrefix(report.Message, rainAlert+" "+windAlert+" "))
	assert.True(t, strings.HasSuffix(report.Message, "near Cebu."))

	uc, _ = newAlertUsecase(t, weather, quakes, nil, ComposeLatest)
	report, err = uc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Earthquake Alert: Magnitude 5 near Cebu.", report.Message)
}

func TestRunTokenStoreError(t *testing.T) {
	uc, f := newAlertUsecase(t,
		fakeWeather{snapshot: domain.WeatherSnapshot{RainMM: 30}},
		fakeQuake{},
		nil, ComposeAll)
	f.store.err = errors.New("disk gone")

	_, err := uc.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoHazardData)
}

func TestSendTest(t *testing.T) {
	uc, f := newAlertUsecase(t, fakeWeather{}, fakeQuake{}, []string{"a", "b", "c"}, ComposeAll)

	summary, err := uc.SendTest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Attempted)

	sent := f.notifier.messages()
	require.Len(t, sent, 3)
	assert.Equal(t, TestMessage, sent[0].Body)
}

func TestSendTestNoDevices(t *testing.T) {
	uc, f := newAlertUsecase(t, fakeWeather{}, fakeQuake{}, nil, ComposeAll)

	summary, err := uc.SendTest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Attempted)
	assert.Empty(t, f.notifier.messages())
}
