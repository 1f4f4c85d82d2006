package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/logging"
	"alertaid-backend/internal/metrics"
)

// ErrNoHazardData is returned by Run when neither hazard source answered.
var ErrNoHazardData = errors.New("no hazard data available")

// TestMessage is the body sent by SendTest.
const TestMessage = "This is a test alert from AlertAID. If you see this, notifications are working."

// Run outcomes recorded in metrics.
const (
	OutcomeNoAlert = "no_alert"
	OutcomeAlerted = "alerted"
	OutcomeFailed  = "failed"
)

// WeatherSource returns current conditions for the monitored location.
type WeatherSource interface {
	Current(ctx context.Context) (domain.WeatherSnapshot, error)
}

// QuakeSource returns the latest earthquake, or nil when there is none.
type QuakeSource interface {
	Latest(ctx context.Context) (*domain.Earthquake, error)
}

// AlertSettings holds the non-dependency knobs of an alert run.
type AlertSettings struct {
	Rules    Rules
	Composer Composer
	Title    string
	Location *time.Location
}

type AlertUsecase struct {
	weather    WeatherSource
	quake      QuakeSource
	tokens     domain.TokenStore
	dispatcher *Dispatcher
	reports    domain.ReportRepository
	settings   AlertSettings
	log        *zap.Logger
	metrics    *metrics.Metrics

	now func() time.Time
}

func NewAlertUsecase(
	weather WeatherSource,
	quake QuakeSource,
	tokens domain.TokenStore,
	dispatcher *Dispatcher,
	reports domain.ReportRepository,
	settings AlertSettings,
	log *zap.Logger,
	m *metrics.Metrics,
) *AlertUsecase {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &AlertUsecase{
		weather:    weather,
		quake:      quake,
		tokens:     tokens,
		dispatcher: dispatcher,
		reports:    reports,
		settings:   settings,
		log:        logging.Component(log, "alerts"),
		metrics:    m,
		now:        time.Now,
	}
}

// Run performs one fetch-evaluate-notify cycle. A failing source is
// recorded in the report and treated as "no alert from this source"; only
// when both fail does Run return ErrNoHazardData. The returned report is
// non-nil whenever the sources were queried.
func (uc *AlertUsecase) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{
		ID:        uuid.NewString(),
		StartedAt: uc.now(),
	}
	log := uc.log.With(zap.String("run_id", report.ID))
	log.Info("Alert run started")

	var alerts []string

	weather, weatherErr := uc.weather.Current(ctx)
	if weatherErr != nil {
		report.WeatherError = weatherErr.Error()
		log.Warn("Weather unavailable", zap.Error(weatherErr))
	} else {
		report.Weather = &weather
		assessment := EvaluateWeather(weather, uc.settings.Rules)
		report.WeatherInfo = assessment.Info
		alerts = append(alerts, assessment.Alerts...)
		log.Info("Weather evaluated",
			zap.Float64("precipitation_mm", weather.Precipitation()),
			zap.Float64("wind_kmh", weather.WindSpeedKmh),
			zap.Int("alerts", len(assessment.Alerts)))
	}

	quake, quakeErr := uc.quake.Latest(ctx)
	if quakeErr != nil {
		report.QuakeError = quakeErr.Error()
		log.Warn("Earthquake data unavailable", zap.Error(quakeErr))
	} else {
		report.Earthquake = quake
		if msg, ok := EvaluateEarthquake(quake, uc.settings.Rules, uc.now(), uc.settings.Location); ok {
			alerts = append(alerts, msg)
		}
	}

	if weatherErr != nil && quakeErr != nil {
		uc.finish(report, OutcomeFailed)
		return report, ErrNoHazardData
	}

	report.Alerts = alerts
	report.Message = uc.settings.Composer.Compose(alerts)
	if report.Message == "" {
		log.Info("No alerts triggered")
		uc.finish(report, OutcomeNoAlert)
		return report, nil
	}
	report.Triggered = true

	tokens, err := uc.tokens.List(ctx)
	if err != nil {
		uc.finish(report, OutcomeFailed)
		return report, errors.Wrap(err, "load tokens")
	}
	uc.metrics.SetTokens(len(tokens))

	report.Delivery = uc.dispatcher.Dispatch(ctx, tokens, uc.settings.Title, report.Message)
	log.Info("Alert dispatched",
		zap.String("message", report.Message),
		zap.Int("sent", report.Delivery.Succeeded),
		zap.Int("failed", report.Delivery.Failed))

	uc.finish(report, OutcomeAlerted)
	return report, nil
}

func (uc *AlertUsecase) finish(report *domain.RunReport, outcome string) {
	report.FinishedAt = uc.now()
	uc.metrics.AlertRun(outcome)
	if uc.reports != nil {
		uc.reports.SaveReport(*report)
	}
}

// SendTest sends TestMessage to every registered token.
func (uc *AlertUsecase) SendTest(ctx context.Context) (domain.DispatchSummary, error) {
	tokens, err := uc.tokens.List(ctx)
	if err != nil {
		return domain.DispatchSummary{}, errors.Wrap(err, "load tokens")
	}
	uc.metrics.SetTokens(len(tokens))
	if len(tokens) == 0 {
		uc.log.Info("Test alert skipped, no registered devices")
		return domain.DispatchSummary{}, nil
	}
	return uc.dispatcher.Dispatch(ctx, tokens, uc.settings.Title, TestMessage), nil
}

// Reports returns the recent run history, oldest first.
func (uc *AlertUsecase) Reports() []domain.RunReport {
	if uc.reports == nil {
		return nil
	}
	return uc.reports.GetReports()
}
