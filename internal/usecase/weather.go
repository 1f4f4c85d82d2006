package usecase

import (
	"fmt"
	"strconv"

	"alertaid-backend/internal/domain"
)

// Rules holds the thresholds and labels used by the evaluators.
type Rules struct {
	Place              string
	RainThresholdMM    float64
	WindThresholdKmh   float64
	MagnitudeThreshold float64
}

// WeatherAssessment is the outcome of evaluating one weather snapshot.
type WeatherAssessment struct {
	Alerts []string // rain first, then wind
	Info   string
}

// EvaluateWeather applies the rainfall and wind rules independently and
// builds the always-present info line.
func EvaluateWeather(w domain.WeatherSnapshot, rules Rules) WeatherAssessment {
	var a WeatherAssessment

	if w.Precipitation() > rules.RainThresholdMM {
		a.Alerts = append(a.Alerts, fmt.Sprintf(
			"Severe rainfall detected in %s. Stay alert for possible flooding.", rules.Place))
	}
	if w.WindSpeedKmh > rules.WindThresholdKmh {
		a.Alerts = append(a.Alerts, fmt.Sprintf(
			"Strong winds of %s km/h recorded in %s. Secure loose objects and stay indoors.",
			formatNumber(w.WindSpeedKmh), rules.Place))
	}

	a.Info = fmt.Sprintf("%s: %s at %s°C, rain+showers %s mm, wind %s km/h, humidity %s%%.",
		rules.Place,
		temperatureBucket(w.TemperatureC),
		formatNumber(w.TemperatureC),
		formatNumber(w.Precipitation()),
		formatNumber(w.WindSpeedKmh),
		formatNumber(w.HumidityPct),
	)
	return a
}

func temperatureBucket(c float64) string {
	switch {
	case c < 18:
		return "Cool"
	case c < 26:
		return "Pleasant"
	case c < 32:
		return "Warm"
	case c < 36:
		return "Hot"
	default:
		return "Extreme heat"
	}
}

// formatNumber renders f with the fewest digits that round-trip, so 5.1
// stays "5.1" and 25 stays "25".
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
