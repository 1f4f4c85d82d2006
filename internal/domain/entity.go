package domain

import "time"

// WeatherSnapshot holds the current conditions for the monitored location.
// Fields the provider did not report are zero.
type WeatherSnapshot struct {
	RainMM       float64   `json:"rainMm"`
	ShowersMM    float64   `json:"showersMm"`
	WindSpeedKmh float64   `json:"windSpeedKmh"`
	TemperatureC float64   `json:"temperatureC"`
	HumidityPct  float64   `json:"humidityPct"`
	PressureHPa  float64   `json:"pressureHpa"`
	ObservedAt   time.Time `json:"observedAt,omitempty"`
}

// Precipitation returns rain plus showers in millimetres.
func (w WeatherSnapshot) Precipitation() float64 {
	return w.RainMM + w.ShowersMM
}

// Earthquake is the event selected from an earthquake catalog.
type Earthquake struct {
	Magnitude     float64   `json:"magnitude"`
	MagnitudeText string    `json:"magnitudeText,omitempty"` // as published, e.g. "5.0"
	Place         string    `json:"place"`
	OccurredAt    time.Time `json:"occurredAt,omitempty"` // zero when the source gave no parseable time
	Source        string    `json:"source"`               // "phivolcs" or "usgs"
}

// PushMessage is a single push request addressed to one device token.
type PushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// DeliveryResult records the outcome of one push request.
type DeliveryResult struct {
	Token   string `json:"token"`
	Success bool   `json:"success"`
	Receipt string `json:"receipt,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DispatchSummary aggregates the outcome of a fan-out.
type DispatchSummary struct {
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []DeliveryResult `json:"results,omitempty"`
}

// RunReport describes one fetch-evaluate-notify run.
type RunReport struct {
	ID           string           `json:"id"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
	Weather      *WeatherSnapshot `json:"weather,omitempty"`
	WeatherInfo  string           `json:"weatherInfo,omitempty"`
	WeatherError string           `json:"weatherError,omitempty"`
	Earthquake   *Earthquake      `json:"earthquake,omitempty"`
	QuakeError   string           `json:"quakeError,omitempty"`
	Alerts       []string         `json:"alerts,omitempty"`
	Message      string           `json:"message,omitempty"`
	Triggered    bool             `json:"triggered"`
	Delivery     DispatchSummary  `json:"delivery"`
}
