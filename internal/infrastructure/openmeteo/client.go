package openmeteo

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/infrastructure/fetch"
)

// JSONFetcher is the subset of fetch.Fetcher used here.
type JSONFetcher interface {
	JSON(ctx context.Context, rawURL string, opts fetch.Options, out interface{}) error
}

// Client reads current conditions from the Open-Meteo forecast API.
type Client struct {
	fetcher JSONFetcher
	url     string
	loc     *time.Location
}

func NewClient(fetcher JSONFetcher, forecastURL string, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		fetcher: fetcher,
		url:     forecastURL,
		loc:     loc,
	}
}

// ForecastResponse is the subset of the forecast payload we read. Either
// block may be missing depending on the query.
type ForecastResponse struct {
	Current *CurrentBlock `json:"current"`
	Hourly  *HourlyBlock  `json:"hourly"`
}

type CurrentBlock struct {
	Time             string   `json:"time"`
	Temperature      *float64 `json:"temperature_2m"`
	RelativeHumidity *float64 `json:"relative_humidity_2m"`
	Rain             *float64 `json:"rain"`
	Showers          *float64 `json:"showers"`
	WindSpeed        *float64 `json:"wind_speed_10m"`
	PressureMSL      *float64 `json:"pressure_msl"`
	SurfacePressure  *float64 `json:"surface_pressure"`
}

// HourlyBlock holds parallel arrays; entries may be null.
type HourlyBlock struct {
	Time             []string   `json:"time"`
	Temperature      []*float64 `json:"temperature_2m"`
	RelativeHumidity []*float64 `json:"relative_humidity_2m"`
	Rain             []*float64 `json:"rain"`
	Showers          []*float64 `json:"showers"`
	WindSpeed        []*float64 `json:"wind_speed_10m"`
	PressureMSL      []*float64 `json:"pressure_msl"`
}

// Current fetches the forecast and reduces it to a snapshot.
func (c *Client) Current(ctx context.Context) (domain.WeatherSnapshot, error) {
	var resp ForecastResponse
	if err := c.fetcher.JSON(ctx, c.url, fetch.Options{}, &resp); err != nil {
		return domain.WeatherSnapshot{}, errors.Wrap(err, "fetch forecast")
	}
	return resp.Snapshot(c.loc), nil
}

// Snapshot prefers the current block and falls back to the first hourly
// entry. Missing values are zero.
func (r ForecastResponse) Snapshot(loc *time.Location) domain.WeatherSnapshot {
	if c := r.Current; c != nil {
		pressure := value(c.PressureMSL)
		if pressure == 0 {
			pressure = value(c.SurfacePressure)
		}
		return domain.WeatherSnapshot{
			RainMM:       value(c.Rain),
			ShowersMM:    value(c.Showers),
			WindSpeedKmh: value(c.WindSpeed),
			TemperatureC: value(c.Temperature),
			HumidityPct:  value(c.RelativeHumidity),
			PressureHPa:  pressure,
			ObservedAt:   parseTime(c.Time, loc),
		}
	}

	if h := r.Hourly; h != nil {
		var observed time.Time
		if len(h.Time) > 0 {
			observed = parseTime(h.Time[0], loc)
		}
		return domain.WeatherSnapshot{
			RainMM:       first(h.Rain),
			ShowersMM:    first(h.Showers),
			WindSpeedKmh: first(h.WindSpeed),
			TemperatureC: first(h.Temperature),
			HumidityPct:  first(h.RelativeHumidity),
			PressureHPa:  first(h.PressureMSL),
			ObservedAt:   observed,
		}
	}

	return domain.WeatherSnapshot{}
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func first(values []*float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return value(values[0])
}

// Open-Meteo reports local ISO8601 times without seconds or offset.
func parseTime(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
