// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Manila must resolve in minimal containers.

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"alertaid-backend/internal/usecase"
)

const (
	DefaultPort          = "3000"
	DefaultLocationName  = "Toledo City"
	DefaultLatitude      = 10.387
	DefaultLongitude     = 123.6502
	DefaultTimezone      = "Asia/Manila"
	DefaultPhivolcsURL   = "https://earthquake.phivolcs.dost.gov.ph/php/latest/earthquake_events.json"
	DefaultUSGSURL       = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"
	DefaultExpoPushURL   = "https://exp.host/--/api/v2/push/send"
	DefaultPushTitle     = "AlertAID Emergency Update"
	DefaultTokenFile     = "tokens.json"
	DefaultBoltPath      = "tokens.db"
	DefaultQuakeRegion   = "philippines"
	DefaultQuakeRetries  = 3
	DefaultQuakeDelay    = 2 * time.Second
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultConcurrency   = 10
	DefaultRainThreshold = 20.0
	DefaultWindThreshold = 20.0
	DefaultMagnitude     = 4.5
)

// Quake sources.
const (
	QuakeSourcePhivolcs = "phivolcs"
	QuakeSourceUSGS     = "usgs"
)

// Token store backends.
const (
	TokenStoreFile     = "file"
	TokenStoreBolt     = "bolt"
	TokenStorePostgres = "postgres"
)

// Push gateways.
const (
	PushGatewayExpo = "expo"
	PushGatewayFCM  = "fcm"
)

// Config holds the application configuration.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	LocationName string
	Latitude     float64
	Longitude    float64
	Timezone     string
	WeatherURL   string // overrides the URL built from the coordinates

	QuakeSource         string
	PhivolcsURL         string
	PhivolcsInsecureTLS bool
	USGSURL             string
	QuakeRegion         string
	QuakeRetries        int
	QuakeRetryDelay     time.Duration

	RainThresholdMM    float64
	WindThresholdKmh   float64
	MagnitudeThreshold float64
	ComposeMode        string

	TokenStore  string
	TokenFile   string
	BoltPath    string
	DatabaseURL string

	PushGateway             string
	ExpoPushURL             string
	PushTitle               string
	PushConcurrency         int
	FirebaseCredentialsPath string
	FirebaseCredentialsJSON string

	HTTPTimeout time.Duration
}

// Load reads configuration from a .env file, if any, and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored.
func LoadFile(envFile string) (*Config, error) {
	if envFile == "" {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrapf(err, "load env file %q", envFile)
	}

	cfg := &Config{
		Port:      getEnv("PORT", DefaultPort),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "console")),

		LocationName: getEnv("LOCATION_NAME", DefaultLocationName),
		Latitude:     getFloat("LATITUDE", DefaultLatitude),
		Longitude:    getFloat("LONGITUDE", DefaultLongitude),
		Timezone:     getEnv("TIMEZONE", DefaultTimezone),
		WeatherURL:   getEnv("WEATHER_URL", ""),

		QuakeSource:         strings.ToLower(getEnv("QUAKE_SOURCE", QuakeSourcePhivolcs)),
		PhivolcsURL:         getEnv("PHIVOLCS_URL", DefaultPhivolcsURL),
		PhivolcsInsecureTLS: getBool("PHIVOLCS_INSECURE_TLS", true),
		USGSURL:             getEnv("USGS_URL", DefaultUSGSURL),
		QuakeRegion:         getEnv("QUAKE_REGION", DefaultQuakeRegion),
		QuakeRetries:        getInt("QUAKE_RETRIES", DefaultQuakeRetries),
		QuakeRetryDelay:     getDuration("QUAKE_RETRY_DELAY", DefaultQuakeDelay),

		RainThresholdMM:    getFloat("RAIN_THRESHOLD_MM", DefaultRainThreshold),
		WindThresholdKmh:   getFloat("WIND_THRESHOLD_KMH", DefaultWindThreshold),
		MagnitudeThreshold: getFloat("MAGNITUDE_THRESHOLD", DefaultMagnitude),
		ComposeMode:        strings.ToLower(getEnv("ALERT_COMPOSE_MODE", usecase.ComposeAll)),

		TokenStore:  strings.ToLower(getEnv("TOKEN_STORE", TokenStoreFile)),
		TokenFile:   getEnv("TOKEN_FILE", DefaultTokenFile),
		BoltPath:    getEnv("BOLT_PATH", DefaultBoltPath),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		PushGateway:             strings.ToLower(getEnv("PUSH_GATEWAY", PushGatewayExpo)),
		ExpoPushURL:             getEnv("EXPO_PUSH_URL", DefaultExpoPushURL),
		PushTitle:               getEnv("PUSH_TITLE", DefaultPushTitle),
		PushConcurrency:         getInt("PUSH_CONCURRENCY", DefaultConcurrency),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),

		HTTPTimeout: getDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
	}

	if cfg.PushConcurrency < 1 {
		cfg.PushConcurrency = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate checks the enum-like settings and the values that have no
// sensible fallback.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return errors.Errorf("PORT must be numeric, got %q", c.Port)
	}

	switch c.QuakeSource {
	case QuakeSourcePhivolcs:
		if err := validURL(c.PhivolcsURL); err != nil {
			return errors.Wrap(err, "PHIVOLCS_URL")
		}
	case QuakeSourceUSGS:
		if err := validURL(c.USGSURL); err != nil {
			return errors.Wrap(err, "USGS_URL")
		}
	default:
		return errors.Errorf("unknown QUAKE_SOURCE %q", c.QuakeSource)
	}

	if c.QuakeRetries < 1 {
		return errors.New("QUAKE_RETRIES must be at least 1")
	}

	switch c.ComposeMode {
	case usecase.ComposeAll, usecase.ComposeLatest:
	default:
		return errors.Errorf("unknown ALERT_COMPOSE_MODE %q", c.ComposeMode)
	}

	switch c.TokenStore {
	case TokenStoreFile:
		if c.TokenFile == "" {
			return errors.New("TOKEN_FILE is required for the file token store")
		}
	case TokenStoreBolt:
		if c.BoltPath == "" {
			return errors.New("BOLT_PATH is required for the bolt token store")
		}
	case TokenStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres token store")
		}
	default:
		return errors.Errorf("unknown TOKEN_STORE %q", c.TokenStore)
	}

	switch c.PushGateway {
	case PushGatewayExpo:
		if err := validURL(c.ExpoPushURL); err != nil {
			return errors.Wrap(err, "EXPO_PUSH_URL")
		}
	case PushGatewayFCM:
	default:
		return errors.Errorf("unknown PUSH_GATEWAY %q", c.PushGateway)
	}

	if c.PushConcurrency < 1 {
		return errors.Errorf("PUSH_CONCURRENCY must be at least 1, got %d", c.PushConcurrency)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.Wrapf(err, "TIMEZONE %q", c.Timezone)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Location returns the configured time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ForecastURL returns the Open-Meteo URL for the configured coordinates
// unless WEATHER_URL overrides it.
func (c *Config) ForecastURL() string {
	if c.WeatherURL != "" {
		return c.WeatherURL
	}
	const fields = "temperature_2m,relative_humidity_2m,rain,showers,wind_speed_10m,pressure_msl"
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
	q.Set("current", fields)
	q.Set("hourly", fields)
	q.Set("forecast_days", "1")
	q.Set("timezone", c.Timezone)
	return fmt.Sprintf("https://api.open-meteo.com/v1/forecast?%s", q.Encode())
}

func validURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid URL %q", raw)
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid URL %q", raw)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
