package main

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"alertaid-backend/internal/config"
	deliveryhttp "alertaid-backend/internal/delivery/http"
	"alertaid-backend/internal/delivery/websocket"
	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/infrastructure/db"
	"alertaid-backend/internal/infrastructure/expo"
	"alertaid-backend/internal/infrastructure/fcm"
	"alertaid-backend/internal/infrastructure/fetch"
	"alertaid-backend/internal/infrastructure/openmeteo"
	"alertaid-backend/internal/infrastructure/quake"
	"alertaid-backend/internal/metrics"
	"alertaid-backend/internal/repository"
	"alertaid-backend/internal/usecase"
)

// service owns the wired components of one process.
type service struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	tokens  domain.TokenStore
	alerts  *usecase.AlertUsecase
	tokenUC *usecase.TokenUsecase
}

func newService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*service, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	fetcher := fetch.New(cfg.HTTPTimeout, log, m)
	loc := cfg.Location()

	tokens, err := openTokenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := newNotifier(ctx, cfg, fetcher, log)
	if err != nil {
		_ = tokens.Close()
		return nil, err
	}

	retry := quake.RetryPolicy{Attempts: cfg.QuakeRetries, Delay: cfg.QuakeRetryDelay}
	var quakes usecase.QuakeSource
	switch cfg.QuakeSource {
	case config.QuakeSourceUSGS:
		quakes = quake.NewUSGSClient(fetcher, cfg.USGSURL, cfg.QuakeRegion, cfg.MagnitudeThreshold, retry)
	default:
		quakes = quake.NewPhivolcsClient(fetcher, cfg.PhivolcsURL, cfg.PhivolcsInsecureTLS, retry, loc)
	}

	alerts := usecase.NewAlertUsecase(
		openmeteo.NewClient(fetcher, cfg.ForecastURL(), loc),
		quakes,
		tokens,
		usecase.NewDispatcher(notifier, cfg.PushConcurrency, log, m),
		repository.NewInMemoryReportRepository(repository.DefaultReportHistory),
		usecase.AlertSettings{
			Rules: usecase.Rules{
				Place:              cfg.LocationName,
				RainThresholdMM:    cfg.RainThresholdMM,
				WindThresholdKmh:   cfg.WindThresholdKmh,
				MagnitudeThreshold: cfg.MagnitudeThreshold,
			},
			Composer: usecase.Composer{Mode: cfg.ComposeMode},
			Title:    cfg.PushTitle,
			Location: loc,
		},
		log, m,
	)

	tokenUC := usecase.NewTokenUsecase(tokens, log, m)
	if _, err := tokenUC.Count(ctx); err != nil {
		log.Warn("Initial token count failed", zap.Error(err))
	}

	return &service{
		log:     log,
		metrics: m,
		tokens:  tokens,
		alerts:  alerts,
		tokenUC: tokenUC,
	}, nil
}

func (s *service) Router() http.Handler {
	return deliveryhttp.NewRouter(deliveryhttp.Handlers{
		Tokens:    deliveryhttp.NewTokenHandler(s.tokenUC, s.log),
		Alerts:    deliveryhttp.NewAlertHandler(s.alerts, s.log),
		Test:      deliveryhttp.NewTestHandler(s.alerts, s.log),
		WebSocket: websocket.NewHandler(s.alerts, websocket.DefaultPollInterval, s.log),
		Metrics:   s.metrics.Handler(),
	}, s.log)
}

func (s *service) Close() {
	if err := s.tokens.Close(); err != nil {
		s.log.Warn("Closing token store failed", zap.Error(err))
	}
}

func openTokenStore(ctx context.Context, cfg *config.Config) (domain.TokenStore, error) {
	switch cfg.TokenStore {
	case config.TokenStoreBolt:
		return repository.NewBoltTokenRepository(cfg.BoltPath)
	case config.TokenStorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfigFromEnv())
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres")
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return repository.NewPostgresTokenRepository(pool), nil
	default:
		return repository.NewTokenRepository(cfg.TokenFile)
	}
}

func newNotifier(ctx context.Context, cfg *config.Config, fetcher *fetch.Fetcher, log *zap.Logger) (usecase.Notifier, error) {
	if cfg.PushGateway != config.PushGatewayFCM {
		return expo.NewClient(fetcher, cfg.ExpoPushURL), nil
	}

	client, err := fcm.NewClient(ctx, fcm.Credentials{
		Path: cfg.FirebaseCredentialsPath,
		JSON: cfg.FirebaseCredentialsJSON,
	}, log)
	if err != nil {
		return nil, err
	}
	if !client.IsEnabled() {
		return nil, errors.New("PUSH_GATEWAY=fcm requires FIREBASE_CREDENTIALS_PATH or FIREBASE_CREDENTIALS_JSON")
	}
	return client, nil
}
