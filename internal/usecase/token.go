package usecase

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/logging"
	"alertaid-backend/internal/metrics"
)

// TokenUsecase registers device tokens.
type TokenUsecase struct {
	store   domain.TokenStore
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewTokenUsecase(store domain.TokenStore, log *zap.Logger, m *metrics.Metrics) *TokenUsecase {
	return &TokenUsecase{
		store:   store,
		log:     logging.Component(log, "tokens"),
		metrics: m,
	}
}

// Register stores token if it is new and returns the resulting count.
func (uc *TokenUsecase) Register(ctx context.Context, token string) (added bool, count int, err error) {
	added, err = uc.store.AddIfAbsent(ctx, token)
	if err != nil {
		return false, 0, errors.Wrap(err, "register token")
	}

	count, err = uc.store.Count(ctx)
	if err != nil {
		return added, 0, errors.Wrap(err, "count tokens")
	}
	uc.metrics.SetTokens(count)

	if added {
		uc.log.Info("Token registered", logging.TokenField(token), zap.Int("count", count))
	} else {
		uc.log.Debug("Token already registered", logging.TokenField(token))
	}
	return added, count, nil
}

func (uc *TokenUsecase) Count(ctx context.Context) (int, error) {
	n, err := uc.store.Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "count tokens")
	}
	uc.metrics.SetTokens(n)
	return n, nil
}
