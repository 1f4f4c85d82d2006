package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/logging"
	"alertaid-backend/internal/metrics"
)

// Notifier delivers a single push message to one device.
type Notifier interface {
	Send(ctx context.Context, msg domain.PushMessage) (string, error)
}

// Dispatcher fans one message out to many tokens.
type Dispatcher struct {
	notifier    Notifier
	concurrency int
	log         *zap.Logger
	metrics     *metrics.Metrics
}

func NewDispatcher(notifier Notifier, concurrency int, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		notifier:    notifier,
		concurrency: concurrency,
		log:         logging.Component(log, "dispatcher"),
		metrics:     m,
	}
}

// Dispatch sends title/body to every token. Sends run concurrently; a failed
// send is recorded in its result and never affects the others. Results keep
// the order of tokens.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string, title, body string) domain.DispatchSummary {
	summary := domain.DispatchSummary{Attempted: len(tokens)}
	if len(tokens) == 0 {
		return summary
	}

	results := make([]domain.DeliveryResult, len(tokens))
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.concurrency)

	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			receipt, err := d.notifier.Send(ctx, domain.PushMessage{To: token, Title: title, Body: body})
			d.metrics.PushSend(err)

			res := domain.DeliveryResult{Token: token, Receipt: receipt, Success: err == nil}
			if err != nil {
				res.Error = err.Error()
				d.log.Warn("Push failed", logging.TokenField(token), zap.Error(err))
			} else {
				d.log.Debug("Push sent", logging.TokenField(token), zap.String("receipt", receipt))
			}
			results[i] = res
		}(i, token)
	}
	wg.Wait()

	for _, r := range results {
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Results = results

	d.log.Info("Dispatch finished",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))
	return summary
}
