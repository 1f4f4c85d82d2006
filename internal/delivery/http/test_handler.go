package http

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"alertaid-backend/internal/logging"
	"alertaid-backend/internal/usecase"
)

type TestHandler struct {
	alerts *usecase.AlertUsecase
	log    *zap.Logger
}

func NewTestHandler(alerts *usecase.AlertUsecase, log *zap.Logger) *TestHandler {
	return &TestHandler{
		alerts: alerts,
		log:    logging.Component(log, "test_handler"),
	}
}

func (h *TestHandler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	// Finish the fan-out even if the caller hangs up.
	summary, err := h.alerts.SendTest(context.WithoutCancel(r.Context()))
	if err != nil {
		h.log.Error("Test alert failed", zap.Error(err))
		http.Error(w, "Failed to send test alert", http.StatusInternalServerError)
		return
	}

	if summary.Attempted == 0 {
		writeJSON(w, TokenResponse{
			Success: false,
			Message: "No registered devices",
			Count:   0,
		})
		return
	}

	writeJSON(w, TokenResponse{
		Success: true,
		Message: fmt.Sprintf("Test alert sent to %d devices.", summary.Attempted),
		Count:   summary.Attempted,
	})
}
