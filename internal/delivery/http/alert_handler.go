package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"alertaid-backend/internal/logging"
	"alertaid-backend/internal/usecase"
)

type AlertHandler struct {
	alerts *usecase.AlertUsecase
	log    *zap.Logger
}

func NewAlertHandler(alerts *usecase.AlertUsecase, log *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		log:    logging.Component(log, "alert_handler"),
	}
}

type RunAlertsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Alert   string `json:"alert"`
	Weather string `json:"weather"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	RunID   string `json:"runId"`
}

func (h *AlertHandler) HandleRunAlerts(w http.ResponseWriter, r *http.Request) {
	// A run is not abandoned when the cron caller disconnects.
	report, err := h.alerts.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		h.log.Error("Error processing alerts", zap.Error(err))
		http.Error(w, "Error processing alerts", http.StatusInternalServerError)
		return
	}

	message := "No alerts triggered."
	if report.Triggered {
		message = "Alerts processed."
	}

	writeJSON(w, RunAlertsResponse{
		Success: true,
		Message: message,
		Alert:   report.Message,
		Weather: report.WeatherInfo,
		Sent:    report.Delivery.Succeeded,
		Failed:  report.Delivery.Failed,
		RunID:   report.ID,
	})
}

func (h *AlertHandler) HandleGetReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.alerts.Reports())
}
