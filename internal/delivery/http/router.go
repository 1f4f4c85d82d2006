package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"alertaid-backend/internal/logging"
)

// Handlers groups everything the router mounts. Nil entries are skipped.
type Handlers struct {
	Tokens    *TokenHandler
	Alerts    *AlertHandler
	Test      *TestHandler
	WebSocket http.Handler
	Metrics   http.Handler
}

func NewRouter(h Handlers, log *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(log))

	r.HandleFunc("/", HandleHealth).Methods(http.MethodGet)

	if h.Tokens != nil {
		r.HandleFunc("/register", h.Tokens.HandleRegisterToken).Methods(http.MethodPost)
		r.HandleFunc("/tokens/count", h.Tokens.HandleGetTokenCount).Methods(http.MethodGet)
	}
	if h.Alerts != nil {
		r.HandleFunc("/run-alerts", h.Alerts.HandleRunAlerts).Methods(http.MethodGet, http.MethodPost)
		r.HandleFunc("/reports", h.Alerts.HandleGetReports).Methods(http.MethodGet)
	}
	if h.Test != nil {
		r.HandleFunc("/send-test-alert", h.Test.SendTestNotification).Methods(http.MethodGet, http.MethodPost)
	}
	if h.WebSocket != nil {
		r.Handle("/ws", h.WebSocket)
	}
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}
	return r
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("AlertAID backend is running."))
}

func requestLogger(log *zap.Logger) mux.MiddlewareFunc {
	log = logging.Component(log, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("Request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}
