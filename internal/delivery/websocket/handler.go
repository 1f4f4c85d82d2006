package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/logging"
)

const (
	DefaultPollInterval = 5 * time.Second
	writeWait           = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the mobile app connects without an Origin we could check
	},
}

// ReportSource yields the recent run history, oldest first.
type ReportSource interface {
	Reports() []domain.RunReport
}

// Handler streams run reports to websocket clients.
type Handler struct {
	source   ReportSource
	interval time.Duration
	log      *zap.Logger
}

func NewHandler(source ReportSource, interval time.Duration, log *zap.Logger) *Handler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Handler{
		source:   source,
		interval: interval,
		log:      logging.Component(log, "websocket"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.log.Info("Client connected", zap.String("remote", r.RemoteAddr))

	// Drain client frames so close messages are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the recent history immediately.
	reports := h.source.Reports()
	if err := h.write(conn, reports); err != nil {
		return
	}
	lastID := lastReportID(reports)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.log.Info("Client disconnected", zap.String("remote", r.RemoteAddr))
			return
		case <-ticker.C:
			fresh := newerThan(h.source.Reports(), lastID)
			if len(fresh) == 0 {
				continue
			}
			if err := h.write(conn, fresh); err != nil {
				return
			}
			lastID = lastReportID(fresh)
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, reports []domain.RunReport) error {
	if reports == nil {
		reports = []domain.RunReport{}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(reports); err != nil {
		h.log.Warn("Write failed", zap.Error(err))
		return err
	}
	return nil
}

// newerThan returns the reports after the one with lastID. If lastID has
// rotated out of the history, everything is new.
func newerThan(reports []domain.RunReport, lastID string) []domain.RunReport {
	if lastID == "" {
		return reports
	}
	for i := len(reports) - 1; i >= 0; i-- {
		if reports[i].ID == lastID {
			return reports[i+1:]
		}
	}
	return reports
}

func lastReportID(reports []domain.RunReport) string {
	if len(reports) == 0 {
		return ""
	}
	return reports[len(reports)-1].ID
}
