package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"alertaid-backend/internal/logging"
	"alertaid-backend/internal/usecase"
)

type TokenHandler struct {
	tokens *usecase.TokenUsecase
	log    *zap.Logger
}

func NewTokenHandler(tokens *usecase.TokenUsecase, log *zap.Logger) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		log:    logging.Component(log, "token_handler"),
	}
}

type RegisterTokenRequest struct {
	Token string `json:"token"`
}

type TokenResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (h *TokenHandler) HandleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Token) == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	_, count, err := h.tokens.Register(r.Context(), req.Token)
	if err != nil {
		h.log.Error("Failed to save token", logging.TokenField(req.Token), zap.Error(err))
		http.Error(w, "Failed to save token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, TokenResponse{
		Success: true,
		Message: "Token saved",
		Count:   count,
	})
}

func (h *TokenHandler) HandleGetTokenCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.tokens.Count(r.Context())
	if err != nil {
		h.log.Error("Failed to count tokens", zap.Error(err))
		http.Error(w, "Failed to count tokens", http.StatusInternalServerError)
		return
	}

	writeJSON(w, TokenResponse{
		Success: true,
		Message: "Token count retrieved",
		Count:   count,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
