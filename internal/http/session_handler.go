package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type SessionGate interface {
	IssueSession(ctx context.Context, subject string, ttl time.Duration) (string, error)
	EndSession(ctx context.Context) error
	SetDevOverride(ctx context.Context, on bool) error
	Subject(ctx context.Context) (string, bool)
	DevOverride(ctx context.Context) bool
}

// CatalogRefresher re-evaluates which catalog source the shopper may see.
type CatalogRefresher interface {
	Refresh()
}

type SessionHandler struct {
	gate    SessionGate
	catalog CatalogRefresher
	subject string
	ttl     time.Duration
	logger  *zap.Logger
}

// NewSessionHandler signs sessions in for subject, the shopper this storefront serves.
func NewSessionHandler(gate SessionGate, catalog CatalogRefresher, subject string, ttl time.Duration, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		gate:    gate,
		catalog: catalog,
		subject: subject,
		ttl:     ttl,
		logger:  logger,
	}
}

type SessionResponse struct {
	LoggedIn    bool   `json:"logged_in"`
	Subject     string `json:"subject,omitempty"`
	DevOverride bool   `json:"dev_override"`
}

type DevOverrideRequestDTO struct {
	Enabled *bool `json:"enabled"`
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.sessionResponse(r.Context()))
}

func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if _, err := h.gate.IssueSession(r.Context(), h.subject, h.ttl); err != nil {
		h.logger.Error("issue session failed", zap.Error(err), zap.String("request_id", getRequestID(r.Context())))
		respondError(w, h.logger, http.StatusInternalServerError, "session_error", "could not start session")
		return
	}
	h.catalog.Refresh()
	respondJSON(w, h.logger, http.StatusCreated, h.sessionResponse(r.Context()))
}

func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.EndSession(r.Context()); err != nil {
		h.logger.Error("end session failed", zap.Error(err), zap.String("request_id", getRequestID(r.Context())))
		respondError(w, h.logger, http.StatusInternalServerError, "session_error", "could not end session")
		return
	}
	h.catalog.Refresh()
	respondJSON(w, h.logger, http.StatusOK, h.sessionResponse(r.Context()))
}

func (h *SessionHandler) SetDevOverride(w http.ResponseWriter, r *http.Request) {
	var req DevOverrideRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "enabled is required")
		return
	}

	if err := h.gate.SetDevOverride(r.Context(), *req.Enabled); err != nil {
		h.logger.Error("set dev override failed", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "session_error", "could not update dev override")
		return
	}
	h.catalog.Refresh()
	respondJSON(w, h.logger, http.StatusOK, h.sessionResponse(r.Context()))
}

func (h *SessionHandler) sessionResponse(ctx context.Context) SessionResponse {
	subject, ok := h.gate.Subject(ctx)
	return SessionResponse{
		LoggedIn:    ok,
		Subject:     subject,
		DevOverride: h.gate.DevOverride(ctx),
	}
}
