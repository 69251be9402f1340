package session_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/session"
	"foh-coordinator/internal/utils"
)

type Handler struct {
	Sessions *session.Service
	Logger   *logger.Logger
}

func NewHandler(s *session.Service, log *logger.Logger) *Handler {
	return &Handler{Sessions: s, Logger: log}
}

// Validate resolves a token to its table. The customer self-order surface
// calls this on every request; tokens are never cached as trusted.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	tableID, err := h.Sessions.Validate(r.Context(), token)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("ValidateSession: %v", err))
		utils.WriteError(w, "invalid session", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("session valid", map[string]string{
		"table_id": tableID,
	}))
}

// QR streams the session's self-order QR code as a PNG for the table slip.
func (h *Handler) QR(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	// Only a live session gets a QR image.
	if _, err := h.Sessions.Validate(r.Context(), token); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("SessionQR: %v", err))
		utils.WriteError(w, "invalid session", err)
		return
	}

	png, err := h.Sessions.QRCode(token)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SessionQR: encode: %v", err))
		utils.WriteError(w, "could not render QR", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
