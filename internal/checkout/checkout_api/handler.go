package checkout_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foh-coordinator/internal/apperr"
	"foh-coordinator/internal/checkout"
	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/models"
	"foh-coordinator/internal/utils"
)

type Handler struct {
	Checkout *checkout.Service
	Logger   *logger.Logger
}

func NewHandler(c *checkout.Service, log *logger.Logger) *Handler {
	return &Handler{Checkout: c, Logger: log}
}

func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	h.Logger.Info("API", fmt.Sprintf("Settle: orderID=%s", orderID))

	var req models.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := h.Checkout.Settle(r.Context(), orderID, req.Method, req.ProofRef)
	if err != nil {
		// A re-settled order is success from the terminal's perspective:
		// return the prior receipt so it can simply be displayed again.
		if errors.Is(err, apperr.ErrAlreadySettled) && receipt != nil {
			h.Logger.Warn("API", fmt.Sprintf("Settle: %s already settled, replaying receipt", orderID))
			utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("order already settled", receipt))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Settle: %v", err))
		utils.WriteError(w, "could not settle order", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("order settled", receipt))
}
