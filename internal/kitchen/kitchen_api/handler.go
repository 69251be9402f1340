package kitchen_api

import (
	"fmt"
	"net/http"

	"foh-coordinator/internal/kitchen"
	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/utils"
)

type Handler struct {
	Kitchen *kitchen.Service
	Logger  *logger.Logger
}

func NewHandler(k *kitchen.Service, log *logger.Logger) *Handler {
	return &Handler{Kitchen: k, Logger: log}
}

// Snapshot serves the kitchen display poll: every open order with its lines.
// The display keeps its previous snapshot and uses the id-set diff to decide
// when to ring the new-order bell.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Kitchen.Snapshot(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("KitchenSnapshot: %v", err))
		utils.WriteError(w, "could not fetch kitchen snapshot", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("open orders", orders))
}
