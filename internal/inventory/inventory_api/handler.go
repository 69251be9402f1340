package inventory_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foh-coordinator/internal/inventory"
	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/utils"
)

type Handler struct {
	Inventory *inventory.Service
	Logger    *logger.Logger
}

func NewHandler(inv *inventory.Service, log *logger.Logger) *Handler {
	return &Handler{Inventory: inv, Logger: log}
}

type restockRequest struct {
	Amount   float64  `json:"amount"`
	CostPaid *float64 `json:"cost_paid,omitempty"`
}

func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	ingredientID := chi.URLParam(r, "ingredientID")

	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.Inventory.Restock(r.Context(), ingredientID, req.Amount, req.CostPaid)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Restock: %v", err))
		utils.WriteError(w, "could not restock", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("restocked", snap))
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	ingredientID := chi.URLParam(r, "ingredientID")

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.Inventory.Consume(r.Context(), ingredientID, req.Amount)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Consume: %v", err))
		utils.WriteError(w, "could not consume stock", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("consumed", snap))
}

type adjustRequest struct {
	NewAmount float64 `json:"new_amount"`
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	ingredientID := chi.URLParam(r, "ingredientID")

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.Inventory.Adjust(r.Context(), ingredientID, req.NewAmount)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Adjust: %v", err))
		utils.WriteError(w, "could not adjust stock", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("adjusted", snap))
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Inventory.LowStock(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("LowStock: %v", err))
		utils.WriteError(w, "could not list low stock", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("low stock", snaps))
}
