package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/models"
	"foh-coordinator/internal/order"
	"foh-coordinator/internal/utils"
)

type Handler struct {
	Orders *order.Service
	Logger *logger.Logger
}

func NewHandler(orders *order.Service, log *logger.Logger) *Handler {
	return &Handler{Orders: orders, Logger: log}
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	ow, err := h.Orders.OrderWithLines(r.Context(), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrder: %v", err))
		utils.WriteError(w, "order not found", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("order", ow))
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	h.Logger.Info("API", fmt.Sprintf("AddLine: orderID=%s", orderID))

	var req models.AddLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	initial := models.LinePending
	if req.Completed {
		initial = models.LineCompleted
	}

	line, err := h.Orders.AddLine(r.Context(), orderID, req.MenuItemID, req.Qty, req.Note, initial)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AddLine: %v", err))
		utils.WriteError(w, "could not add line", err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("line added", line))
}

func (h *Handler) AdvanceLine(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")
	h.Logger.Info("API", fmt.Sprintf("AdvanceLine: lineID=%s", lineID))

	resp, err := h.Orders.AdvanceLine(r.Context(), lineID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("AdvanceLine: %v", err))
		utils.WriteError(w, "could not advance line", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("line advanced", resp))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	h.Logger.Info("API", fmt.Sprintf("CancelOrder: orderID=%s", orderID))

	if err := h.Orders.Cancel(r.Context(), orderID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelOrder: %v", err))
		utils.WriteError(w, "could not cancel order", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
