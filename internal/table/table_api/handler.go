package table_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foh-coordinator/internal/logger"
	"foh-coordinator/internal/table"
	"foh-coordinator/internal/utils"
)

type Handler struct {
	Tables *table.Service
	Logger *logger.Logger
}

func NewHandler(tables *table.Service, log *logger.Logger) *Handler {
	return &Handler{Tables: tables, Logger: log}
}

type openRequest struct {
	Headcount int `json:"headcount"`
}

func (h *Handler) OpenTable(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	h.Logger.Info("API", fmt.Sprintf("OpenTable: tableID=%s", tableID))

	var req openRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	resp, err := h.Tables.Open(r.Context(), tableID, req.Headcount)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("OpenTable: %v", err))
		utils.WriteError(w, "could not open table", err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("table opened", resp))
}

func (h *Handler) StartTakeaway(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "StartTakeaway: received request")

	var req openRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	resp, err := h.Tables.StartTakeaway(r.Context(), req.Headcount)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("StartTakeaway: %v", err))
		utils.WriteError(w, "could not start takeaway slip", err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("takeaway slip started", resp))
}

// ListTables is the floor-view poll. Terminals call it on a fixed interval
// and diff locally.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.Tables.List(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTables: %v", err))
		utils.WriteError(w, "could not list tables", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("tables", tables))
}
