package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

// DashboardHandler serves the review queue overview.
type DashboardHandler struct {
	DB *sql.DB
}

type dashboardResponse struct {
	StatusCounts    map[string]int   `json:"status_counts"`
	PendingSupplies []model.Supply   `json:"pending_supplies"`
	RecentDecisions []model.Decision `json:"recent_decisions"`
}

// Get handles GET /api/dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	counts, err := store.CountSuppliesByStatus(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to count supplies", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	pending, err := store.ListPendingSupplies(r.Context(), h.DB, 10)
	if err != nil {
		slog.Error("failed to list pending supplies", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	if pending == nil {
		pending = []model.Supply{}
	}

	recent, err := store.ListRecentDecisions(r.Context(), h.DB, 10)
	if err != nil {
		slog.Error("failed to list recent decisions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	if recent == nil {
		recent = []model.Decision{}
	}

	jsonResponse(w, http.StatusOK, dashboardResponse{
		StatusCounts:    counts,
		PendingSupplies: pending,
		RecentDecisions: recent,
	})
}
