package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

// AuditHandler exposes the audit trail (admin only).
type AuditHandler struct {
	DB *sql.DB
}

// List handles GET /api/audit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.AuditFilter{
		Action:   r.URL.Query().Get("action"),
		UserID:   int64(queryInt(r, "user_id", 0)),
		SupplyID: int64(queryInt(r, "supply_id", 0)),
		Limit:    queryInt(r, "limit", 100),
		Offset:   queryInt(r, "offset", 0),
	}

	entries, err := store.ListAuditLog(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("failed to list audit log", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
