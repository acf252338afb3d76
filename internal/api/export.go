package api

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

// ExportHandler produces decision exports for external audits.
type ExportHandler struct {
	DB *sql.DB
}

// Decisions handles GET /api/export/decisions. Accepts the same filters as
// the decision list and streams the matching records as CSV.
func (h *ExportHandler) Decisions(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	filter, ok := parseDecisionFilter(w, r)
	if !ok {
		return
	}
	// Exports cover the whole filtered range unless a limit is asked for.
	filter.Limit = queryInt(r, "limit", 0)

	decisions, err := store.ListDecisions(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("failed to list decisions for export", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export decisions")
		return
	}

	filename := "audit_export_" + time.Now().Format("20060102_150405") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	header := []string{
		"Decision Date", "Supply ID", "Item Name", "Decision",
		"Reason Code", "Decided By", "Decision Level", "Eligibility Passed", "Justification",
	}
	if err := cw.Write(header); err != nil {
		slog.Error("failed to write export", "error", err)
		return
	}

	for _, d := range decisions {
		eligible := "No"
		if d.EligibilityPassed {
			eligible = "Yes"
		}
		record := []string{
			d.DecidedAt.Format("2006-01-02 15:04:05"),
			d.SupplyRef,
			d.ItemName,
			d.Decision,
			d.ReasonCode,
			d.DeciderName,
			d.Level,
			eligible,
			d.Justification,
		}
		if err := cw.Write(record); err != nil {
			slog.Error("failed to write export", "error", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("failed to flush export", "error", err)
		return
	}

	details, _ := json.Marshal(map[string]any{
		"format": "csv",
		"rows":   len(decisions),
	})
	if err := store.LogAction(r.Context(), h.DB, model.AuditEntry{
		Action:    model.ActionExportGenerated,
		UserID:    &claims.UserID,
		IPAddress: clientIP(r),
		Details:   details,
	}); err != nil {
		slog.Error("failed to record audit entry", "error", err)
	}

	slog.Info("decision export generated", "rows", len(decisions), "user", claims.Username)
}
