package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/surmed/surmed/internal/eligibility"
	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

// DecisionsHandler handles the review workflow.
type DecisionsHandler struct {
	DB *sql.DB
}

type decideRequest struct {
	SupplyID      int64  `json:"supply_id"`
	Decision      string `json:"decision"`
	ReasonCodeID  int64  `json:"reason_code_id"`
	Justification string `json:"justification"`
	Notes         string `json:"notes"`
}

// Create handles POST /api/decisions. The engine verdict is evaluated and
// frozen onto the record at this moment; later rule changes never rewrite it.
// Admins decide at FINAL level, reviewers at INITIAL.
func (h *DecisionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req decideRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !model.ValidDecision(req.Decision) {
		jsonError(w, http.StatusBadRequest, "invalid decision")
		return
	}
	if req.Justification == "" {
		jsonError(w, http.StatusBadRequest, "justification required")
		return
	}

	supply, err := store.GetSupply(r.Context(), h.DB, req.SupplyID)
	if err != nil {
		slog.Error("failed to get supply", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get supply")
		return
	}
	if supply == nil {
		jsonError(w, http.StatusNotFound, "supply not found")
		return
	}

	reason, err := store.GetReasonCode(r.Context(), h.DB, req.ReasonCodeID)
	if err != nil {
		slog.Error("failed to get reason code", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get reason code")
		return
	}
	if reason == nil || !reason.Active {
		jsonError(w, http.StatusBadRequest, "unknown or inactive reason code")
		return
	}
	if !reason.AppliesTo(req.Decision) {
		jsonError(w, http.StatusBadRequest, "reason code does not apply to this decision type")
		return
	}

	passed, snapshot, err := eligibility.Run(r.Context(), h.DB, supply)
	if err != nil {
		slog.Error("eligibility evaluation failed", "error", err, "supply", supply.SupplyRef)
		jsonError(w, http.StatusInternalServerError, "failed to evaluate eligibility")
		return
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to encode eligibility snapshot")
		return
	}

	level := model.LevelInitial
	if claims.Role == model.RoleAdmin {
		level = model.LevelFinal
	}

	decision, err := store.CreateDecision(r.Context(), h.DB, &model.Decision{
		SupplyID:           supply.ID,
		Decision:           req.Decision,
		Level:              level,
		ReasonCodeID:       reason.ID,
		Justification:      req.Justification,
		Notes:              req.Notes,
		DecidedBy:          claims.UserID,
		DecidedAt:          time.Now(),
		EligibilityPassed:  passed,
		EligibilityDetails: snapshotJSON,
	})
	if err != nil {
		slog.Error("failed to create decision", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create decision")
		return
	}

	details, _ := json.Marshal(map[string]any{
		"decision":           decision.Decision,
		"decision_level":     decision.Level,
		"reason_code":        reason.Code,
		"eligibility_passed": passed,
	})
	if err := store.LogAction(r.Context(), h.DB, model.AuditEntry{
		Action:     model.ActionDecisionMade,
		UserID:     &claims.UserID,
		SupplyID:   &supply.ID,
		DecisionID: &decision.ID,
		IPAddress:  clientIP(r),
		Details:    details,
	}); err != nil {
		slog.Error("failed to record audit entry", "error", err)
	}

	slog.Info("decision made",
		"supply", supply.SupplyRef,
		"decision", decision.Decision,
		"level", decision.Level,
		"user", claims.Username)
	jsonResponse(w, http.StatusCreated, decision)
}

// List handles GET /api/decisions.
func (h *DecisionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseDecisionFilter(w, r)
	if !ok {
		return
	}

	decisions, err := store.ListDecisions(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("failed to list decisions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list decisions")
		return
	}
	if decisions == nil {
		decisions = []model.Decision{}
	}
	jsonResponse(w, http.StatusOK, decisions)
}

// Stats handles GET /api/decisions/stats.
func (h *DecisionsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseDecisionFilter(w, r)
	if !ok {
		return
	}

	stats, err := store.DecisionStats(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("failed to compute decision stats", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to compute decision stats")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Get handles GET /api/decisions/{id}.
func (h *DecisionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid decision id")
		return
	}

	decision, err := store.GetDecision(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get decision", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get decision")
		return
	}
	if decision == nil {
		jsonError(w, http.StatusNotFound, "decision not found")
		return
	}
	jsonResponse(w, http.StatusOK, decision)
}

// parseDecisionFilter reads the shared list/stats/export query parameters.
func parseDecisionFilter(w http.ResponseWriter, r *http.Request) (store.DecisionFilter, bool) {
	filter := store.DecisionFilter{
		Decision: r.URL.Query().Get("decision"),
		Search:   r.URL.Query().Get("q"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return filter, false
		}
		filter.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return filter, false
		}
		// Inclusive end date.
		end := t.Add(24 * time.Hour)
		filter.To = &end
	}
	return filter, true
}
