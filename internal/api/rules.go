package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

// RulesHandler handles eligibility rule management (admin only).
type RulesHandler struct {
	DB *sql.DB
}

// ruleRequest is the flat wire form of a rule. The parameter fields that
// apply depend on rule_type; the rest are ignored.
type ruleRequest struct {
	Name              string   `json:"name"`
	Type              string   `json:"rule_type"`
	Description       string   `json:"description"`
	Active            *bool    `json:"is_active"`
	Blocking          bool     `json:"is_blocking"`
	MinShelfLifeDays  int      `json:"min_shelf_life_days"`
	AllowedCategories []string `json:"allowed_categories"`
	RequiredPackaging []string `json:"required_packaging_statuses"`
	MinQuantity       int      `json:"min_quantity"`
	MaxQuantity       int      `json:"max_quantity"`
}

func (req *ruleRequest) toRule() (*model.EligibilityRule, string) {
	if req.Name == "" {
		return nil, "name required"
	}
	ruleType := model.RuleType(req.Type)
	if !model.ValidRuleType(ruleType) {
		return nil, "invalid rule_type"
	}

	rule := &model.EligibilityRule{
		Name:        req.Name,
		Type:        ruleType,
		Description: req.Description,
		Active:      true,
		Blocking:    req.Blocking,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	switch ruleType {
	case model.RuleExpiryDate:
		if req.MinShelfLifeDays < 0 {
			return nil, "min_shelf_life_days must not be negative"
		}
		rule.Params = &model.ExpiryParams{MinShelfLifeDays: req.MinShelfLifeDays}
	case model.RuleCategory:
		for _, c := range req.AllowedCategories {
			if !model.ValidCategory(c) {
				return nil, "unknown category: " + c
			}
		}
		rule.Params = &model.CategoryParams{AllowedCategories: req.AllowedCategories}
	case model.RulePackaging:
		for _, s := range req.RequiredPackaging {
			if !model.ValidPackagingStatus(s) {
				return nil, "unknown packaging status: " + s
			}
		}
		rule.Params = &model.PackagingParams{RequiredStatuses: req.RequiredPackaging}
	case model.RuleQuantity:
		if req.MinQuantity < 0 || req.MaxQuantity < 0 {
			return nil, "quantity bounds must not be negative"
		}
		if req.MaxQuantity > 0 && req.MinQuantity > req.MaxQuantity {
			return nil, "min_quantity exceeds max_quantity"
		}
		rule.Params = &model.QuantityParams{MinQuantity: req.MinQuantity, MaxQuantity: req.MaxQuantity}
	}

	return rule, ""
}

// List handles GET /api/rules.
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := store.ListRules(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	if rules == nil {
		rules = []model.EligibilityRule{}
	}
	jsonResponse(w, http.StatusOK, rules)
}

// Create handles POST /api/rules.
func (h *RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, msg := req.toRule()
	if msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := store.CreateRule(r.Context(), h.DB, rule)
	if err != nil {
		slog.Error("failed to create rule", "error", err)
		jsonError(w, http.StatusConflict, "failed to create rule")
		return
	}

	h.audit(r, created.ID, "created", created.Name)
	claims := GetClaims(r.Context())
	slog.Info("rule created", "rule", created.Name, "type", created.Type, "user", claims.Username)
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/rules/{id}.
func (h *RulesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	rule, err := store.GetRule(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get rule", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}
	if rule == nil {
		jsonError(w, http.StatusNotFound, "rule not found")
		return
	}
	jsonResponse(w, http.StatusOK, rule)
}

// Update handles PUT /api/rules/{id}.
func (h *RulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	existing, err := store.GetRule(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get rule", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "rule not found")
		return
	}

	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, msg := req.toRule()
	if msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}
	rule.ID = id

	if err := store.UpdateRule(r.Context(), h.DB, rule); err != nil {
		slog.Error("failed to update rule", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}

	updated, err := store.GetRule(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get rule", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}

	h.audit(r, id, "updated", rule.Name)
	claims := GetClaims(r.Context())
	slog.Info("rule updated", "rule", rule.Name, "user", claims.Username)
	jsonResponse(w, http.StatusOK, updated)
}

// Deactivate handles DELETE /api/rules/{id}. Rules are never deleted so past
// decision snapshots keep referring to rules that actually existed.
func (h *RulesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	rule, err := store.GetRule(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get rule", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}
	if rule == nil {
		jsonError(w, http.StatusNotFound, "rule not found")
		return
	}

	if err := store.DeactivateRule(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to deactivate rule", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to deactivate rule")
		return
	}

	h.audit(r, id, "deactivated", rule.Name)
	claims := GetClaims(r.Context())
	slog.Info("rule deactivated", "rule", rule.Name, "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "rule deactivated"})
}

func (h *RulesHandler) audit(r *http.Request, ruleID int64, change, name string) {
	claims := GetClaims(r.Context())
	details, _ := json.Marshal(map[string]any{
		"rule_id": ruleID,
		"name":    name,
		"change":  change,
	})
	if err := store.LogAction(r.Context(), h.DB, model.AuditEntry{
		Action:    model.ActionRuleModified,
		UserID:    &claims.UserID,
		IPAddress: clientIP(r),
		Details:   details,
	}); err != nil {
		slog.Error("failed to record audit entry", "error", err)
	}
}
