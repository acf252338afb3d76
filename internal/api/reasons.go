package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

// ReasonsHandler handles reason code endpoints.
type ReasonsHandler struct {
	DB *sql.DB
}

type reasonCodeRequest struct {
	Code         string `json:"code"`
	DecisionType string `json:"decision_type"`
	Description  string `json:"description"`
}

type setReasonActiveRequest struct {
	Active bool `json:"is_active"`
}

// List handles GET /api/reason-codes. By default only active codes are
// returned; ?all=true includes retired ones. The decision query parameter
// narrows the list to codes usable for that decision type.
func (h *ReasonsHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"

	codes, err := store.ListReasonCodes(r.Context(), h.DB, activeOnly)
	if err != nil {
		slog.Error("failed to list reason codes", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list reason codes")
		return
	}

	if decision := r.URL.Query().Get("decision"); decision != "" {
		if !model.ValidDecision(decision) {
			jsonError(w, http.StatusBadRequest, "invalid decision")
			return
		}
		filtered := codes[:0]
		for _, rc := range codes {
			if rc.AppliesTo(decision) {
				filtered = append(filtered, rc)
			}
		}
		codes = filtered
	}

	if codes == nil {
		codes = []model.ReasonCode{}
	}
	jsonResponse(w, http.StatusOK, codes)
}

// Create handles POST /api/reason-codes.
func (h *ReasonsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reasonCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Code == "" || req.Description == "" {
		jsonError(w, http.StatusBadRequest, "code and description required")
		return
	}
	if !model.ValidReasonDecisionType(req.DecisionType) {
		jsonError(w, http.StatusBadRequest, "invalid decision_type")
		return
	}

	rc, err := store.CreateReasonCode(r.Context(), h.DB, req.Code, req.DecisionType, req.Description)
	if err != nil {
		jsonError(w, http.StatusConflict, "reason code already exists")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("reason code created", "code", rc.Code, "user", claims.Username)
	jsonResponse(w, http.StatusCreated, rc)
}

// SetActive handles PUT /api/reason-codes/{id}/active.
func (h *ReasonsHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid reason code id")
		return
	}

	var req setReasonActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetReasonCodeActive(r.Context(), h.DB, id, req.Active); err != nil {
		slog.Error("failed to update reason code", "error", err)
		jsonError(w, http.StatusNotFound, "reason code not found")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("reason code active flag changed", "id", id, "active", req.Active, "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "reason code updated"})
}
