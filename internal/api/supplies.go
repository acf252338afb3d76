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

// SuppliesHandler handles supply submission and browsing.
type SuppliesHandler struct {
	DB *sql.DB
}

type submitSupplyRequest struct {
	ItemName          string `json:"item_name"`
	Category          string `json:"category"`
	Quantity          int    `json:"quantity"`
	Unit              string `json:"unit"`
	Description       string `json:"description"`
	ExpiryDate        string `json:"expiry_date"`
	BatchNumber       string `json:"batch_number"`
	PackagingStatus   string `json:"packaging_status"`
	StorageConditions string `json:"storage_conditions"`
}

func (req *submitSupplyRequest) validate() (string, bool) {
	switch {
	case req.ItemName == "":
		return "item_name required", false
	case !model.ValidCategory(req.Category):
		return "invalid category", false
	case req.Quantity < 1:
		return "quantity must be at least 1", false
	case !model.ValidUnit(req.Unit):
		return "invalid unit", false
	case req.ExpiryDate == "":
		return "expiry_date required", false
	case !model.ValidPackagingStatus(req.PackagingStatus):
		return "invalid packaging_status", false
	case !model.ValidStorageConditions(req.StorageConditions):
		return "invalid storage_conditions", false
	}
	return "", true
}

// Create handles POST /api/supplies.
func (h *SuppliesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req submitSupplyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg, ok := req.validate(); !ok {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
		return
	}

	supply, err := store.CreateSupply(r.Context(), h.DB, &model.Supply{
		ItemName:          req.ItemName,
		Category:          req.Category,
		Quantity:          req.Quantity,
		Unit:              req.Unit,
		Description:       req.Description,
		ExpiryDate:        &expiry,
		BatchNumber:       req.BatchNumber,
		PackagingStatus:   req.PackagingStatus,
		StorageConditions: req.StorageConditions,
		SubmittedBy:       claims.UserID,
	})
	if err != nil {
		slog.Error("failed to create supply", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create supply")
		return
	}

	details, _ := json.Marshal(map[string]any{
		"supply_ref": supply.SupplyRef,
		"item_name":  supply.ItemName,
		"category":   supply.Category,
	})
	if err := store.LogAction(r.Context(), h.DB, model.AuditEntry{
		Action:    model.ActionSupplySubmitted,
		UserID:    &claims.UserID,
		SupplyID:  &supply.ID,
		IPAddress: clientIP(r),
		Details:   details,
	}); err != nil {
		slog.Error("failed to record audit entry", "error", err)
	}

	slog.Info("supply submitted", "supply", supply.SupplyRef, "user", claims.Username)
	jsonResponse(w, http.StatusCreated, supply)
}

// List handles GET /api/supplies.
func (h *SuppliesHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.SupplyFilter{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("q"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}

	supplies, err := store.ListSupplies(r.Context(), h.DB, filter)
	if err != nil {
		slog.Error("failed to list supplies", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list supplies")
		return
	}
	if supplies == nil {
		supplies = []model.Supply{}
	}
	jsonResponse(w, http.StatusOK, supplies)
}

type supplyDetailResponse struct {
	Supply      *model.Supply        `json:"supply"`
	Evidence    []model.Evidence     `json:"evidence"`
	Decisions   []model.Decision     `json:"decisions"`
	Eligibility eligibility.Snapshot `json:"eligibility"`
}

// Get handles GET /api/supplies/{id}. The eligibility section reflects the
// current rule set, not any past decision's frozen snapshot.
func (h *SuppliesHandler) Get(w http.ResponseWriter, r *http.Request) {
	supply, ok := h.lookup(w, r)
	if !ok {
		return
	}

	evidence, err := store.ListEvidence(r.Context(), h.DB, supply.ID)
	if err != nil {
		slog.Error("failed to list evidence", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load supply")
		return
	}
	if evidence == nil {
		evidence = []model.Evidence{}
	}

	decisions, err := store.ListSupplyDecisions(r.Context(), h.DB, supply.ID)
	if err != nil {
		slog.Error("failed to list decisions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load supply")
		return
	}
	if decisions == nil {
		decisions = []model.Decision{}
	}

	_, snapshot, err := eligibility.Run(r.Context(), h.DB, supply)
	if err != nil {
		slog.Error("eligibility evaluation failed", "error", err, "supply", supply.SupplyRef)
		jsonError(w, http.StatusInternalServerError, "failed to evaluate eligibility")
		return
	}

	jsonResponse(w, http.StatusOK, supplyDetailResponse{
		Supply:      supply,
		Evidence:    evidence,
		Decisions:   decisions,
		Eligibility: snapshot,
	})
}

// Eligibility handles GET /api/supplies/{id}/eligibility. Always evaluated
// fresh against the active rules.
func (h *SuppliesHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	supply, ok := h.lookup(w, r)
	if !ok {
		return
	}

	_, snapshot, err := eligibility.Run(r.Context(), h.DB, supply)
	if err != nil {
		slog.Error("eligibility evaluation failed", "error", err, "supply", supply.SupplyRef)
		jsonError(w, http.StatusInternalServerError, "failed to evaluate eligibility")
		return
	}

	jsonResponse(w, http.StatusOK, snapshot)
}

// Decisions handles GET /api/supplies/{id}/decisions.
func (h *SuppliesHandler) Decisions(w http.ResponseWriter, r *http.Request) {
	supply, ok := h.lookup(w, r)
	if !ok {
		return
	}

	decisions, err := store.ListSupplyDecisions(r.Context(), h.DB, supply.ID)
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

// lookup resolves the {id} path value, accepting either a numeric ID or a
// supply reference like SUP-20260831-1A2B3C4D.
func (h *SuppliesHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Supply, bool) {
	raw := r.PathValue("id")

	var supply *model.Supply
	var err error
	if id, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
		supply, err = store.GetSupply(r.Context(), h.DB, id)
	} else {
		supply, err = store.GetSupplyByRef(r.Context(), h.DB, raw)
	}
	if err != nil {
		slog.Error("failed to get supply", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get supply")
		return nil, false
	}
	if supply == nil {
		jsonError(w, http.StatusNotFound, "supply not found")
		return nil, false
	}
	return supply, true
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
