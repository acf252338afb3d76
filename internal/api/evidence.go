package api

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/surmed/surmed/internal/imaging"
	"github.com/surmed/surmed/internal/model"
	"github.com/surmed/surmed/internal/store"
)

// EvidenceHandler handles evidence upload and retrieval.
type EvidenceHandler struct {
	DB *sql.DB
}

// maxUploadSize caps evidence uploads at 10 MiB.
const maxUploadSize = 10 << 20

// documentMIME lists the accepted MIME types for non-photo evidence.
var documentMIME = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"text/plain; charset=utf-8": true,
}

// Upload handles POST /api/supplies/{id}/evidence. Photo evidence is
// normalized to JPEG; documents are stored as uploaded.
func (h *EvidenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	supplyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid supply id")
		return
	}

	supply, err := store.GetSupply(r.Context(), h.DB, supplyID)
	if err != nil {
		slog.Error("failed to get supply", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get supply")
		return
	}
	if supply == nil {
		jsonError(w, http.StatusNotFound, "supply not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}

	evidenceType := r.FormValue("evidence_type")
	if !model.ValidEvidenceType(evidenceType) {
		jsonError(w, http.StatusBadRequest, "invalid evidence_type")
		return
	}
	description := r.FormValue("description")

	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	var data []byte
	var mime string
	if model.IsPhotoEvidenceType(evidenceType) {
		result, err := imaging.Process(file)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		data, mime = result.Data, result.MIME
	} else {
		data, err = io.ReadAll(file)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "failed to read file")
			return
		}
		mime = http.DetectContentType(data)
		if !documentMIME[mime] {
			jsonError(w, http.StatusBadRequest, "unsupported document format: "+mime)
			return
		}
	}

	evidence, err := store.AddEvidence(r.Context(), h.DB, supplyID, evidenceType, data, mime, description, claims.UserID)
	if err != nil {
		slog.Error("failed to store evidence", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store evidence")
		return
	}

	details, _ := json.Marshal(map[string]any{
		"evidence_type": evidenceType,
		"file_hash":     evidence.FileHash,
	})
	if err := store.LogAction(r.Context(), h.DB, model.AuditEntry{
		Action:    model.ActionEvidenceUploaded,
		UserID:    &claims.UserID,
		SupplyID:  &supplyID,
		IPAddress: clientIP(r),
		Details:   details,
	}); err != nil {
		slog.Error("failed to record audit entry", "error", err)
	}

	slog.Info("evidence uploaded", "supply", supply.SupplyRef, "type", evidenceType, "user", claims.Username)
	jsonResponse(w, http.StatusCreated, evidence)
}

// List handles GET /api/supplies/{id}/evidence.
func (h *EvidenceHandler) List(w http.ResponseWriter, r *http.Request) {
	supplyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid supply id")
		return
	}

	evidence, err := store.ListEvidence(r.Context(), h.DB, supplyID)
	if err != nil {
		slog.Error("failed to list evidence", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list evidence")
		return
	}
	if evidence == nil {
		evidence = []model.Evidence{}
	}
	jsonResponse(w, http.StatusOK, evidence)
}

// GetFile handles GET /api/evidence/{id}/file.
func (h *EvidenceHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid evidence id")
		return
	}

	data, mime, err := store.GetEvidenceFile(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get evidence file", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get evidence file")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "evidence not found")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
