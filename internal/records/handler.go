package records

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/pkg/logging"
)

type recordStore interface {
	Add(ctx context.Context, rec *Record) error
	ListForPatient(ctx context.Context, patientID string) ([]Record, error)
}

// Handler exposes health-record endpoints.
type Handler struct {
	repo        recordStore
	attachments *AttachmentStore
	// patientSelfRead lets patients list provider-authored records about
	// themselves. Off narrows record reads to providers only.
	patientSelfRead bool
	logger          *logging.Logger
}

// NewHandler creates the records HTTP handler.
func NewHandler(repo *Repository, attachments *AttachmentStore, patientSelfRead bool, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:            repo,
		attachments:     attachments,
		patientSelfRead: patientSelfRead,
		logger:          logger,
	}
}

// AddRequest is the body for adding a health record.
type AddRequest struct {
	PatientID     string         `json:"patientId"`
	RecordType    string         `json:"recordType"`
	Details       map[string]any `json:"details"`
	ProviderNotes string         `json:"providerNotes"`
}

// Add appends a record authored by the calling provider.
// POST /health-records
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.PatientID == "" || req.RecordType == "" || len(req.Details) == 0 {
		http.Error(w, `{"error":"patientId, recordType and details are required"}`, http.StatusBadRequest)
		return
	}

	rec := &Record{
		RecordID:      uuid.NewString(),
		PatientID:     req.PatientID,
		ProviderID:    claims.Subject,
		RecordType:    req.RecordType,
		Details:       req.Details,
		ProviderNotes: req.ProviderNotes,
	}

	if err := h.repo.Add(r.Context(), rec); err != nil {
		h.logger.Error("failed to add health record", "patient_id", req.PatientID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("health record added",
		"record_id", rec.RecordID,
		"patient_id", rec.PatientID,
		"provider_id", rec.ProviderID,
		"record_type", rec.RecordType,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// ListMine lists the calling patient's own records.
// GET /health-records/my-records
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}
	if !h.patientSelfRead {
		http.Error(w, `{"error":"patient record access is disabled"}`, http.StatusForbidden)
		return
	}

	items, err := h.repo.ListForPatient(r.Context(), claims.Subject)
	if err != nil {
		h.logger.Error("failed to list own records", "patient_id", claims.Subject, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// ListForPatient lists one patient's records for a provider.
// GET /health-records/patient/{patientID}
func (h *Handler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		http.Error(w, `{"error":"patientID required"}`, http.StatusBadRequest)
		return
	}

	items, err := h.repo.ListForPatient(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to list patient records", "patient_id", patientID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// UploadAttachment stores a document attachment for a record.
// POST /health-records/{patientID}/{recordID}/attachments/{filename}
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	if !h.attachments.Enabled() {
		http.Error(w, `{"error":"attachments not configured"}`, http.StatusNotImplemented)
		return
	}

	patientID := chi.URLParam(r, "patientID")
	recordID := chi.URLParam(r, "recordID")
	filename := chi.URLParam(r, "filename")
	if patientID == "" || recordID == "" || filename == "" {
		http.Error(w, `{"error":"patientID, recordID and filename are required"}`, http.StatusBadRequest)
		return
	}

	err := h.attachments.Upload(r.Context(), patientID, recordID, filename, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		h.logger.Error("failed to store attachment", "record_id", recordID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"patientId": patientID,
		"recordId":  recordID,
		"filename":  filename,
	})
}

// DownloadAttachment streams a stored attachment. Patients may only reach
// their own attachments; providers may reach any patient's.
// GET /health-records/{patientID}/{recordID}/attachments/{filename}
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}
	if !h.attachments.Enabled() {
		http.Error(w, `{"error":"attachments not configured"}`, http.StatusNotImplemented)
		return
	}

	patientID := chi.URLParam(r, "patientID")
	recordID := chi.URLParam(r, "recordID")
	filename := chi.URLParam(r, "filename")
	if patientID == "" || recordID == "" || filename == "" {
		http.Error(w, `{"error":"patientID, recordID and filename are required"}`, http.StatusBadRequest)
		return
	}

	if !claims.InGroup(middleware.GroupProviders) && claims.Subject != patientID {
		http.Error(w, `{"error":"not permitted to read this attachment"}`, http.StatusForbidden)
		return
	}

	body, contentType, err := h.attachments.Download(r.Context(), patientID, recordID, filename)
	if err != nil {
		h.logger.Error("failed to fetch attachment", "record_id", recordID, "error", err)
		http.Error(w, `{"error":"attachment not found"}`, http.StatusNotFound)
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Error("failed to stream attachment", "record_id", recordID, "error", err)
	}
}
