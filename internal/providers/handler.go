package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/internal/patients"
	"github.com/pbhms/pbhms/pkg/logging"
)

type profileUpserter interface {
	Upsert(ctx context.Context, p *Profile) error
	ListMyPatients(ctx context.Context, providerID string) ([]PatientRef, error)
}

// Handler exposes provider profile, directory and schedule endpoints.
type Handler struct {
	repo      profileUpserter
	directory Directory
	patients  patients.ProfileReader
	logger    *logging.Logger
}

// NewHandler creates the providers HTTP handler.
func NewHandler(repo *Repository, directory Directory, patientReader patients.ProfileReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, directory: directory, patients: patientReader, logger: logger}
}

// UpsertProfileRequest is the body for creating or replacing a provider
// profile.
type UpsertProfileRequest struct {
	Specialty  string `json:"specialty"`
	Bio        string `json:"bio"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// UpsertOwnProfile creates or replaces the caller's provider profile.
// POST /providers/profile
func (h *Handler) UpsertOwnProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}

	var req UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Specialty == "" || req.Bio == "" || req.GivenName == "" || req.FamilyName == "" {
		http.Error(w, `{"error":"specialty, bio, given_name and family_name are required"}`, http.StatusBadRequest)
		return
	}

	profile := &Profile{
		ProviderID: claims.Subject,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		Email:      claims.Email,
		Specialty:  req.Specialty,
		Bio:        req.Bio,
	}

	if err := h.repo.Upsert(r.Context(), profile); err != nil {
		h.logger.Error("failed to upsert provider profile", "provider_id", claims.Subject, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	if h.directory != nil {
		h.directory.Invalidate(r.Context())
	}

	h.logger.Info("provider profile upserted", "provider_id", claims.Subject)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(profile)
}

// ListProviders returns the public provider directory.
// GET /providers
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.directory.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []Profile{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profiles)
}

// GetPatientSummary returns the identity fields of one patient.
// GET /providers/patient/{patientID}
func (h *Handler) GetPatientSummary(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		http.Error(w, `{"error":"patientID required"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.patients.Get(r.Context(), patientID)
	if errors.Is(err, patients.ErrPatientNotFound) {
		http.Error(w, `{"error":"patient not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get patient summary", "patient_id", patientID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"patientId":   profile.PatientID,
		"given_name":  profile.GivenName,
		"family_name": profile.FamilyName,
	})
}

// ListMyPatients returns the unique patients on the caller's schedule.
// GET /providers/my-patients
func (h *Handler) ListMyPatients(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}

	refs, err := h.repo.ListMyPatients(r.Context(), claims.Subject)
	if err != nil {
		h.logger.Error("failed to list provider patients", "provider_id", claims.Subject, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if refs == nil {
		refs = []PatientRef{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(refs)
}
