package patients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/pkg/logging"
)

type profileStore interface {
	CreateIfAbsent(ctx context.Context, p *Profile) (bool, error)
}

type patientRegistry interface {
	Register(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, patientID string) (*Patient, error)
}

// Handler exposes patient profile and legacy registration endpoints.
type Handler struct {
	profiles profileStore
	registry patientRegistry
	logger   *logging.Logger
}

// NewHandler creates the patients HTTP handler.
func NewHandler(profiles *ProfileRepository, registry *Registry, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{profiles: profiles, registry: registry, logger: logger}
}

// CreateOwnProfile creates the caller's patient profile from token claims.
// POST /users/profile
// Creation is conditional on absence; a repeat call acknowledges the
// existing profile with 200 instead of failing.
func (h *Handler) CreateOwnProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}

	profile := &Profile{
		PatientID:  claims.Subject,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Email:      claims.Email,
	}

	created, err := h.profiles.CreateIfAbsent(r.Context(), profile)
	if err != nil {
		h.logger.Error("failed to create patient profile", "patient_id", claims.Subject, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !created {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"message": "profile already exists"})
		return
	}

	h.logger.Info("patient profile created", "patient_id", claims.Subject)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(profile)
}

// RegisterRequest is the body for the legacy public registration endpoint.
type RegisterRequest struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
}

// RegisterPatient registers a patient in the legacy registry table.
// POST /patients
func (h *Handler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.GivenName == "" || req.FamilyName == "" || req.Email == "" {
		http.Error(w, `{"error":"given_name, family_name and email are required"}`, http.StatusBadRequest)
		return
	}

	patient := &Patient{
		PatientID:  uuid.NewString(),
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		Email:      req.Email,
	}

	err := h.registry.Register(r.Context(), patient)
	if errors.Is(err, ErrEmailExists) {
		// Legacy surface reports the duplicate as a 400, matching what its
		// existing clients expect.
		http.Error(w, `{"error":"email already registered"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("failed to register patient", "email", req.Email, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("patient registered", "patient_id", patient.PatientID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(patient)
}

// GetPatientByID looks up a patient in the legacy registry.
// GET /patients/{patientID}
func (h *Handler) GetPatientByID(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		http.Error(w, `{"error":"patientID required"}`, http.StatusBadRequest)
		return
	}

	patient, err := h.registry.GetByID(r.Context(), patientID)
	if errors.Is(err, ErrPatientNotFound) {
		http.Error(w, `{"error":"patient not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get patient", "patient_id", patientID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patient)
}
