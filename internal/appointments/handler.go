package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pbhms/pbhms/internal/events"
	"github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/internal/notify"
	"github.com/pbhms/pbhms/pkg/logging"
)

type appointmentStore interface {
	Book(ctx context.Context, a *Appointment) error
	ListForPatient(ctx context.Context, patientID string) ([]Appointment, error)
	ListForProvider(ctx context.Context, providerID string) ([]Appointment, error)
	Get(ctx context.Context, patientID, appointmentID string) (*Appointment, error)
	Cancel(ctx context.Context, patientID, appointmentID string) (*Appointment, error)
	FindProviderConflicts(ctx context.Context, providerID, appointmentDate string) ([]Appointment, error)
}

// Handler exposes appointment booking, listing and cancellation endpoints.
type Handler struct {
	repo           appointmentStore
	publisher      *events.Publisher
	email          notify.EmailSender
	rejectOverlaps bool
	logger         *logging.Logger
}

// NewHandler creates the appointments HTTP handler. The publisher and email
// sender are optional; events and confirmations are best-effort and never
// fail a booking.
func NewHandler(repo *Repository, publisher *events.Publisher, email notify.EmailSender, rejectOverlaps bool, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:           repo,
		publisher:      publisher,
		email:          email,
		rejectOverlaps: rejectOverlaps,
		logger:         logger,
	}
}

// BookRequest is the body for booking an appointment.
type BookRequest struct {
	ProviderID      string `json:"providerId"`
	AppointmentDate string `json:"appointmentDate"`
	Reason          string `json:"reason"`
	ProviderName    string `json:"providerName"`
	PatientName     string `json:"patientName"`
}

// Book creates an appointment for the calling patient.
// POST /appointments
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.ProviderID == "" || req.AppointmentDate == "" || req.Reason == "" {
		http.Error(w, `{"error":"providerId, appointmentDate and reason are required"}`, http.StatusBadRequest)
		return
	}

	if h.rejectOverlaps {
		conflicts, err := h.repo.FindProviderConflicts(r.Context(), req.ProviderID, req.AppointmentDate)
		if err != nil {
			h.logger.Error("overlap check failed", "provider_id", req.ProviderID, "error", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		if len(conflicts) > 0 {
			http.Error(w, `{"error":"provider is already booked at that time"}`, http.StatusConflict)
			return
		}
	}

	patientName := req.PatientName
	if patientName == "" {
		patientName = claims.DisplayName()
	}

	appt := &Appointment{
		AppointmentID:   uuid.NewString(),
		PatientID:       claims.Subject,
		ProviderID:      req.ProviderID,
		PatientName:     patientName,
		ProviderName:    req.ProviderName,
		AppointmentDate: req.AppointmentDate,
		Reason:          req.Reason,
	}

	if err := h.repo.Book(r.Context(), appt); err != nil {
		h.logger.Error("failed to book appointment", "patient_id", claims.Subject, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("appointment booked",
		"appointment_id", appt.AppointmentID,
		"patient_id", appt.PatientID,
		"provider_id", appt.ProviderID,
	)

	evt := events.NewAppointmentEvent(events.TypeAppointmentBooked, appt.AppointmentID, appt.PatientID, appt.ProviderID, appt.AppointmentDate)
	if err := h.publisher.Publish(r.Context(), evt); err != nil {
		h.logger.Warn("failed to publish booked event", "appointment_id", appt.AppointmentID, "error", err)
	}

	h.sendConfirmation(r.Context(), claims, appt)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(appt)
}

func (h *Handler) sendConfirmation(ctx context.Context, claims *middleware.CognitoClaims, appt *Appointment) {
	if h.email == nil || claims.Email == "" {
		return
	}
	msg := notify.AppointmentConfirmation(claims.GivenName, appt.ProviderName, appt.AppointmentDate, appt.Reason)
	msg.To = claims.Email
	msg.ToName = claims.DisplayName()
	if err := h.email.Send(ctx, msg); err != nil {
		h.logger.Warn("failed to send confirmation email", "appointment_id", appt.AppointmentID, "error", err)
	}
}

// ListMine lists the calling patient's appointments.
// GET /appointments/my-appointments
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}

	items, err := h.repo.ListForPatient(r.Context(), claims.Subject)
	if err != nil {
		h.logger.Error("failed to list appointments", "patient_id", claims.Subject, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []Appointment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// ListForProvider lists the calling provider's schedule.
// GET /appointments/provider/me
func (h *Handler) ListForProvider(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}

	items, err := h.repo.ListForProvider(r.Context(), claims.Subject)
	if err != nil {
		h.logger.Error("failed to list provider schedule", "provider_id", claims.Subject, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []Appointment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// CancelRequest is the body for cancelling an appointment. The patient id
// addresses the partition holding the appointment item.
type CancelRequest struct {
	PatientID string `json:"patientId"`
}

// Cancel transitions an appointment to Cancelled. The item is fetched first
// and the caller must be either the owning patient or the appointment's
// provider; a client-supplied key alone is never enough.
// PUT /appointments/{appointmentID}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.CognitoClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"missing identity"}`, http.StatusUnauthorized)
		return
	}

	appointmentID := chi.URLParam(r, "appointmentID")
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if appointmentID == "" || req.PatientID == "" {
		http.Error(w, `{"error":"appointmentId and patientId are required"}`, http.StatusBadRequest)
		return
	}

	appt, err := h.repo.Get(r.Context(), req.PatientID, appointmentID)
	if errors.Is(err, ErrAppointmentNotFound) {
		http.Error(w, `{"error":"appointment not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch appointment for cancel", "appointment_id", appointmentID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	if claims.Subject != appt.PatientID && claims.Subject != appt.ProviderID {
		h.logger.Warn("cancel rejected for non-participant",
			"appointment_id", appointmentID,
			"subject", claims.Subject,
		)
		http.Error(w, `{"error":"not a participant in this appointment"}`, http.StatusForbidden)
		return
	}

	updated, err := h.repo.Cancel(r.Context(), req.PatientID, appointmentID)
	if errors.Is(err, ErrAppointmentNotFound) {
		http.Error(w, `{"error":"appointment not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to cancel appointment", "appointment_id", appointmentID, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("appointment cancelled", "appointment_id", appointmentID, "by", claims.Subject)

	evt := events.NewAppointmentEvent(events.TypeAppointmentCancelled, updated.AppointmentID, updated.PatientID, updated.ProviderID, updated.AppointmentDate)
	if err := h.publisher.Publish(r.Context(), evt); err != nil {
		h.logger.Warn("failed to publish cancelled event", "appointment_id", appointmentID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}
