package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
)

// ErrAppointmentNotFound indicates no appointment exists at the resolved key.
var ErrAppointmentNotFound = errors.New("appointments: appointment not found")

// Repository persists appointments in the main table.
type Repository struct {
	table  *store.Table
	logger *logging.Logger
}

// NewRepository builds a repository backed by the given table.
func NewRepository(table *store.Table, logger *logging.Logger) *Repository {
	if table == nil {
		panic("appointments: table cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Repository{table: table, logger: logger}
}

// Book writes a new appointment into the patient's partition. The write is
// unconditional; the server-generated appointment id makes key collisions
// practically impossible.
func (r *Repository) Book(ctx context.Context, a *Appointment) error {
	if a == nil || a.PatientID == "" || a.AppointmentID == "" {
		return errors.New("appointments: booking requires patient and appointment ids")
	}
	a.PK = store.PatientPK(a.PatientID)
	a.SK = store.AppointmentSK(a.AppointmentID)
	a.Status = StatusScheduled
	if a.CreatedAt == "" {
		a.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := r.table.Put(ctx, a); err != nil {
		return fmt.Errorf("appointments: book: %w", err)
	}
	return nil
}

// ListForPatient range-queries a patient's partition for appointments.
func (r *Repository) ListForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	var items []Appointment
	err := r.table.QueryPrefix(ctx, store.PatientPK(patientID), store.AppointmentSKPrefix, &items)
	if err != nil {
		return nil, fmt.Errorf("appointments: list for patient: %w", err)
	}
	return items, nil
}

// ListForProvider queries the provider-date index for a provider's schedule.
func (r *Repository) ListForProvider(ctx context.Context, providerID string) ([]Appointment, error) {
	var items []Appointment
	err := r.table.QueryIndex(ctx, store.ProviderDateIndex, "providerId", providerID, "", "", &items)
	if err != nil {
		return nil, fmt.Errorf("appointments: list for provider: %w", err)
	}
	return items, nil
}

// Get point-reads one appointment from a patient's partition.
func (r *Repository) Get(ctx context.Context, patientID, appointmentID string) (*Appointment, error) {
	var a Appointment
	err := r.table.Get(ctx, store.PatientPK(patientID), store.AppointmentSK(appointmentID), &a)
	if errors.Is(err, store.ErrItemNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return &a, nil
}

// Cancel transitions an appointment to Cancelled and returns the updated
// item. Cancelling an already-cancelled appointment is idempotent in effect.
func (r *Repository) Cancel(ctx context.Context, patientID, appointmentID string) (*Appointment, error) {
	var a Appointment
	err := r.table.Update(ctx,
		store.PatientPK(patientID),
		store.AppointmentSK(appointmentID),
		"SET #status = :status, #updatedAt = :updatedAt",
		map[string]string{"#status": "status", "#updatedAt": "updatedAt"},
		map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: string(StatusCancelled)},
			":updatedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		&a,
	)
	if errors.Is(err, store.ErrItemNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: cancel: %w", err)
	}
	return &a, nil
}

// FindProviderConflicts returns the provider's non-cancelled appointments at
// exactly the given date, via the provider-date index.
func (r *Repository) FindProviderConflicts(ctx context.Context, providerID, appointmentDate string) ([]Appointment, error) {
	var items []Appointment
	err := r.table.QueryIndex(ctx, store.ProviderDateIndex, "providerId", providerID, "appointmentDate", appointmentDate, &items)
	if err != nil {
		return nil, fmt.Errorf("appointments: find conflicts: %w", err)
	}
	active := items[:0]
	for _, a := range items {
		if a.Status != StatusCancelled {
			active = append(active, a)
		}
	}
	return active, nil
}
