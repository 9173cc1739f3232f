package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
)

// ErrPatientNotFound indicates no patient exists at the resolved key.
var ErrPatientNotFound = errors.New("patients: patient not found")

// ProfileReader resolves patient metadata by id. Provider-facing lookups
// depend on this rather than the full repository.
type ProfileReader interface {
	Get(ctx context.Context, patientID string) (*Profile, error)
}

// ProfileRepository persists patient profiles in the main table.
type ProfileRepository struct {
	table  *store.Table
	logger *logging.Logger
}

var _ ProfileReader = (*ProfileRepository)(nil)

// NewProfileRepository builds a repository backed by the given table.
func NewProfileRepository(table *store.Table, logger *logging.Logger) *ProfileRepository {
	if table == nil {
		panic("patients: table cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ProfileRepository{table: table, logger: logger}
}

// CreateIfAbsent writes the profile only when none exists for the patient id.
// The second creation attempt is a benign outcome, reported via created=false
// with a nil error, never retried and never surfaced as a failure.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *Profile) (created bool, err error) {
	if p == nil || p.PatientID == "" {
		return false, errors.New("patients: profile requires a patient id")
	}
	p.PK = store.PatientPK(p.PatientID)
	p.SK = store.MetadataSK
	p.UserType = store.UserTypePatient
	if p.CreatedAt == "" {
		p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	err = r.table.PutIfAbsent(ctx, p)
	if errors.Is(err, store.ErrItemExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("patients: create profile: %w", err)
	}
	return true, nil
}

// Get point-reads a patient profile.
func (r *ProfileRepository) Get(ctx context.Context, patientID string) (*Profile, error) {
	var p Profile
	err := r.table.Get(ctx, store.PatientPK(patientID), store.MetadataSK, &p)
	if errors.Is(err, store.ErrItemNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: get profile: %w", err)
	}
	if p.UserType != store.UserTypePatient {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}
