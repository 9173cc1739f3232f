package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
)

// Repository persists provider profiles and derives schedule projections.
type Repository struct {
	table  *store.Table
	logger *logging.Logger
}

// NewRepository builds a repository backed by the given table.
func NewRepository(table *store.Table, logger *logging.Logger) *Repository {
	if table == nil {
		panic("providers: table cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Repository{table: table, logger: logger}
}

// Upsert writes the profile unconditionally, replacing any previous item.
func (r *Repository) Upsert(ctx context.Context, p *Profile) error {
	if p == nil || p.ProviderID == "" {
		return errors.New("providers: profile requires a provider id")
	}
	p.PK = store.ProviderPK(p.ProviderID)
	p.SK = store.MetadataSK
	p.UserType = store.UserTypeProvider
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := r.table.Put(ctx, p); err != nil {
		return fmt.Errorf("providers: upsert profile: %w", err)
	}
	return nil
}

// schedulePatient is the slice of an appointment item the my-patients
// projection reads off the provider-date index.
type schedulePatient struct {
	PatientID   string `dynamodbav:"patientId"`
	PatientName string `dynamodbav:"patientName"`
}

// ListMyPatients derives the unique patients on a provider's schedule from
// the provider-date index. Duplicate patient ids collapse last-write-wins;
// order is whatever the index returned.
func (r *Repository) ListMyPatients(ctx context.Context, providerID string) ([]PatientRef, error) {
	var rows []schedulePatient
	err := r.table.QueryIndex(ctx, store.ProviderDateIndex, "providerId", providerID, "", "", &rows)
	if err != nil {
		return nil, fmt.Errorf("providers: list my patients: %w", err)
	}

	seen := make(map[string]int, len(rows))
	refs := make([]PatientRef, 0, len(rows))
	for _, row := range rows {
		if row.PatientID == "" {
			continue
		}
		if i, ok := seen[row.PatientID]; ok {
			refs[i].PatientName = row.PatientName
			continue
		}
		seen[row.PatientID] = len(refs)
		refs = append(refs, PatientRef{PatientID: row.PatientID, PatientName: row.PatientName})
	}
	return refs, nil
}
