package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/pkg/logging"
)

// Repository persists health records in the main table.
type Repository struct {
	table  *store.Table
	logger *logging.Logger
}

// NewRepository builds a repository backed by the given table.
func NewRepository(table *store.Table, logger *logging.Logger) *Repository {
	if table == nil {
		panic("records: table cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Repository{table: table, logger: logger}
}

// Add appends a record to the patient's partition. The record type is
// normalized to uppercase both on the item and in the sort key.
func (r *Repository) Add(ctx context.Context, rec *Record) error {
	if rec == nil || rec.PatientID == "" || rec.RecordID == "" || rec.RecordType == "" {
		return errors.New("records: record requires patient id, record id and type")
	}
	rec.RecordType = store.NormalizeRecordType(rec.RecordType)
	rec.PK = store.PatientPK(rec.PatientID)
	rec.SK = store.RecordSK(rec.RecordType, rec.RecordID)
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	if err := r.table.Put(ctx, rec); err != nil {
		return fmt.Errorf("records: add: %w", err)
	}
	return nil
}

// ListForPatient range-queries a patient's partition for all records,
// regardless of type.
func (r *Repository) ListForPatient(ctx context.Context, patientID string) ([]Record, error) {
	var items []Record
	err := r.table.QueryPrefix(ctx, store.PatientPK(patientID), store.RecordSKPrefix, &items)
	if err != nil {
		return nil, fmt.Errorf("records: list for patient: %w", err)
	}
	return items, nil
}
