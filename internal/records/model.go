package records

// Record is a provider-authored health record in a patient's partition.
// Records are append-only; nothing updates or deletes them. The details
// attribute is an open map so record kinds can carry arbitrary structure.
type Record struct {
	PK            string         `dynamodbav:"PK" json:"-"`
	SK            string         `dynamodbav:"SK" json:"-"`
	RecordID      string         `dynamodbav:"recordId" json:"recordId"`
	PatientID     string         `dynamodbav:"patientId" json:"patientId"`
	ProviderID    string         `dynamodbav:"providerId" json:"providerId"`
	RecordType    string         `dynamodbav:"recordType" json:"recordType"`
	Details       map[string]any `dynamodbav:"details" json:"details"`
	ProviderNotes string         `dynamodbav:"providerNotes,omitempty" json:"providerNotes,omitempty"`
	CreatedAt     string         `dynamodbav:"createdAt" json:"createdAt"`
}
