package store

import "strings"

// Single-table key scheme. The partition key names the owning entity, the
// sort key discriminates the item kind within that entity's partition.
//
//	Patient profile    PATIENT#<patientId>   METADATA
//	Provider profile   PROVIDER#<providerId> METADATA
//	Appointment        PATIENT#<patientId>   APPOINTMENT#<appointmentId>
//	Health record      PATIENT#<patientId>   RECORD#<TYPE>#<recordId>
//
// The sort-key prefixes make "all items of a kind for this owner" a single
// range query; cross-owner lookups go through the provider-date GSI.
const (
	MetadataSK          = "METADATA"
	AppointmentSKPrefix = "APPOINTMENT#"
	RecordSKPrefix      = "RECORD#"

	UserTypePatient  = "PATIENT"
	UserTypeProvider = "PROVIDER"

	// ProviderDateIndex is the GSI keyed (providerId, appointmentDate) that
	// makes a provider's schedule discoverable across patient partitions.
	// It is provisioned with the table; queries fail outright without it.
	ProviderDateIndex = "provider-date-index"

	// EmailIndex is the GSI on the legacy patient registry table enforcing
	// email uniqueness by lookup-before-insert.
	EmailIndex = "email-index"
)

func PatientPK(patientID string) string {
	return "PATIENT#" + patientID
}

func ProviderPK(providerID string) string {
	return "PROVIDER#" + providerID
}

func AppointmentSK(appointmentID string) string {
	return AppointmentSKPrefix + appointmentID
}

func RecordSK(recordType, recordID string) string {
	return RecordSKPrefix + NormalizeRecordType(recordType) + "#" + recordID
}

// NormalizeRecordType uppercases a record type for storage and sort-key use.
func NormalizeRecordType(recordType string) string {
	return strings.ToUpper(strings.TrimSpace(recordType))
}
