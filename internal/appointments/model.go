package appointments

// Status is the lifecycle state of an appointment. Appointments are never
// deleted; they move Scheduled -> {Completed, Cancelled}.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Appointment lives in the booking patient's partition and is also
// discoverable through the provider-date index. The patient and provider
// names are denormalized onto the item at booking time as a historical
// snapshot; later profile renames do not rewrite past appointments.
type Appointment struct {
	PK              string `dynamodbav:"PK" json:"-"`
	SK              string `dynamodbav:"SK" json:"-"`
	AppointmentID   string `dynamodbav:"appointmentId" json:"appointmentId"`
	PatientID       string `dynamodbav:"patientId" json:"patientId"`
	ProviderID      string `dynamodbav:"providerId" json:"providerId"`
	PatientName     string `dynamodbav:"patientName" json:"patientName"`
	ProviderName    string `dynamodbav:"providerName" json:"providerName"`
	AppointmentDate string `dynamodbav:"appointmentDate" json:"appointmentDate"`
	Reason          string `dynamodbav:"reason" json:"reason"`
	Status          Status `dynamodbav:"status" json:"status"`
	CreatedAt       string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt       string `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
