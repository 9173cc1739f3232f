package events

import "time"

// Appointment lifecycle event types.
const (
	TypeAppointmentBooked    = "appointment.booked"
	TypeAppointmentCancelled = "appointment.cancelled"
)

// AppointmentEvent is the JSON payload published for appointment lifecycle
// transitions. Consumers (reminder jobs, analytics) are downstream of the
// queue and never block the request path.
type AppointmentEvent struct {
	Type            string `json:"type"`
	AppointmentID   string `json:"appointmentId"`
	PatientID       string `json:"patientId"`
	ProviderID      string `json:"providerId"`
	AppointmentDate string `json:"appointmentDate"`
	OccurredAt      string `json:"occurredAt"`
}

// NewAppointmentEvent stamps an event with the current time.
func NewAppointmentEvent(eventType, appointmentID, patientID, providerID, appointmentDate string) AppointmentEvent {
	return AppointmentEvent{
		Type:            eventType,
		AppointmentID:   appointmentID,
		PatientID:       patientID,
		ProviderID:      providerID,
		AppointmentDate: appointmentDate,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
}
