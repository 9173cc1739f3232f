package notify

import "fmt"

// AppointmentConfirmation builds the confirmation email sent to a patient
// after a booking succeeds.
func AppointmentConfirmation(patientName, providerName, date, reason string) EmailMessage {
	if patientName == "" {
		patientName = "there"
	}
	subject := "Your appointment is confirmed"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment with %s on %s has been booked.\nReason for visit: %s\n\nIf you need to cancel or reschedule, please do so through the patient portal.\n",
		patientName, providerName, date, reason,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your appointment with <strong>%s</strong> on <strong>%s</strong> has been booked.</p><p>Reason for visit: %s</p><p>If you need to cancel or reschedule, please do so through the patient portal.</p>",
		patientName, providerName, date, reason,
	)
	return EmailMessage{
		Subject: subject,
		Body:    body,
		HTML:    html,
	}
}

// AppointmentCancellation builds the email sent to a patient when an
// appointment is cancelled.
func AppointmentCancellation(patientName, providerName, date string) EmailMessage {
	if patientName == "" {
		patientName = "there"
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment with %s on %s has been cancelled.\n",
		patientName, providerName, date,
	)
	return EmailMessage{
		Subject: "Your appointment has been cancelled",
		Body:    body,
	}
}
