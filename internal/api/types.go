package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateAppointmentRequest struct {
	ProviderID string `json:"provider_id"`
	PatientID  string `json:"patient_id"`
	Start      string `json:"start"` // RFC 3339
	End        string `json:"end"`   // RFC 3339
}

type AppointmentResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
