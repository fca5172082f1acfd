package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is one booked interval on a provider's schedule. Start is
// inclusive, End is exclusive, so back-to-back appointments do not conflict.
// After commit the only permitted mutation is scheduled -> cancelled.
type Appointment struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	PatientID  uuid.UUID
	Start      time.Time
	End        time.Time
	Status     AppointmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BookingRequest is the transient input to Service.Book. It either becomes
// an Appointment or is discarded with a typed rejection.
type BookingRequest struct {
	ProviderID     uuid.UUID
	PatientID      uuid.UUID
	Start          time.Time
	End            time.Time
	IdempotencyKey string // optional, client-generated
}

type ValidationResult string

const (
	ValidationConfirmed     ValidationResult = "confirmed"
	ValidationNotFound      ValidationResult = "not_found"
	ValidationIndeterminate ValidationResult = "indeterminate"
)

const (
	EventAppointmentCommitted = "APPOINTMENT_COMMITTED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

// EventRecord is an outbox row written after a schedule mutation commits.
// The relay worker drains unpublished rows outside the booking critical path.
type EventRecord struct {
	ID            int64
	EventType     string
	AppointmentID uuid.UUID
	Payload       []byte
	PublishedAt   *time.Time
	CreatedAt     time.Time
}
