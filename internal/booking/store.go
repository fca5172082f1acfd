package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store owns the authoritative appointment records per provider.
//
// Insert re-checks for conflicts at insert time rather than trusting a prior
// read; combined with the per-provider Locker held by the service this closes
// the race window between check and commit.
type Store interface {
	// Insert commits a scheduled appointment, or fails with ErrConflict if an
	// overlapping scheduled appointment exists for the same provider. The
	// check and the write are atomic; a conflict leaves the store unchanged.
	Insert(ctx context.Context, appt Appointment) (*Appointment, error)

	// Cancel transitions scheduled -> cancelled. Unknown ids fail with
	// ErrAppointmentNotFound; cancelling an already cancelled appointment is
	// a no-op, making cancellation idempotent.
	Cancel(ctx context.Context, id uuid.UUID) error

	// GetByID returns the appointment regardless of status.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListForProvider returns the provider's scheduled appointments whose
	// intervals intersect [from, to), ordered by start time. Zero from/to
	// mean unbounded on that side. Readers observe a consistent snapshot.
	ListForProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// InsertEvent appends an outbox row. Called after commit, outside the
	// provider critical section.
	InsertEvent(ctx context.Context, ev EventRecord) error
}

// EventSource is the outbox read side used by the relay worker.
type EventSource interface {
	UnpublishedEvents(ctx context.Context, limit int) ([]EventRecord, error)
	MarkPublished(ctx context.Context, ids []int64, at time.Time) error
}
