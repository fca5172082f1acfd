package booking

import (
	"context"

	"github.com/google/uuid"
)

// PatientValidator performs a single logical existence check against the
// patient service. The three outcomes are disjoint: an explicit "does not
// exist" is ValidationNotFound, an explicit "exists" is ValidationConfirmed,
// and any transport-level failure (timeout, connection refused, 5xx,
// malformed response) is ValidationIndeterminate with the underlying error.
// Indeterminate is never treated as confirmation.
type PatientValidator interface {
	Validate(ctx context.Context, patientID uuid.UUID) (ValidationResult, error)
}

// Locker guards the conflict-check-then-insert critical section for one
// provider. Bookings for different providers proceed independently.
type Locker interface {
	WithProviderLock(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context) error) error
}

// IdempotencyStore remembers which appointment a client-generated key
// produced, so a retried submission returns the original booking instead of
// creating a duplicate.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (uuid.UUID, bool, error)
	Remember(ctx context.Context, key string, appointmentID uuid.UUID) error
}
