package booking

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// RetryPolicy bounds the validation call: per-attempt timeout, a small number
// of attempts, exponential backoff with jitter between them, and an aggregate
// deadline after which the final result is surfaced as indeterminate. Only
// indeterminate outcomes are retried; a definitive not_found never is.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Deadline       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		AttemptTimeout: 2 * time.Second,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Deadline:       5 * time.Second,
	}
}

// Validate runs the validator under the policy and returns the last observed
// result. The error carries transport detail for the indeterminate case.
func (p RetryPolicy) Validate(ctx context.Context, v PatientValidator, patientID uuid.UUID) (ValidationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Deadline)
	defer cancel()

	result := ValidationIndeterminate
	var lastErr error

	operation := func() error {
		attemptCtx, attemptCancel := context.WithTimeout(ctx, p.AttemptTimeout)
		defer attemptCancel()

		res, err := v.Validate(attemptCtx, patientID)
		result = res
		lastErr = err

		if res == ValidationIndeterminate {
			if err == nil {
				err = ErrPatientUnverified
			}
			return err
		}
		// confirmed and not_found are both definitive
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	b.MaxElapsedTime = p.Deadline

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	_ = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))

	return result, lastErr
}
