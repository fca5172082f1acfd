package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caresync/healthcare-backend/internal/observability/metrics"
)

// Service orchestrates a booking request: validate the patient through the
// retry policy, then enter the provider's critical section and let the store
// re-check conflicts at insert time. Validation never holds the provider
// lock, so a slow patient service cannot block other bookings.
type Service struct {
	store     Store
	validator PatientValidator
	retry     RetryPolicy
	locker    Locker
	idem      IdempotencyStore
	metrics   *metrics.BookingMetrics
	log       zerolog.Logger
}

func NewService(store Store, validator PatientValidator, retry RetryPolicy, locker Locker, opts ...Option) *Service {
	s := &Service{
		store:     store,
		validator: validator,
		retry:     retry,
		locker:    locker,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(*Service)

func WithIdempotencyStore(idem IdempotencyStore) Option {
	return func(s *Service) { s.idem = idem }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// Book drives one request through the state machine. Every path terminates
// in exactly one committed appointment or one typed rejection.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	start := time.Now()
	s.metrics.IncInFlight()
	defer s.metrics.DecInFlight()

	appt, err := s.book(ctx, req)
	s.metrics.ObserveBooking(outcomeLabel(err), time.Since(start))
	return appt, err
}

func (s *Service) book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	// Rejected before any external call is made.
	if !req.Start.Before(req.End) {
		return nil, ErrInvalidInterval
	}

	if existing, ok, err := s.replayIdempotent(ctx, req.IdempotencyKey); err == nil && ok {
		return existing, nil
	} else if err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", req.IdempotencyKey).Msg("idempotency lookup failed, proceeding")
	}

	result, verr := s.retry.Validate(ctx, s.validator, req.PatientID)
	s.metrics.ObserveValidation(string(result))

	switch result {
	case ValidationNotFound:
		return nil, ErrPatientNotFound
	case ValidationIndeterminate:
		s.log.Warn().
			Err(verr).
			Str("patient_id", req.PatientID.String()).
			Msg("patient validation exhausted retry budget")
		if verr != nil {
			return nil, fmt.Errorf("%w: %w", ErrPatientUnverified, verr)
		}
		return nil, ErrPatientUnverified
	case ValidationConfirmed:
		// proceed to conflict checking
	default:
		return nil, fmt.Errorf("%w: unexpected validation result %q", ErrPatientUnverified, result)
	}

	var created *Appointment
	err := s.locker.WithProviderLock(ctx, req.ProviderID, func(lockCtx context.Context) error {
		appt, err := s.store.Insert(lockCtx, Appointment{
			ProviderID: req.ProviderID,
			PatientID:  req.PatientID,
			Start:      req.Start,
			End:        req.End,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit work stays outside the provider critical section.
	if s.idem != nil && req.IdempotencyKey != "" {
		if err := s.idem.Remember(ctx, req.IdempotencyKey, created.ID); err != nil {
			s.log.Warn().Err(err).Str("appointment_id", created.ID.String()).Msg("failed to record idempotency key")
		}
	}
	s.emitEvent(ctx, EventAppointmentCommitted, created)

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("provider_id", created.ProviderID.String()).
		Time("start", created.Start).
		Time("end", created.End).
		Msg("appointment committed")

	return created, nil
}

func (s *Service) replayIdempotent(ctx context.Context, key string) (*Appointment, bool, error) {
	if s.idem == nil || key == "" {
		return nil, false, nil
	}
	id, ok, err := s.idem.Lookup(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return appt, true, nil
}

// Cancel transitions an appointment to cancelled. Repeated cancellation of
// the same appointment succeeds without touching anything else.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	prior, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.locker.WithProviderLock(ctx, prior.ProviderID, func(lockCtx context.Context) error {
		return s.store.Cancel(lockCtx, id)
	})
	if err != nil {
		return err
	}

	if prior.Status == StatusScheduled {
		cancelled := *prior
		cancelled.Status = StatusCancelled
		s.emitEvent(ctx, EventAppointmentCancelled, &cancelled)
		s.log.Info().Str("appointment_id", id.String()).Msg("appointment cancelled")
	}

	return nil
}

// GetByID returns an appointment regardless of status.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// ListForProvider returns the provider's scheduled appointments intersecting
// [from, to), ordered by start time.
func (s *Service) ListForProvider(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return s.store.ListForProvider(ctx, providerID, from, to)
}

func (s *Service) emitEvent(ctx context.Context, eventType string, appt *Appointment) {
	payload, err := json.Marshal(map[string]any{
		"provider_id": appt.ProviderID.String(),
		"patient_id":  appt.PatientID.String(),
		"start":       appt.Start,
		"end":         appt.End,
		"status":      string(appt.Status),
	})
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		payload = nil
	}

	ev := EventRecord{
		EventType:     eventType,
		AppointmentID: appt.ID,
		Payload:       payload,
		CreatedAt:     time.Now(),
	}

	if err := s.store.InsertEvent(ctx, ev); err != nil {
		s.log.Error().
			Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appt.ID.String()).
			Msg("failed to insert booking event")
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, ErrPatientNotFound):
		return "patient_not_found"
	case errors.Is(err, ErrPatientUnverified):
		return "validation_indeterminate"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrProviderBusy):
		return "provider_busy"
	default:
		return "error"
	}
}
