package booking

import "errors"

var (
	// ErrInvalidInterval rejects requests where start >= end before any
	// external call is made.
	ErrInvalidInterval = errors.New("appointment start must be before end")

	// ErrPatientNotFound means the patient service explicitly reported the
	// patient does not exist.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrPatientUnverified means patient existence could not be confirmed or
	// denied within the retry budget. Never conflated with ErrPatientNotFound.
	ErrPatientUnverified = errors.New("patient existence could not be verified")

	// ErrConflict means the requested interval overlaps a scheduled
	// appointment for the same provider.
	ErrConflict = errors.New("appointment conflicts with an existing booking")

	// ErrAppointmentNotFound means the appointment id is unknown.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrProviderBusy means the provider's critical section could not be
	// entered within the lock wait budget.
	ErrProviderBusy = errors.New("provider schedule is busy, please retry")
)
