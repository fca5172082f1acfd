package patientsvc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

// Repository contains the patient service's DB interactions.
type Repository interface {
	Create(ctx context.Context, p Patient) (*Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, limit, offset int) ([]Patient, error)
}

// NewPatient assembles a patient record with a fresh id; timestamps are
// assigned by the store.
func NewPatient(name string, email, phone *string, dob *time.Time) Patient {
	return Patient{
		ID:          uuid.New(),
		Name:        name,
		Email:       email,
		Phone:       phone,
		DateOfBirth: dob,
	}
}
