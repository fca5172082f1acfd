package patientsvc

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID          uuid.UUID
	Name        string
	Email       *string
	DateOfBirth *time.Time
	Phone       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
