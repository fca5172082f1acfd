package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPgStoreMock(t *testing.T) (*PgStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgStore(mock), mock
}

func appointmentRows(a Appointment) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "provider_id", "patient_id", "start_time", "end_time", "status", "created_at", "updated_at",
	}).AddRow(a.ID, a.ProviderID, a.PatientID, a.Start, a.End, a.Status, a.CreatedAt, a.UpdatedAt)
}

func TestPgStoreInsertCommitsWhenNoConflict(t *testing.T) {
	store, mock := newPgStoreMock(t)
	now := time.Now().UTC()
	appt := Appointment{
		ID:         uuid.New(),
		ProviderID: uuid.New(),
		PatientID:  uuid.New(),
		Start:      at(t, "10:00"),
		End:        at(t, "10:30"),
		Status:     StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id\s+FROM appointments`).
		WithArgs(appt.ProviderID, appt.Start, appt.End).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(appt.ID, appt.ProviderID, appt.PatientID, appt.Start, appt.End).
		WillReturnRows(appointmentRows(appt))
	mock.ExpectCommit()

	created, err := store.Insert(context.Background(), appt)

	require.NoError(t, err)
	assert.Equal(t, appt.ID, created.ID)
	assert.Equal(t, StatusScheduled, created.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreInsertRollsBackOnConflict(t *testing.T) {
	store, mock := newPgStoreMock(t)
	provider := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id\s+FROM appointments`).
		WithArgs(provider, at(t, "10:00"), at(t, "10:30")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectRollback()

	_, err := store.Insert(context.Background(), Appointment{
		ProviderID: provider,
		PatientID:  uuid.New(),
		Start:      at(t, "10:00"),
		End:        at(t, "10:30"),
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreCancelUpdatesScheduledRow(t *testing.T) {
	store, mock := newPgStoreMock(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE appointments`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, store.Cancel(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreCancelAlreadyCancelledIsNoOp(t *testing.T) {
	store, mock := newPgStoreMock(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE appointments`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT status FROM appointments`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusCancelled))

	assert.NoError(t, store.Cancel(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreCancelUnknownAppointment(t *testing.T) {
	store, mock := newPgStoreMock(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE appointments`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT status FROM appointments`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	assert.ErrorIs(t, store.Cancel(context.Background(), id), ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreGetByIDNotFound(t *testing.T) {
	store, mock := newPgStoreMock(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM appointments`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetByID(context.Background(), id)

	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreListForProvider(t *testing.T) {
	store, mock := newPgStoreMock(t)
	provider := uuid.New()
	now := time.Now().UTC()

	first := Appointment{
		ID: uuid.New(), ProviderID: provider, PatientID: uuid.New(),
		Start: at(t, "09:00"), End: at(t, "09:30"),
		Status: StatusScheduled, CreatedAt: now, UpdatedAt: now,
	}
	second := Appointment{
		ID: uuid.New(), ProviderID: provider, PatientID: uuid.New(),
		Start: at(t, "10:00"), End: at(t, "10:30"),
		Status: StatusScheduled, CreatedAt: now, UpdatedAt: now,
	}

	rows := appointmentRows(first).
		AddRow(second.ID, second.ProviderID, second.PatientID, second.Start, second.End, second.Status, second.CreatedAt, second.UpdatedAt)

	mock.ExpectQuery(`SELECT .+ FROM appointments`).
		WithArgs(provider, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(rows)

	appts, err := store.ListForProvider(context.Background(), provider, time.Time{}, time.Time{})

	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, first.ID, appts[0].ID)
	assert.Equal(t, second.ID, appts[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreMarkPublishedSkipsEmptyBatch(t *testing.T) {
	store, mock := newPgStoreMock(t)

	// no expectations registered: an empty batch must not touch the database
	assert.NoError(t, store.MarkPublished(context.Background(), nil, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
