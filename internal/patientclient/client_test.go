package patientclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caresync/healthcare-backend/internal/booking"
)

func patientServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, time.Second)
}

func TestValidateConfirmsExistingPatient(t *testing.T) {
	client := patientServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/exists")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"exists": true}`))
	})

	result, err := client.Validate(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, booking.ValidationConfirmed, result)
}

func TestValidateMapsExistsFalseToNotFound(t *testing.T) {
	client := patientServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"exists": false}`))
	})

	result, err := client.Validate(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, booking.ValidationNotFound, result)
}

func TestValidateMaps404ToNotFound(t *testing.T) {
	client := patientServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	result, err := client.Validate(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, booking.ValidationNotFound, result)
}

func TestValidateServerErrorIsIndeterminate(t *testing.T) {
	client := patientServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	result, err := client.Validate(context.Background(), uuid.New())

	assert.Error(t, err)
	assert.Equal(t, booking.ValidationIndeterminate, result)
}

func TestValidateMalformedBodyIsIndeterminate(t *testing.T) {
	client := patientServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"exists":`))
	})

	result, err := client.Validate(context.Background(), uuid.New())

	assert.Error(t, err)
	assert.Equal(t, booking.ValidationIndeterminate, result)
}

func TestValidateTimeoutIsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	client := New(srv.URL, 50*time.Millisecond)

	result, err := client.Validate(context.Background(), uuid.New())

	assert.Error(t, err)
	assert.Equal(t, booking.ValidationIndeterminate, result)
}

func TestValidateUnreachableServiceIsIndeterminate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := New(srv.URL, time.Second)

	result, err := client.Validate(context.Background(), uuid.New())

	assert.Error(t, err)
	assert.Equal(t, booking.ValidationIndeterminate, result)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int64
	client := patientServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		result, err := client.Validate(context.Background(), uuid.New())
		assert.Error(t, err)
		assert.Equal(t, booking.ValidationIndeterminate, result)
	}
	require.Equal(t, int64(5), calls.Load())

	// breaker is open now: requests short-circuit without hitting the server
	result, err := client.Validate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, booking.ValidationIndeterminate, result)
	assert.Equal(t, int64(5), calls.Load())
}

func TestBreakerIgnoresDefinitiveNotFound(t *testing.T) {
	client := patientServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	// well past the trip threshold: definitive outcomes never open the breaker
	for i := 0; i < 10; i++ {
		result, err := client.Validate(context.Background(), uuid.New())
		require.NoError(t, err)
		require.Equal(t, booking.ValidationNotFound, result)
		require.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}
}
