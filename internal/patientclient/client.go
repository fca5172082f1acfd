package patientclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/caresync/healthcare-backend/internal/booking"
)

// Client is the booking service's view of the patient service: a single
// existence-check endpoint. It implements booking.PatientValidator.
//
// Outcome mapping: 200 with an explicit exists flag, or a 404, are
// definitive. Everything else (5xx, malformed body, transport error, open
// circuit breaker) is indeterminate and left to the retry policy.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[booking.ValidationResult]
}

func New(baseURL string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker[booking.ValidationResult](gobreaker.Settings{
		Name:    "patient-service",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

func (c *Client) Validate(ctx context.Context, patientID uuid.UUID) (booking.ValidationResult, error) {
	result, err := c.breaker.Execute(func() (booking.ValidationResult, error) {
		return c.check(ctx, patientID)
	})
	if err != nil {
		return booking.ValidationIndeterminate, err
	}
	return result, nil
}

// check returns an error only for transport-level failures, so definitive
// not-found responses never count against the circuit breaker.
func (c *Client) check(ctx context.Context, patientID uuid.UUID) (booking.ValidationResult, error) {
	url := fmt.Sprintf("%s/patients/%s/exists", c.baseURL, patientID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return booking.ValidationIndeterminate, fmt.Errorf("build existence request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return booking.ValidationIndeterminate, fmt.Errorf("call patient service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body existsResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return booking.ValidationIndeterminate, fmt.Errorf("decode existence response: %w", err)
		}
		if body.Exists {
			return booking.ValidationConfirmed, nil
		}
		return booking.ValidationNotFound, nil

	case resp.StatusCode == http.StatusNotFound:
		return booking.ValidationNotFound, nil

	default:
		return booking.ValidationIndeterminate, fmt.Errorf("patient service returned status %d", resp.StatusCode)
	}
}
