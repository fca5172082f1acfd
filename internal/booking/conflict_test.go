package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func at(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		t.Fatalf("bad time %q: %v", hhmm, err)
	}
	return time.Date(2025, 6, 2, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name         string
		aStart, aEnd string
		bStart, bEnd string
		want         bool
	}{
		{"identical", "10:00", "10:30", "10:00", "10:30", true},
		{"partial overlap", "10:15", "10:45", "10:00", "10:30", true},
		{"contained", "10:10", "10:20", "10:00", "10:30", true},
		{"containing", "09:00", "11:00", "10:00", "10:30", true},
		{"back to back after", "10:30", "11:00", "10:00", "10:30", false},
		{"back to back before", "09:30", "10:00", "10:00", "10:30", false},
		{"disjoint", "12:00", "12:30", "10:00", "10:30", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(at(t, tc.aStart), at(t, tc.aEnd), at(t, tc.bStart), at(t, tc.bEnd))
			assert.Equal(t, tc.want, got)
			// overlap is symmetric
			assert.Equal(t, tc.want, Overlaps(at(t, tc.bStart), at(t, tc.bEnd), at(t, tc.aStart), at(t, tc.aEnd)))
		})
	}
}

func TestFindConflict(t *testing.T) {
	providerA := uuid.New()
	providerB := uuid.New()

	existing := []Appointment{
		{ID: uuid.New(), ProviderID: providerA, Status: StatusScheduled, Start: at(t, "10:00"), End: at(t, "10:30")},
		{ID: uuid.New(), ProviderID: providerA, Status: StatusCancelled, Start: at(t, "11:00"), End: at(t, "11:30")},
		{ID: uuid.New(), ProviderID: providerB, Status: StatusScheduled, Start: at(t, "12:00"), End: at(t, "12:30")},
	}

	t.Run("overlapping scheduled conflicts", func(t *testing.T) {
		got := FindConflict(providerA, at(t, "10:15"), at(t, "10:45"), existing)
		assert.NotNil(t, got)
		assert.Equal(t, existing[0].ID, got.ID)
	})

	t.Run("cancelled never conflicts", func(t *testing.T) {
		assert.Nil(t, FindConflict(providerA, at(t, "11:00"), at(t, "11:30"), existing))
	})

	t.Run("other provider never conflicts", func(t *testing.T) {
		assert.Nil(t, FindConflict(providerA, at(t, "12:00"), at(t, "12:30"), existing))
	})

	t.Run("boundary adjacent does not conflict", func(t *testing.T) {
		assert.Nil(t, FindConflict(providerA, at(t, "10:30"), at(t, "11:00"), existing))
	})
}
