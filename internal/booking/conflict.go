package booking

import (
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. An interval ending exactly when another begins
// does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FindConflict returns the first scheduled appointment for the given provider
// whose interval overlaps [start, end), or nil. Provider match is exact;
// cancelled appointments never conflict.
func FindConflict(providerID uuid.UUID, start, end time.Time, existing []Appointment) *Appointment {
	for i := range existing {
		a := &existing[i]
		if a.ProviderID != providerID || a.Status != StatusScheduled {
			continue
		}
		if Overlaps(start, end, a.Start, a.End) {
			return a
		}
	}
	return nil
}
