package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type RecordStatus string

const (
	// StatusNone marks a normal active customer booking.
	StatusNone RecordStatus = ""
	// StatusCancelled marks a logically deleted row. Any status containing
	// "cancel" (case-insensitive) counts as cancelled; rows are never
	// removed in place.
	StatusCancelled RecordStatus = "cancel"
	// StatusTemporaryHoliday blacks out whole dates regardless of party size.
	StatusTemporaryHoliday RecordStatus = "temporaryHoliday"
	// StatusReservedDayTime is an operator block consuming full capacity
	// for its interval.
	StatusReservedDayTime RecordStatus = "reservedDayTime"
)

// Record is one row of the active (or archive) store. Rows are append-only:
// a cancellation is a status change, never a deletion of historical fields.
type Record struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Name      string
	Email     string
	Phone     string
	PartySize int
	Start     time.Time
	End       time.Time
	Status    RecordStatus
	Comment   string
}

func (r Record) Cancelled() bool {
	return strings.Contains(strings.ToLower(string(r.Status)), "cancel")
}

// Overlaps reports whether the [start, end) interval collides with the
// record's interval. Both endpoints of the candidate are tested against the
// record's half-open interval: a collision exists when either falls inside
// [r.Start, r.End).
func (r Record) Overlaps(start, end time.Time) bool {
	return within(r.Start, r.End, start) || within(r.Start, r.End, end)
}

func within(start, end, t time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
