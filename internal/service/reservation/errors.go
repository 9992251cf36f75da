package reservation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLockTimeout means the admission lock could not be acquired within
	// the configured wait. Nothing was changed; the caller may retry.
	ErrLockTimeout = errors.New("reservation was not processed because of a lock timeout, please try again")

	// ErrDuplicateSubmission means the submission overlaps an existing
	// active booking with the same email and phone.
	ErrDuplicateSubmission = errors.New("submitted reservation duplicates a reservation you have already made")

	// ErrInvalidContact means the confirmation email could not be
	// delivered; the booking was not persisted.
	ErrInvalidContact = errors.New("confirmation email could not be delivered to the submitted address")
)

// ValidationError reports a malformed submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SlotShortfall names one slot that cannot seat the requested party.
type SlotShortfall struct {
	Start     string `json:"startTime"`
	Remaining int    `json:"remainingSeats"`
}

// CapacityExceededError rejects a submission that would oversell at least
// one slot it spans.
type CapacityExceededError struct {
	Date  string
	Slots []SlotShortfall
}

func (e *CapacityExceededError) Error() string {
	starts := make([]string, len(e.Slots))
	for i, s := range e.Slots {
		starts[i] = s.Start
	}
	return fmt.Sprintf("not enough seats on %s at %s, please reserve another time or date", e.Date, strings.Join(starts, ", "))
}

// StoreWriteError wraps an I/O failure while appending to the active store.
type StoreWriteError struct {
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("writing reservation to store: %v", e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
