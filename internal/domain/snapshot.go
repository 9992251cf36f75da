package domain

// Snapshot is the derived availability view: one entry per calendar day in
// the booking window, ordered by date. It is recomputed from the active
// store on every read and never persisted.
type Snapshot struct {
	Days []Day `json:"days"`
}

// Day holds the per-slot availability for one date. Holiday days (closed
// weekdays or dates covered by a temporaryHoliday row) carry no slots.
type Day struct {
	Date    string `json:"date"`
	Holiday bool   `json:"holiday"`
	Slots   []Slot `json:"slots,omitempty"`
}

// Slot is one bookable start time. End is the service end label, start plus
// the average occupancy duration.
type Slot struct {
	Start          string       `json:"startTime"`
	End            string       `json:"endTime"`
	ReservedSeats  int          `json:"reservedSeats"`
	RemainingSeats int          `json:"remainingSeats"`
	Full           bool         `json:"full"`
	BlockStatus    RecordStatus `json:"blockStatus,omitempty"`
}

// Day returns the entry for the given date string, or nil when the date is
// outside the snapshot window.
func (s *Snapshot) Day(date string) *Day {
	for i := range s.Days {
		if s.Days[i].Date == date {
			return &s.Days[i]
		}
	}
	return nil
}

// Slot returns the slot starting at the given label on the given date, or
// nil when absent.
func (d *Day) Slot(start string) *Slot {
	for i := range d.Slots {
		if d.Slots[i].Start == start {
			return &d.Slots[i]
		}
	}
	return nil
}
