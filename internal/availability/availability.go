// Package availability derives the slotted availability calendar from the
// active record set and detects conflicting rows. Everything here is pure:
// the same records, settings and clock produce an identical snapshot, so
// the admission path can recompute before and after a write.
package availability

import (
	"sort"
	"time"

	"github.com/mkrylov/tablebook/internal/domain"
	"github.com/mkrylov/tablebook/internal/schedule"
)

const dateLayout = "2006-01-02"

// Calculate builds the availability snapshot for the closed window
// [today+1 day, today+horizon] and returns it together with any anomalous
// rows found on the way.
//
// Holiday intervals and operator blocks are expected to be disjoint from
// customer bookings. Overlaps are not repaired: the conflicting customer
// rows are excluded from seat counting and reported back so the caller can
// alert an operator.
func Calculate(records []domain.Record, s *schedule.Settings, today time.Time) (*domain.Snapshot, []domain.Record) {
	customers, holidays, blocks := partition(records, s)

	conflictingBlocks, _ := splitConflicting(blocks, holidays)
	conflictingCustomers, cleanCustomers := splitConflicting(customers, append(append([]domain.Record{}, holidays...), blocks...))
	anomalies := append(conflictingBlocks, conflictingCustomers...)

	counted := append(cleanCustomers, blocks...)
	sort.SliceStable(counted, func(i, j int) bool { return counted[i].Start.Before(counted[j].Start) })
	byDate := map[string][]domain.Record{}
	for _, r := range counted {
		d := r.Start.In(s.Location).Format(dateLayout)
		byDate[d] = append(byDate[d], r)
	}

	holidayDates := expandHolidayDates(holidays, s.Location)

	from, to := s.Window(today)
	snapshot := &domain.Snapshot{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format(dateLayout)
		if !s.Operating(d.Weekday()) || holidayDates[dateStr] {
			snapshot.Days = append(snapshot.Days, domain.Day{Date: dateStr, Holiday: true})
			continue
		}
		snapshot.Days = append(snapshot.Days, domain.Day{
			Date:  dateStr,
			Slots: daySlots(d, byDate[dateStr], s),
		})
	}
	return snapshot, anomalies
}

// Duplicate reports whether the submission collides with an existing active
// record by the same customer: equal email and phone, overlapping interval.
func Duplicate(records []domain.Record, email, phone string, start, end time.Time) bool {
	for _, r := range records {
		if r.Cancelled() {
			continue
		}
		if r.Email == email && r.Phone == phone && r.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// partition splits the non-cancelled rows into customer bookings, holiday
// intervals (endpoints truncated to midnight) and operator blocks (party
// size forced to full capacity). Rows with unrecognized statuses are
// ignored. Input records are never mutated.
func partition(records []domain.Record, s *schedule.Settings) (customers, holidays, blocks []domain.Record) {
	for _, r := range records {
		if r.Cancelled() {
			continue
		}
		switch r.Status {
		case domain.StatusNone:
			customers = append(customers, r)
		case domain.StatusTemporaryHoliday:
			r.Start = midnight(r.Start, s.Location)
			r.End = midnight(r.End, s.Location)
			holidays = append(holidays, r)
		case domain.StatusReservedDayTime:
			r.PartySize = s.Capacity
			blocks = append(blocks, r)
		}
	}
	return customers, holidays, blocks
}

// splitConflicting partitions candidates by whether any blocker's interval
// covers the candidate's start or end instant (half-open test).
func splitConflicting(candidates, blockers []domain.Record) (conflicting, clean []domain.Record) {
	for _, c := range candidates {
		hit := false
		for _, b := range blockers {
			if b.Overlaps(c.Start, c.End) {
				hit = true
				break
			}
		}
		if hit {
			conflicting = append(conflicting, c)
		} else {
			clean = append(clean, c)
		}
	}
	return conflicting, clean
}

func daySlots(day time.Time, records []domain.Record, s *schedule.Settings) []domain.Slot {
	slots := make([]domain.Slot, 0, len(s.Slots))
	for _, label := range s.Slots {
		min, _ := schedule.ParseClock(label)
		at := day.Add(time.Duration(min) * time.Minute)
		reserved := 0
		var status domain.RecordStatus
		for _, r := range records {
			if !at.Before(r.Start) && at.Before(r.End) {
				reserved += r.PartySize
				status = r.Status
			}
		}
		remaining := s.Capacity - reserved
		slots = append(slots, domain.Slot{
			Start:          label,
			End:            schedule.Label(min + s.MealMin),
			ReservedSeats:  reserved,
			RemainingSeats: remaining,
			Full:           remaining <= 0,
			BlockStatus:    status,
		})
	}
	return slots
}

// expandHolidayDates flattens holiday intervals into the set of covered
// date strings, end date inclusive.
func expandHolidayDates(holidays []domain.Record, loc *time.Location) map[string]bool {
	dates := map[string]bool{}
	for _, h := range holidays {
		for d := h.Start; !d.After(h.End); d = d.AddDate(0, 0, 1) {
			dates[d.In(loc).Format(dateLayout)] = true
		}
	}
	return dates
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
