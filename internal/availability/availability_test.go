package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mkrylov/tablebook/internal/domain"
	"github.com/mkrylov/tablebook/internal/schedule"
	"github.com/stretchr/testify/assert"
)

var today = time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC) // a Sunday

func testSettings(t *testing.T, edit func(map[string]string)) *schedule.Settings {
	t.Helper()
	raw := map[string]string{
		"totalSeats":               "10",
		"operatingDay":             "Sunday,Monday,Tuesday,Wednesday,Thursday,Friday,Saturday",
		"openingTime":              "10:00",
		"closingTime":              "22:00",
		"averageMealTime_min":      "120",
		"step_min":                 "30",
		"maximumReservation_month": "1",
	}
	if edit != nil {
		edit(raw)
	}
	s, err := schedule.Resolve(raw)
	assert.NoError(t, err)
	return s
}

func record(start, end time.Time, size int, status domain.RecordStatus) domain.Record {
	return domain.Record{
		ID:        uuid.New(),
		CreatedAt: today,
		Name:      "Guest",
		Email:     "guest@example.com",
		Phone:     "0123456789",
		PartySize: size,
		Start:     start,
		End:       end,
		Status:    status,
	}
}

func at(day, clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", day+" "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalculate_EmptyStore(t *testing.T) {
	s := testSettings(t, nil)

	snapshot, anomalies := Calculate(nil, s, today)
	assert.Empty(t, anomalies)
	assert.Equal(t, "2026-03-16", snapshot.Days[0].Date)
	assert.Equal(t, "2026-04-15", snapshot.Days[len(snapshot.Days)-1].Date)

	day := snapshot.Day("2026-03-20")
	assert.NotNil(t, day)
	assert.False(t, day.Holiday)
	assert.Len(t, day.Slots, 21)
	for _, slot := range day.Slots {
		assert.Equal(t, 10, slot.RemainingSeats)
		assert.False(t, slot.Full)
	}
}

func TestCalculate_RoundTrip(t *testing.T) {
	s := testSettings(t, nil)
	booking := record(at("2026-03-20", "18:00"), at("2026-03-20", "20:00"), 4, domain.StatusNone)

	snapshot, anomalies := Calculate([]domain.Record{booking}, s, today)
	assert.Empty(t, anomalies)

	day := snapshot.Day("2026-03-20")
	for _, slot := range day.Slots {
		switch slot.Start {
		case "18:00", "18:30", "19:00", "19:30":
			assert.Equal(t, 4, slot.ReservedSeats, "slot %s", slot.Start)
			assert.Equal(t, 6, slot.RemainingSeats, "slot %s", slot.Start)
		default:
			// The interval is half-open: the 20:00 slot is untouched.
			assert.Equal(t, 0, slot.ReservedSeats, "slot %s", slot.Start)
			assert.Equal(t, 10, slot.RemainingSeats, "slot %s", slot.Start)
		}
	}

	// Other days stay untouched.
	other := snapshot.Day("2026-03-21")
	for _, slot := range other.Slots {
		assert.Equal(t, 10, slot.RemainingSeats)
	}
}

func TestCalculate_HolidayBlocksDateRegardlessOfBookings(t *testing.T) {
	s := testSettings(t, nil)
	holiday := record(at("2026-03-20", "00:00"), at("2026-03-21", "00:00"), 0, domain.StatusTemporaryHoliday)
	booking := record(at("2026-03-20", "18:00"), at("2026-03-20", "20:00"), 4, domain.StatusNone)

	snapshot, anomalies := Calculate([]domain.Record{holiday, booking}, s, today)

	for _, date := range []string{"2026-03-20", "2026-03-21"} {
		day := snapshot.Day(date)
		assert.True(t, day.Holiday, date)
		assert.Empty(t, day.Slots, date)
	}
	// The overlapping customer booking is an anomaly, not silently dropped.
	assert.Len(t, anomalies, 1)
	assert.Equal(t, booking.ID, anomalies[0].ID)
}

func TestCalculate_OperatorBlockConsumesFullCapacity(t *testing.T) {
	s := testSettings(t, nil)
	// The stored party size of an operator block is irrelevant.
	block := record(at("2026-03-20", "18:00"), at("2026-03-20", "20:00"), 1, domain.StatusReservedDayTime)

	snapshot, anomalies := Calculate([]domain.Record{block}, s, today)
	assert.Empty(t, anomalies)

	day := snapshot.Day("2026-03-20")
	assert.False(t, day.Holiday)
	for _, slot := range day.Slots {
		switch slot.Start {
		case "18:00", "18:30", "19:00", "19:30":
			assert.Equal(t, 0, slot.RemainingSeats)
			assert.True(t, slot.Full)
			assert.Equal(t, domain.StatusReservedDayTime, slot.BlockStatus)
		default:
			assert.Equal(t, 10, slot.RemainingSeats)
		}
	}
}

func TestCalculate_CancelledRowsExcluded(t *testing.T) {
	s := testSettings(t, nil)
	cancelled := record(at("2026-03-20", "18:00"), at("2026-03-20", "20:00"), 4, "Cancelled by phone")

	snapshot, anomalies := Calculate([]domain.Record{cancelled}, s, today)
	assert.Empty(t, anomalies)

	day := snapshot.Day("2026-03-20")
	for _, slot := range day.Slots {
		assert.Equal(t, 10, slot.RemainingSeats)
	}
}

func TestCalculate_NonOperatingWeekday(t *testing.T) {
	s := testSettings(t, func(raw map[string]string) {
		raw["operatingDay"] = "Tuesday,Wednesday,Thursday,Friday,Saturday,Sunday"
	})

	snapshot, _ := Calculate(nil, s, today)

	monday := snapshot.Day("2026-03-16")
	assert.True(t, monday.Holiday)
	assert.Empty(t, monday.Slots)

	tuesday := snapshot.Day("2026-03-17")
	assert.False(t, tuesday.Holiday)
}

func TestCalculate_ConflictingCustomerExcludedFromCounts(t *testing.T) {
	s := testSettings(t, nil)
	block := record(at("2026-03-20", "12:00"), at("2026-03-20", "14:00"), 0, domain.StatusReservedDayTime)
	conflicting := record(at("2026-03-20", "13:00"), at("2026-03-20", "15:00"), 4, domain.StatusNone)
	clean := record(at("2026-03-20", "18:00"), at("2026-03-20", "20:00"), 3, domain.StatusNone)

	snapshot, anomalies := Calculate([]domain.Record{block, conflicting, clean}, s, today)

	assert.Len(t, anomalies, 1)
	assert.Equal(t, conflicting.ID, anomalies[0].ID)

	day := snapshot.Day("2026-03-20")
	// 14:00 and 14:30 are covered only by the conflicting booking, which
	// does not count.
	assert.Equal(t, 10, day.Slot("14:00").RemainingSeats)
	assert.Equal(t, 10, day.Slot("14:30").RemainingSeats)
	assert.Equal(t, 0, day.Slot("12:00").RemainingSeats)
	assert.Equal(t, 7, day.Slot("18:00").RemainingSeats)
}

func TestCalculate_Pure(t *testing.T) {
	s := testSettings(t, nil)
	records := []domain.Record{
		record(at("2026-03-20", "18:00"), at("2026-03-20", "20:00"), 4, domain.StatusNone),
		record(at("2026-03-22", "00:00"), at("2026-03-23", "00:00"), 0, domain.StatusTemporaryHoliday),
		record(at("2026-03-25", "10:00"), at("2026-03-25", "22:00"), 0, domain.StatusReservedDayTime),
	}

	first, firstAnomalies := Calculate(records, s, today)
	second, secondAnomalies := Calculate(records, s, today)
	assert.Equal(t, first, second)
	assert.Equal(t, firstAnomalies, secondAnomalies)

	// Input records are not mutated either.
	assert.Equal(t, 0, records[2].PartySize)
}

func TestDuplicate(t *testing.T) {
	existing := record(at("2026-03-20", "18:00"), at("2026-03-20", "20:00"), 4, domain.StatusNone)
	records := []domain.Record{existing}

	assert.True(t, Duplicate(records, "guest@example.com", "0123456789", at("2026-03-20", "19:00"), at("2026-03-20", "21:00")))
	assert.False(t, Duplicate(records, "guest@example.com", "0123456789", at("2026-03-20", "20:00"), at("2026-03-20", "22:00")))
	assert.False(t, Duplicate(records, "guest@example.com", "0999999999", at("2026-03-20", "19:00"), at("2026-03-20", "21:00")))
	assert.False(t, Duplicate(records, "other@example.com", "0123456789", at("2026-03-20", "19:00"), at("2026-03-20", "21:00")))

	cancelled := existing
	cancelled.Status = "cancel"
	assert.False(t, Duplicate([]domain.Record{cancelled}, "guest@example.com", "0123456789", at("2026-03-20", "19:00"), at("2026-03-20", "21:00")))
}
