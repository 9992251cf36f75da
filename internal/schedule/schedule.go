// Package schedule resolves raw operator settings into the immutable
// parameters the engine works with: capacity, operating window, the derived
// slot grid and the booking horizon.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	defaultOpeningTime   = "10:00"
	defaultClosingTime   = "20:00"
	defaultHorizonMonths = 2
)

// ConfigError reports invalid operator settings. It is fatal for the
// request that hit it; there is no per-request recovery from a broken
// dashboard.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid setting %q: %s", e.Key, e.Reason)
}

// Settings is the resolved, immutable configuration for one request.
type Settings struct {
	Capacity      int
	OperatingDays map[string]bool
	OpeningMin    int // minutes from midnight
	ClosingMin    int
	MealMin       int
	StepMin       int
	HorizonMonths int
	Location      *time.Location

	// Slots are the derived slot-start labels, opening through
	// closing minus meal duration. See Resolve for the rounding rule.
	Slots []string

	Explanation            string
	Agreements             string
	ContactEmail           string
	NotificationRecipients []string
}

// Resolve builds Settings from the raw key/value table.
//
// The slot grid starts at the opening time; the last permissible start is
// the closing time minus the occupancy duration. When that window is not an
// exact multiple of the step, the final partial step is still included, so
// the last label can run past the exact bound.
func Resolve(raw map[string]string) (*Settings, error) {
	capacity, err := intValue(raw, "totalSeats", 0)
	if err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, &ConfigError{Key: "totalSeats", Reason: "capacity must be positive"}
	}

	opening, err := clockValue(raw, "openingTime", defaultOpeningTime)
	if err != nil {
		return nil, err
	}
	closing, err := clockValue(raw, "closingTime", defaultClosingTime)
	if err != nil {
		return nil, err
	}
	if opening >= closing {
		return nil, &ConfigError{Key: "openingTime", Reason: "opening time must be before closing time"}
	}

	meal, err := intValue(raw, "averageMealTime_min", 0)
	if err != nil {
		return nil, err
	}
	if meal < 0 {
		return nil, &ConfigError{Key: "averageMealTime_min", Reason: "meal time cannot be negative"}
	}

	step, err := intValue(raw, "step_min", 0)
	if err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, &ConfigError{Key: "step_min", Reason: "step must be positive"}
	}

	// Deployed dashboards carry a misspelled variant of this key; accept both.
	horizon, err := intValue(raw, "maximumReservation_month", defaultHorizonMonths)
	if err != nil {
		return nil, err
	}
	if v, ok := raw["maximumResevation_month"]; ok && strings.TrimSpace(v) != "" {
		horizon, err = intValue(raw, "maximumResevation_month", defaultHorizonMonths)
		if err != nil {
			return nil, err
		}
	}
	if horizon <= 0 {
		return nil, &ConfigError{Key: "maximumReservation_month", Reason: "booking horizon must be positive"}
	}

	loc := time.UTC
	if tz := strings.TrimSpace(raw["timezone"]); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, &ConfigError{Key: "timezone", Reason: err.Error()}
		}
	}

	s := &Settings{
		Capacity:               capacity,
		OperatingDays:          map[string]bool{},
		OpeningMin:             opening,
		ClosingMin:             closing,
		MealMin:                meal,
		StepMin:                step,
		HorizonMonths:          horizon,
		Location:               loc,
		Explanation:            raw["explanationOfReservationPage"],
		Agreements:             raw["agreementsForReservation"],
		ContactEmail:           strings.TrimSpace(raw["contactEmail"]),
		NotificationRecipients: listValue(raw["notificationRecipientEmails"]),
	}
	for _, day := range listValue(raw["operatingDay"]) {
		s.OperatingDays[day] = true
	}
	s.Slots = labelRange(opening, closing-meal, step)
	return s, nil
}

// SpanLabels returns the slot labels a booking starting at the given label
// covers, from the start through the derived end label inclusive.
func (s *Settings) SpanLabels(start string) ([]string, error) {
	from, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	return labelRange(from, from+s.MealMin, s.StepMin), nil
}

// EndLabel derives the service end label for a start label.
func (s *Settings) EndLabel(start string) (string, error) {
	from, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	return Label(from + s.MealMin), nil
}

// Window returns the closed booking window [today+1 day, today+horizon],
// both at midnight in the settings' timezone.
func (s *Settings) Window(today time.Time) (time.Time, time.Time) {
	t := today.In(s.Location)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.Location)
	return midnight.AddDate(0, 0, 1), midnight.AddDate(0, s.HorizonMonths, 0)
}

// Operating reports whether the venue opens on the given weekday.
func (s *Settings) Operating(day time.Weekday) bool {
	return s.OperatingDays[day.String()]
}

// labelRange generates labels from "from" up to the bound, stepped. A
// partial final step is included: the count is the ceiling of the window
// over the step.
func labelRange(from, bound, step int) []string {
	labels := []string{Label(from)}
	if bound <= from {
		return labels
	}
	n := (bound - from + step - 1) / step
	for i := 1; i <= n; i++ {
		labels = append(labels, Label(from+i*step))
	}
	return labels
}

// ParseClock parses "HH:MM" (or "HH:MM:SS", seconds ignored) into minutes
// from midnight.
func ParseClock(v string) (int, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", v)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", v)
	}
	return h*60 + m, nil
}

// Label formats minutes from midnight as "HH:MM".
func Label(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

func intValue(raw map[string]string, key string, def int) (int, error) {
	v := strings.TrimSpace(raw[key])
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: "not a number"}
	}
	return n, nil
}

func clockValue(raw map[string]string, key, def string) (int, error) {
	v := strings.TrimSpace(raw[key])
	if v == "" {
		v = def
	}
	min, err := ParseClock(v)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: err.Error()}
	}
	return min, nil
}

func listValue(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
