package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time in UTC, stored as the offset from midnight.
type TimeOfDay time.Duration

// Midnight is 00:00:00Z.
const Midnight TimeOfDay = 0

// ClockOf returns the UTC time of day of t.
func ClockOf(t time.Time) TimeOfDay {
	t = t.UTC()
	return TimeOfDay(t.Sub(midnight(t)))
}

// ParseTimeOfDay accepts "15:04:05Z", "15:04:05" and "15:04".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	v := strings.TrimSuffix(strings.TrimSpace(s), "Z")
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return TimeOfDay(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// On returns the instant at this time of day on t's UTC calendar date.
func (tod TimeOfDay) On(t time.Time) time.Time {
	return midnight(t).Add(time.Duration(tod))
}

func (tod TimeOfDay) String() string {
	return time.Time{}.Add(time.Duration(tod)).Format("15:04:05") + "Z"
}
