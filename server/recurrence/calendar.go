package recurrence

import "time"

const secondsPerDay = 24 * 60 * 60

// elapsed returns b-a as whole seconds plus a nanosecond remainder in
// [0, 1e9). It stays exact across the full year 1..9999 range, unlike
// time.Duration which saturates after about 292 years.
func elapsed(a, b time.Time) (sec int64, nsec int64) {
	sec = b.Unix() - a.Unix()
	nsec = int64(b.Nanosecond() - a.Nanosecond())
	if nsec < 0 {
		sec--
		nsec += int64(time.Second)
	}
	return sec, nsec
}

// fullDaysBetween returns the number of whole 24h spans between a and b,
// regardless of argument order.
func fullDaysBetween(a, b time.Time) int {
	if b.Before(a) {
		a, b = b, a
	}
	sec, _ := elapsed(a, b)
	return int(sec / secondsPerDay)
}

func sameMonthAndYear(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInMonth(month time.Month, year int) int {
	switch month {
	case time.February:
		if isLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// inRange reports whether t lies in the closed interval [lo, hi].
func inRange(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// midnight truncates t to the start of its UTC calendar day.
func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
