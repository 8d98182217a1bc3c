package recurrence

import (
	"time"

	"github.com/jasonliu2000/reminders-backend/server/storage"
)

// timeOfDayInRange reports whether tod falls on some day of [lo, hi] such that
// the resulting instant is itself inside [lo, hi].
func timeOfDayInRange(tod TimeOfDay, lo, hi time.Time) bool {
	if fullDaysBetween(lo, hi) >= 1 {
		return true
	}

	if inRange(tod.On(lo), lo, hi) {
		return true
	}
	if midnight(lo).Equal(midnight(hi)) {
		return false
	}
	// range crosses midnight
	return inRange(tod.On(hi), lo, hi)
}

// weekdayInRange reports whether ISO weekday wd at tod occurs in [lo, hi].
func weekdayInRange(wd int, lo, hi time.Time, tod TimeOfDay) bool {
	if fullDaysBetween(lo, hi) >= 7 {
		return true
	}

	last := midnight(hi)
	for d := midnight(lo); !d.After(last); d = d.AddDate(0, 0, 1) {
		if storage.ISOWeekday(d) != wd {
			continue
		}
		if inRange(tod.On(d), lo, hi) {
			return true
		}
	}
	return false
}

// nthDayInRange reports whether a cycle of n days anchored at anchor has an
// occurrence in [lo, hi]. Occurrences are anchor + k*n*24h, so the anchor's
// time of day is honoured at both edges.
func nthDayInRange(n int, anchor, lo, hi time.Time) bool {
	if fullDaysBetween(lo, hi) >= n {
		return true
	}
	if !anchor.Before(lo) {
		return inRange(anchor, lo, hi)
	}

	// The first occurrence after the anchor is already past hi.
	if int64(n) > int64(fullDaysBetween(anchor, hi)) {
		return false
	}

	period := int64(n) * secondsPerDay
	gap, gapNsec := elapsed(anchor, lo)
	k := gap / period
	if gap%period != 0 || gapNsec > 0 {
		k++
	}
	next := time.Unix(anchor.Unix()+k*period, int64(anchor.Nanosecond())).UTC()
	return inRange(next, lo, hi)
}

// nthDayInRangeByDate is the date-granular variant of nthDayInRange: it counts
// whole days from the anchor to lo and ignores time of day.
func nthDayInRangeByDate(n int, anchor, lo, hi time.Time) bool {
	span := fullDaysBetween(lo, hi)
	if span >= n {
		return true
	}

	diff := fullDaysBetween(anchor, lo)
	offset := 0
	if rem := diff % n; rem != 0 {
		offset = n - rem
	}
	return offset <= span
}

// dayOfMonthInRange reports whether day-of-month dom at tod occurs in
// [lo, hi]. Days past the end of a month clamp to its last day.
func dayOfMonthInRange(dom int, lo, hi time.Time, tod TimeOfDay) bool {
	lo, hi = lo.UTC(), hi.UTC()

	if inRange(monthlyCandidate(lo.Year(), lo.Month(), dom, tod), lo, hi) {
		return true
	}
	if sameMonthAndYear(lo, hi) {
		return false
	}

	year, month := lo.Year(), lo.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	return inRange(monthlyCandidate(year, month, dom, tod), lo, hi)
}

func monthlyCandidate(year int, month time.Month, dom int, tod TimeOfDay) time.Time {
	dom = min(dom, daysInMonth(month, year))
	return time.Date(year, month, dom, 0, 0, 0, 0, time.UTC).Add(time.Duration(tod))
}
