package storage

import (
	"sort"
	"strings"
	"time"
)

// MatchesKeyword reports whether text contains keyword, ignoring case. This is
// the same contract as SQL `LIKE '%keyword%'` on ASCII text.
func MatchesKeyword(text, keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// StartsAtOrBefore reports whether r's anchor is at or before t. Reminders with a
// malformed (zero) anchor are kept so the caller can report them.
func StartsAtOrBefore(r Reminder, t time.Time) bool {
	return r.StartDate.IsZero() || !r.StartDate.After(t)
}

// SortReminders orders reminders by StartDate, then ID.
func SortReminders(rs []Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].StartDate.Equal(rs[j].StartDate) {
			return rs[i].StartDate.Before(rs[j].StartDate)
		}
		return rs[i].ID < rs[j].ID
	})
}
