package recurrence

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/jasonliu2000/reminders-backend/server/storage"
	"github.com/teambition/rrule-go"
)

// ProductID is written as the PRODID of exported calendars.
const ProductID = "-//reminders-backend//Reminders//EN"

// PropReminderUser carries the reminder owner on exported events.
const PropReminderUser = "X-REMINDER-USER"

var (
	// ErrUnsupportedRule is returned when a reminder's stored recurrence
	// cannot be expressed as an RRULE.
	ErrUnsupportedRule = errors.New("unsupported recurrence rule")
	// ErrEmptyCalendar is returned by EncodeCalendar when there is nothing to encode.
	ErrEmptyCalendar = errors.New("calendar has no events")
	// ErrBeyondHorizon is returned when an expansion would have to run past
	// ExpansionHorizonYears after the reminder's start.
	ErrBeyondHorizon = errors.New("range is beyond the expansion horizon")
)

// ExpansionHorizonYears bounds how far past its start a reminder is expanded.
const ExpansionHorizonYears = 250

// RRule returns the RFC 5545 RRULE value (without the "RRULE:" prefix)
// equivalent to r's recurrence. ok is false for one-off reminders.
//
// Monthly rules anchored on the 29th or later select the last existing day
// among 28..d, which clamps to the end of shorter months.
func RRule(r storage.Reminder) (rule string, ok bool, err error) {
	switch r.Recurrence {
	case storage.RecurrenceNone:
		return "", false, nil
	case storage.RecurrenceDaily:
		return "FREQ=DAILY", true, nil
	case storage.RecurrenceWeekly:
		return "FREQ=WEEKLY", true, nil
	case storage.RecurrenceEveryNDays:
		n, present := r.RecurrenceValue.Get()
		if !present || n < 1 {
			return "", false, fmt.Errorf("%w: every_n_days without a positive value", ErrUnsupportedRule)
		}
		return "FREQ=DAILY;INTERVAL=" + strconv.Itoa(n), true, nil
	case storage.RecurrenceMonthly:
		d := r.StartDate.UTC().Day()
		if d < 29 {
			return "FREQ=MONTHLY;BYMONTHDAY=" + strconv.Itoa(d), true, nil
		}
		days := make([]string, 0, d-27)
		for i := 28; i <= d; i++ {
			days = append(days, strconv.Itoa(i))
		}
		return "FREQ=MONTHLY;BYMONTHDAY=" + strings.Join(days, ",") + ";BYSETPOS=-1", true, nil
	default:
		return "", false, fmt.Errorf("%w: %s", ErrUnsupportedRule, r.Recurrence)
	}
}

// Occurrences expands r into its concrete occurrences inside [lo, hi].
// At most limit instants are returned when limit > 0. Expansion stops
// ExpansionHorizonYears after the start; a range that needs occurrences past
// that point returns ErrBeyondHorizon instead of a short list.
func Occurrences(r storage.Reminder, lo, hi time.Time, limit int) ([]time.Time, error) {
	if r.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: reminder %q has no usable start date", ErrUnsupportedRule, r.ID)
	}
	if lo.After(hi) {
		return nil, ErrInvertedRange
	}
	start := r.StartDate.UTC()
	lo, hi = lo.UTC(), hi.UTC()

	rule, ok, err := RRule(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		if inRange(start, lo, hi) {
			return []time.Time{start}, nil
		}
		return []time.Time{}, nil
	}

	horizon := start.AddDate(ExpansionHorizonYears, 0, 0)
	if lo.After(horizon) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrBeyondHorizon, lo.Format(time.RFC3339), horizon.Format(time.RFC3339))
	}

	set, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s", start.Format(BasicISOLayout), rule))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", rule, err)
	}

	out := []time.Time{}
	next := set.Iterator()
	for {
		t, more := next()
		if !more {
			return out, nil
		}
		t = t.UTC()
		if t.After(hi) {
			return out, nil
		}
		if t.After(horizon) {
			break
		}
		if t.Before(lo) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is after %s", ErrBeyondHorizon, hi.Format(time.RFC3339), horizon.Format(time.RFC3339))
}

// Event builds the VEVENT for r.
func Event(r storage.Reminder) (*ical.Component, error) {
	if r.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: reminder %q has no usable start date", ErrUnsupportedRule, r.ID)
	}

	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, r.ID)
	event.Props.SetText(ical.PropSummary, r.Text)
	event.Props.SetDateTime(ical.PropDateTimeStart, r.StartDate.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStamp, stampOf(r))
	if r.User != "" {
		event.Props.SetText(PropReminderUser, r.User)
	}

	rule, ok, err := RRule(r)
	if err != nil {
		return nil, err
	}
	if ok {
		// Set the raw value; SetText would escape the BYMONTHDAY commas.
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = rule
		event.Props.Set(prop)
	}
	return event, nil
}

// EncodeCalendar writes a VCALENDAR holding one VEVENT per reminder. Any
// reminder that cannot be exported fails the whole calendar.
func EncodeCalendar(w io.Writer, reminders []storage.Reminder) error {
	events := make([]*ical.Component, 0, len(reminders))
	for _, r := range reminders {
		event, err := Event(r)
		if err != nil {
			return fmt.Errorf("export reminder %q: %w", r.ID, err)
		}
		events = append(events, event)
	}
	return encodeEvents(w, events)
}

// EncodeFeed is EncodeCalendar for range feeds: reminders whose stored
// recurrence cannot be exported are left out and reported as anomalies.
func (e *Engine) EncodeFeed(w io.Writer, reminders []storage.Reminder) error {
	events := make([]*ical.Component, 0, len(reminders))
	for _, r := range reminders {
		event, err := Event(r)
		if err != nil {
			reason := recurrenceDefect(r)
			if reason == "" {
				reason = AnomalyMalformedAnchor
			}
			e.anomaly(r, reason)
			continue
		}
		events = append(events, event)
	}
	return encodeEvents(w, events)
}

func encodeEvents(w io.Writer, events []*ical.Component) error {
	if len(events) == 0 {
		return ErrEmptyCalendar
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Children = append(cal.Children, events...)

	return ical.NewEncoder(w).Encode(cal)
}

func stampOf(r storage.Reminder) time.Time {
	for _, t := range []time.Time{r.UpdatedAt, r.CreatedAt} {
		if !t.IsZero() {
			return t.UTC()
		}
	}
	return r.StartDate.UTC()
}
