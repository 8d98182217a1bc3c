package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err is, or wraps, a storage *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}

func IsNotFound(err error) bool     { return IsType(err, ErrNotFound) }
func IsInvalidInput(err error) bool { return IsType(err, ErrInvalidInput) }

// NotFound returns the error stores use when a reminder id is unknown.
func NotFound(id string) error {
	return &Error{Type: ErrNotFound, Message: fmt.Sprintf("reminder %q not found", id)}
}

func invalid(format string, args ...any) error {
	return &Error{Type: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// RecurrenceType is the closed set of recurrence rules a reminder can carry.
//
// The zero value, RecurrenceInvalid, is never produced by ParseRecurrenceType;
// stores use it for rows whose type column holds something unrecognized.
type RecurrenceType int

const (
	RecurrenceInvalid RecurrenceType = iota
	RecurrenceNone
	RecurrenceDaily
	RecurrenceWeekly
	RecurrenceEveryNDays
	RecurrenceMonthly
)

// RecurrenceTypes lists every valid recurrence type.
var RecurrenceTypes = []RecurrenceType{
	RecurrenceNone,
	RecurrenceDaily,
	RecurrenceWeekly,
	RecurrenceEveryNDays,
	RecurrenceMonthly,
}

// String provides the wire name of the RecurrenceType.
func (rt RecurrenceType) String() string {
	switch rt {
	case RecurrenceNone:
		return "none"
	case RecurrenceDaily:
		return "daily"
	case RecurrenceWeekly:
		return "weekly"
	case RecurrenceEveryNDays:
		return "every_n_days"
	case RecurrenceMonthly:
		return "monthly"
	default:
		return "invalid"
	}
}

// Valid reports whether rt is one of RecurrenceTypes.
func (rt RecurrenceType) Valid() bool {
	return rt >= RecurrenceNone && rt <= RecurrenceMonthly
}

// ParseRecurrenceType parses a wire name. "custom" is accepted as an alias of
// "every_n_days".
func ParseRecurrenceType(s string) (RecurrenceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return RecurrenceNone, nil
	case "daily":
		return RecurrenceDaily, nil
	case "weekly":
		return RecurrenceWeekly, nil
	case "every_n_days", "custom":
		return RecurrenceEveryNDays, nil
	case "monthly":
		return RecurrenceMonthly, nil
	default:
		return RecurrenceInvalid, invalid("unknown recurrence type %q", s)
	}
}

func (rt RecurrenceType) MarshalText() ([]byte, error) {
	return []byte(rt.String()), nil
}

func (rt *RecurrenceType) UnmarshalText(b []byte) error {
	v, err := ParseRecurrenceType(string(b))
	if err != nil {
		return err
	}
	*rt = v
	return nil
}

// Reminder is a single reminder and its recurrence rule.
type Reminder struct {
	ID   string
	User string
	Text string

	Recurrence RecurrenceType
	// RecurrenceValue holds the ISO weekday (1=Mon..7=Sun) for weekly reminders
	// and the cycle length for every-N-days reminders.
	RecurrenceValue mo.Option[int]

	// StartDate is the anchor start in UTC. A zero value means the stored
	// anchor could not be interpreted.
	StartDate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the recurrence invariants of r.
func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.User) == "" {
		return invalid("user is required")
	}
	if strings.TrimSpace(r.Text) == "" {
		return invalid("text is required")
	}
	if r.StartDate.IsZero() {
		return invalid("startDate is required")
	}
	if !r.Recurrence.Valid() {
		return invalid("recurrenceType is required")
	}

	value, ok := r.RecurrenceValue.Get()
	switch r.Recurrence {
	case RecurrenceWeekly:
		if !ok {
			return invalid("recurrenceValue is required for weekly reminders")
		}
		if value < 1 || value > 7 {
			return invalid("recurrenceValue must be an ISO weekday between 1 and 7, got %d", value)
		}
		if want := ISOWeekday(r.StartDate); value != want {
			return invalid("recurrenceValue %d does not match the weekday of startDate (%d)", value, want)
		}
	case RecurrenceEveryNDays:
		if !ok {
			return invalid("recurrenceValue is required for every_n_days reminders")
		}
		if value < 1 {
			return invalid("recurrenceValue must be at least 1, got %d", value)
		}
	}
	return nil
}

// ISOWeekday returns the ISO 8601 weekday of t in UTC, Monday=1 through Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.UTC().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ReminderPatch describes a partial update. Absent fields are left unchanged.
type ReminderPatch struct {
	User            mo.Option[string]
	Text            mo.Option[string]
	Recurrence      mo.Option[RecurrenceType]
	RecurrenceValue mo.Option[int]
	StartDate       mo.Option[time.Time]
	// ClearRecurrenceValue removes the stored value; it wins over RecurrenceValue.
	ClearRecurrenceValue bool
}

// Apply returns a copy of r with the present fields of p applied.
func (p ReminderPatch) Apply(r Reminder) Reminder {
	if v, ok := p.User.Get(); ok {
		r.User = v
	}
	if v, ok := p.Text.Get(); ok {
		r.Text = v
	}
	if v, ok := p.Recurrence.Get(); ok {
		r.Recurrence = v
	}
	if v, ok := p.RecurrenceValue.Get(); ok {
		r.RecurrenceValue = mo.Some(v)
	}
	if p.ClearRecurrenceValue {
		r.RecurrenceValue = mo.None[int]()
	}
	if v, ok := p.StartDate.Get(); ok {
		r.StartDate = v.UTC()
	}
	return r
}

// Empty reports whether p changes nothing.
func (p ReminderPatch) Empty() bool {
	return p.User.IsAbsent() && p.Text.IsAbsent() && p.Recurrence.IsAbsent() &&
		p.RecurrenceValue.IsAbsent() && p.StartDate.IsAbsent() && !p.ClearRecurrenceValue
}
