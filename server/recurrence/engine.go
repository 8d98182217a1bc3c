package recurrence

import (
	"io"
	"log/slog"
	"time"

	"github.com/jasonliu2000/reminders-backend/server/storage"
)

// Anomaly reasons reported when stored data cannot be evaluated.
const (
	AnomalyMalformedAnchor   = "malformed_anchor"
	AnomalyMissingValue      = "missing_recurrence_value"
	AnomalyUnknownRecurrence = "unknown_recurrence"
)

// Observer receives engine measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRangeQuery(outcome string, candidates, matched int, elapsed time.Duration)
	ObserveAnomaly(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveRangeQuery(string, int, int, time.Duration) {}
func (nopObserver) ObserveAnomaly(string)                             {}

// Engine decides whether reminders occur inside a date range. It holds only
// immutable options and is safe for concurrent use.
type Engine struct {
	logger         *slog.Logger
	observer       Observer
	dateOnlyCycles bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for anomaly reports.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithDateOnlyCycles makes every-N-days rules count whole days between the
// anchor and the range start, ignoring time of day.
func WithDateOnlyCycles() Option {
	return func(e *Engine) {
		e.dateOnlyCycles = true
	}
}

// NewEngine creates a recurrence engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OccursInRange reports whether r has at least one occurrence in [lo, hi].
func (e *Engine) OccursInRange(r storage.Reminder, lo, hi time.Time) bool {
	start := r.StartDate
	if start.IsZero() {
		e.anomaly(r, AnomalyMalformedAnchor)
		return false
	}
	start = start.UTC()
	lo, hi = lo.UTC(), hi.UTC()

	if start.After(hi) {
		return false
	}
	if inRange(start, lo, hi) {
		// The anchor itself occurs, but unusable recurrence data is still reported.
		if reason := recurrenceDefect(r); reason != "" {
			e.anomaly(r, reason)
		}
		return true
	}

	tod := ClockOf(start)
	switch r.Recurrence {
	case storage.RecurrenceNone:
		return false
	case storage.RecurrenceDaily:
		return timeOfDayInRange(tod, lo, hi)
	case storage.RecurrenceWeekly:
		return weekdayInRange(storage.ISOWeekday(start), lo, hi, tod)
	case storage.RecurrenceEveryNDays:
		n, ok := r.RecurrenceValue.Get()
		if !ok || n < 1 {
			e.anomaly(r, AnomalyMissingValue)
			return false
		}
		if e.dateOnlyCycles {
			return nthDayInRangeByDate(n, start, lo, hi)
		}
		return nthDayInRange(n, start, lo, hi)
	case storage.RecurrenceMonthly:
		return dayOfMonthInRange(start.Day(), lo, hi, tod)
	default:
		e.anomaly(r, AnomalyUnknownRecurrence)
		return false
	}
}

// recurrenceDefect returns the anomaly reason for recurrence data the
// dispatcher cannot evaluate, or "" when it is usable.
func recurrenceDefect(r storage.Reminder) string {
	if !r.Recurrence.Valid() {
		return AnomalyUnknownRecurrence
	}
	if r.Recurrence == storage.RecurrenceEveryNDays {
		if n, ok := r.RecurrenceValue.Get(); !ok || n < 1 {
			return AnomalyMissingValue
		}
	}
	return ""
}

func (e *Engine) anomaly(r storage.Reminder, reason string) {
	e.logger.Warn("skipping reminder with unusable recurrence data",
		"reminder_id", r.ID,
		"reason", reason,
		"recurrence", r.Recurrence.String())
	e.observer.ObserveAnomaly(reason)
}
