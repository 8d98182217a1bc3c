package recurrence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jasonliu2000/reminders-backend/server/storage"
)

// BasicISOLayout is the compact ISO 8601 form used by the query API,
// e.g. 20251205T105839Z.
const BasicISOLayout = "20060102T150405Z"

var (
	// ErrMalformedInstant is wrapped by every *InstantError.
	ErrMalformedInstant = errors.New("malformed instant")
	// ErrInvertedRange is returned when the range start is after its end.
	ErrInvertedRange = errors.New("range start is after range end")
)

// InstantError describes a range bound that could not be parsed.
type InstantError struct {
	Field string
	Input string
	Err   error
}

func (e *InstantError) Error() string {
	return fmt.Sprintf("invalid %s %q: expected %s or RFC 3339", e.Field, e.Input, BasicISOLayout)
}

// Unwrap exposes both ErrMalformedInstant and the underlying parse error.
func (e *InstantError) Unwrap() []error {
	return []error{ErrMalformedInstant, e.Err}
}

// ParseInstant parses s as basic ISO 8601 or RFC 3339 and returns it in UTC.
// field names the input in the returned *InstantError.
func ParseInstant(field, s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if t, err := time.Parse(BasicISOLayout, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &InstantError{Field: field, Input: s, Err: err}
	}
	return t.UTC(), nil
}

// Source supplies candidate reminders whose anchor is at or before t.
type Source interface {
	RemindersStartingBefore(ctx context.Context, t time.Time) ([]storage.Reminder, error)
}

// FindOccurringInRange parses the range bounds and returns the reminders from
// src that occur in [start, end], in the order src returned them.
func (e *Engine) FindOccurringInRange(ctx context.Context, src Source, start, end string) ([]storage.Reminder, error) {
	lo, err := ParseInstant("startDate", start)
	if err != nil {
		e.observer.ObserveRangeQuery("invalid", 0, 0, 0)
		return nil, err
	}
	hi, err := ParseInstant("endDate", end)
	if err != nil {
		e.observer.ObserveRangeQuery("invalid", 0, 0, 0)
		return nil, err
	}
	return e.InRange(ctx, src, lo, hi)
}

// InRange returns the reminders from src that occur in [lo, hi].
func (e *Engine) InRange(ctx context.Context, src Source, lo, hi time.Time) ([]storage.Reminder, error) {
	began := time.Now()
	if lo.After(hi) {
		e.observer.ObserveRangeQuery("invalid", 0, 0, 0)
		return nil, fmt.Errorf("%s > %s: %w", lo.Format(time.RFC3339), hi.Format(time.RFC3339), ErrInvertedRange)
	}

	candidates, err := src.RemindersStartingBefore(ctx, hi)
	if err != nil {
		e.observer.ObserveRangeQuery("error", 0, 0, time.Since(began))
		return nil, fmt.Errorf("fetch candidate reminders: %w", err)
	}

	matched := make([]storage.Reminder, 0, len(candidates))
	for _, r := range candidates {
		if e.OccursInRange(r, lo, hi) {
			matched = append(matched, r)
		}
	}

	e.logger.Debug("range query evaluated",
		"lo", lo, "hi", hi,
		"candidates", len(candidates),
		"matched", len(matched))
	e.observer.ObserveRangeQuery("ok", len(candidates), len(matched), time.Since(began))
	return matched, nil
}
