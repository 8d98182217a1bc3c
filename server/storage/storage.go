package storage

import (
	"context"
	"fmt"
	"time"
)

// Storage connects the reminders API with a persistence backend. Please use the
// error types provided (*Error with ErrNotFound, ErrAlreadyExists, ...).
//
// Implementations must be safe for concurrent use and must return copies, never
// references to reminders they keep internally.
type Storage interface {
	// CreateReminder stores a new reminder. The store assigns CreatedAt and
	// UpdatedAt; ID must already be set.
	CreateReminder(ctx context.Context, r *Reminder) error
	// GetReminder finds a reminder by id.
	GetReminder(ctx context.Context, id string) (*Reminder, error)
	// UpdateReminder replaces a stored reminder and refreshes UpdatedAt.
	UpdateReminder(ctx context.Context, r *Reminder) error
	// DeleteReminder removes a reminder.
	DeleteReminder(ctx context.Context, id string) error
	// SearchReminders returns reminders whose text contains keyword,
	// case-insensitively. An empty keyword matches every reminder.
	SearchReminders(ctx context.Context, keyword string) ([]Reminder, error)
	// RemindersStartingBefore returns every reminder whose StartDate is at or
	// before t, ordered by StartDate then ID.
	RemindersStartingBefore(ctx context.Context, t time.Time) ([]Reminder, error)
	// Close releases the backend.
	Close() error
}

// AlreadyExists returns the error stores use when CreateReminder sees a known id.
func AlreadyExists(id string) error {
	return &Error{Type: ErrAlreadyExists, Message: fmt.Sprintf("reminder %q already exists", id)}
}

// Unavailable wraps a backend failure.
func Unavailable(op string, err error) error {
	return &Error{Type: ErrUnavailable, Message: op, Err: err}
}
