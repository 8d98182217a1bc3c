package storage

import (
	"context"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

var _ Storage = (*MockStorage)(nil)

func (m *MockStorage) CreateReminder(ctx context.Context, r *Reminder) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockStorage) GetReminder(ctx context.Context, id string) (*Reminder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reminder), args.Error(1)
}

func (m *MockStorage) UpdateReminder(ctx context.Context, r *Reminder) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockStorage) DeleteReminder(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) SearchReminders(ctx context.Context, keyword string) ([]Reminder, error) {
	args := m.Called(ctx, keyword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reminder), args.Error(1)
}

func (m *MockStorage) RemindersStartingBefore(ctx context.Context, t time.Time) ([]Reminder, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reminder), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockReminder creates a test Reminder with the given rule and anchor.
func NewMockReminder(id, text string, rt RecurrenceType, value mo.Option[int], start time.Time) Reminder {
	return Reminder{
		ID:              id,
		User:            "tester",
		Text:            text,
		Recurrence:      rt,
		RecurrenceValue: value,
		StartDate:       start.UTC(),
		CreatedAt:       start.UTC(),
		UpdatedAt:       start.UTC(),
	}
}
