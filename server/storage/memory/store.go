// memory based implementation for testing and single-process deployments
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jasonliu2000/reminders-backend/server/storage"
)

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu        sync.RWMutex
	reminders map[string]storage.Reminder
	now       func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		reminders: make(map[string]storage.Reminder),
		now:       time.Now,
	}
}

func (s *Store) CreateReminder(_ context.Context, r *storage.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reminders[r.ID]; exists {
		return storage.AlreadyExists(r.ID)
	}

	now := s.now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.reminders[r.ID] = *r

	return nil
}

func (s *Store) GetReminder(_ context.Context, id string) (*storage.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reminders[id]
	if !ok {
		return nil, storage.NotFound(id)
	}

	return &r, nil
}

func (s *Store) UpdateReminder(_ context.Context, r *storage.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reminders[r.ID]
	if !ok {
		return storage.NotFound(r.ID)
	}

	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.now().UTC()
	s.reminders[r.ID] = *r

	return nil
}

func (s *Store) DeleteReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[id]; !ok {
		return storage.NotFound(id)
	}

	delete(s.reminders, id)
	return nil
}

func (s *Store) SearchReminders(_ context.Context, keyword string) ([]storage.Reminder, error) {
	return s.collect(func(r storage.Reminder) bool {
		return storage.MatchesKeyword(r.Text, keyword)
	}), nil
}

func (s *Store) RemindersStartingBefore(_ context.Context, t time.Time) ([]storage.Reminder, error) {
	return s.collect(func(r storage.Reminder) bool {
		return storage.StartsAtOrBefore(r, t)
	}), nil
}

func (s *Store) Close() error { return nil }

func (s *Store) collect(keep func(storage.Reminder) bool) []storage.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Reminder, 0, len(s.reminders))
	for _, r := range s.reminders {
		if keep(r) {
			out = append(out, r)
		}
	}
	storage.SortReminders(out)
	return out
}
