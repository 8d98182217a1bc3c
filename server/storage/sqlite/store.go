// Package sqlite stores reminders in a SQLite database file using the pure-Go
// modernc.org/sqlite driver.
//
// Instants are written as fixed-width UTC text (see timeLayout) so that
// `start_date <= ?` is a correct lexicographic prefilter for range queries.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jasonliu2000/reminders-backend/server/storage"
	"github.com/samber/mo"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// isoPrefix matches anchors that at least look like a timestamp; anything else
// is returned by the range prefilter so the engine can report it.
const isoPrefix = "[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]T*"

const selectColumns = `SELECT id, user, text, recurrence_type, recurrence_value, start_date, created_at, updated_at FROM reminders`

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Store implements storage.Storage on top of database/sql.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// Open opens (creating if needed) the database at cfg.Path and applies migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) CreateReminder(ctx context.Context, r *storage.Reminder) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(id, user, text, recurrence_type, recurrence_value, start_date, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO NOTHING`,
		r.ID, r.User, r.Text, r.Recurrence.String(), nullInt(r.RecurrenceValue),
		formatTime(r.StartDate), formatTime(now), formatTime(now),
	)
	if err != nil {
		return storage.Unavailable("insert reminder", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.AlreadyExists(r.ID)
	}

	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

func (s *Store) GetReminder(ctx context.Context, id string) (*storage.Reminder, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(id)
	}
	if err != nil {
		return nil, storage.Unavailable("get reminder", err)
	}
	return &r, nil
}

func (s *Store) UpdateReminder(ctx context.Context, r *storage.Reminder) error {
	now := s.now().UTC()
	var created string
	err := s.db.QueryRowContext(ctx,
		`UPDATE reminders
		 SET user = ?, text = ?, recurrence_type = ?, recurrence_value = ?, start_date = ?, updated_at = ?
		 WHERE id = ?
		 RETURNING created_at`,
		r.User, r.Text, r.Recurrence.String(), nullInt(r.RecurrenceValue), formatTime(r.StartDate), formatTime(now),
		r.ID,
	).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NotFound(r.ID)
	}
	if err != nil {
		return storage.Unavailable("update reminder", err)
	}

	r.CreatedAt = parseTime(created)
	r.UpdatedAt = now
	return nil
}

func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return storage.Unavailable("delete reminder", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.NotFound(id)
	}
	return nil
}

func (s *Store) SearchReminders(ctx context.Context, keyword string) ([]storage.Reminder, error) {
	return s.query(ctx, "search reminders",
		selectColumns+` WHERE text LIKE ? ESCAPE '\' ORDER BY start_date, id`,
		"%"+escapeLike(keyword)+"%")
}

func (s *Store) RemindersStartingBefore(ctx context.Context, t time.Time) ([]storage.Reminder, error) {
	return s.query(ctx, "list reminders starting before",
		selectColumns+` WHERE start_date <= ? OR start_date NOT GLOB ? ORDER BY start_date, id`,
		formatTime(t), isoPrefix)
}

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]storage.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storage.Unavailable(op, err)
	}
	defer rows.Close()

	var out []storage.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, storage.Unavailable(op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable(op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanReminder decodes a row. Unparseable anchors come back as the zero time and
// unknown types as storage.RecurrenceInvalid; both are data-integrity anomalies
// the caller reports, not scan failures.
func scanReminder(sc scanner) (storage.Reminder, error) {
	var (
		r                             storage.Reminder
		kind, start, created, updated string
		value                         sql.NullInt64
	)
	if err := sc.Scan(&r.ID, &r.User, &r.Text, &kind, &value, &start, &created, &updated); err != nil {
		return storage.Reminder{}, err
	}

	if rt, err := storage.ParseRecurrenceType(kind); err == nil {
		r.Recurrence = rt
	}
	if value.Valid {
		r.RecurrenceValue = mo.Some(int(value.Int64))
	}
	r.StartDate = parseTime(start)
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t.UTC()
}

func nullInt(v mo.Option[int]) any {
	if n, ok := v.Get(); ok {
		return int64(n)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
