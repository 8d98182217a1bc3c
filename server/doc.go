/*
Package server provides the reminders HTTP API that can be mounted in Go applications.

# Basic Usage

The simplest way to use this package is with the provided in-memory storage:

	store := memory.New()
	srv, err := server.New(store, server.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", srv)

# Routes

	POST   /reminders                              create a reminder
	GET    /reminders/{id}                         fetch one reminder
	PATCH  /reminders/{id}                         partial update
	DELETE /reminders/{id}                         delete
	GET    /reminders/search?keyword=              keyword search on text
	GET    /reminders?startDate=&endDate=          reminders occurring in a range
	GET    /reminders/{id}/occurrences             concrete occurrences in a range
	GET    /reminders/{id}/ics                     one reminder as iCalendar
	GET    /calendar.ics?startDate=&endDate=       range query as iCalendar
	GET    /healthz                                liveness

Range bounds accept basic ISO 8601 (20251205T105839Z) or RFC 3339. Both ends
are inclusive.

Successful JSON responses are wrapped as {"data": ...} and failures as
{"error": "..."}.

# Custom Storage Backend

To implement your own storage backend, implement the storage.Storage interface:

	type Storage interface {
		CreateReminder(ctx context.Context, r *Reminder) error
		GetReminder(ctx context.Context, id string) (*Reminder, error)
		UpdateReminder(ctx context.Context, r *Reminder) error
		DeleteReminder(ctx context.Context, id string) error
		SearchReminders(ctx context.Context, keyword string) ([]Reminder, error)
		RemindersStartingBefore(ctx context.Context, t time.Time) ([]Reminder, error)
		Close() error
	}

RemindersStartingBefore is only a prefilter: it must return every reminder
whose anchor is at or before t, and the recurrence engine decides which of
them actually occur in the queried range.

# Error Handling

The storage package provides standard error types:

	const (
		ErrNotFound      ErrorType = "not_found"
		ErrAlreadyExists ErrorType = "already_exists"
		ErrInvalidInput  ErrorType = "invalid_input"
		ErrUnavailable   ErrorType = "unavailable"
	)

These errors help the server determine the appropriate HTTP status codes.

# Testing

The storage/memory package provides an in-memory implementation that's useful for testing:

	func TestMyRemindersApp(t *testing.T) {
		store := memory.New()
		srv, _ := server.New(store)

		req := httptest.NewRequest(http.MethodGet, "/reminders/search?keyword=", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		// Run tests...
	}

See cmd/remindersd for a complete server binary.
*/
package server
