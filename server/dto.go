package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jasonliu2000/reminders-backend/server/recurrence"
	"github.com/jasonliu2000/reminders-backend/server/storage"
	"github.com/samber/mo"
)

type dataResponse struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// reminderJSON is the wire form of a reminder.
type reminderJSON struct {
	ID              string `json:"id"`
	User            string `json:"user"`
	Text            string `json:"text"`
	RecurrenceType  string `json:"recurrenceType"`
	RecurrenceValue *int   `json:"recurrenceValue"`
	StartDate       string `json:"startDate"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func toJSON(r storage.Reminder) reminderJSON {
	return reminderJSON{
		ID:              r.ID,
		User:            r.User,
		Text:            r.Text,
		RecurrenceType:  r.Recurrence.String(),
		RecurrenceValue: r.RecurrenceValue.ToPointer(),
		StartDate:       formatTime(r.StartDate),
		CreatedAt:       formatTime(r.CreatedAt),
		UpdatedAt:       formatTime(r.UpdatedAt),
	}
}

func toJSONList(rs []storage.Reminder) []reminderJSON {
	out := make([]reminderJSON, 0, len(rs))
	for _, r := range rs {
		out = append(out, toJSON(r))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type createRequest struct {
	User            string `json:"user"`
	Text            string `json:"text"`
	RecurrenceType  string `json:"recurrenceType"`
	RecurrenceValue *int   `json:"recurrenceValue"`
	StartDate       string `json:"startDate"`
}

func (req createRequest) reminder() (storage.Reminder, error) {
	if req.RecurrenceType == "" {
		return storage.Reminder{}, badRequest("recurrenceType is required")
	}
	rt, err := storage.ParseRecurrenceType(req.RecurrenceType)
	if err != nil {
		return storage.Reminder{}, err
	}
	if req.StartDate == "" {
		return storage.Reminder{}, badRequest("startDate is required")
	}
	start, err := parseStartDate(req.StartDate)
	if err != nil {
		return storage.Reminder{}, err
	}

	return storage.Reminder{
		User:            req.User,
		Text:            req.Text,
		Recurrence:      rt,
		RecurrenceValue: valueFor(rt, mo.PointerToOption(req.RecurrenceValue)),
		StartDate:       start,
	}, nil
}

// patchRequest distinguishes absent fields from explicit nulls for
// recurrenceValue; null clears it.
type patchRequest struct {
	User            *string         `json:"user"`
	Text            *string         `json:"text"`
	RecurrenceType  *string         `json:"recurrenceType"`
	RecurrenceValue json.RawMessage `json:"recurrenceValue"`
	StartDate       *string         `json:"startDate"`
}

func (req patchRequest) patch() (storage.ReminderPatch, error) {
	p := storage.ReminderPatch{
		User: mo.PointerToOption(req.User),
		Text: mo.PointerToOption(req.Text),
	}

	if req.RecurrenceType != nil {
		rt, err := storage.ParseRecurrenceType(*req.RecurrenceType)
		if err != nil {
			return p, err
		}
		p.Recurrence = mo.Some(rt)
	}

	switch raw := bytes.TrimSpace(req.RecurrenceValue); {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		p.ClearRecurrenceValue = true
	default:
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return p, badRequest("recurrenceValue must be an integer")
		}
		p.RecurrenceValue = mo.Some(v)
	}

	if req.StartDate != nil {
		start, err := parseStartDate(*req.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = mo.Some(start)
	}
	return p, nil
}

// valueFor drops values that the recurrence type does not use.
func valueFor(rt storage.RecurrenceType, v mo.Option[int]) mo.Option[int] {
	switch rt {
	case storage.RecurrenceWeekly, storage.RecurrenceEveryNDays:
		return v
	default:
		return mo.None[int]()
	}
}

// parseStartDate accepts the range-query instant forms and plain dates.
func parseStartDate(s string) (time.Time, error) {
	if t, err := recurrence.ParseInstant("startDate", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, badRequest("startDate must be a date, an RFC 3339 timestamp or " + recurrence.BasicISOLayout)
	}
	return t.UTC(), nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &HTTPError{Status: http.StatusBadRequest, Message: "invalid JSON body", Err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
