package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jasonliu2000/reminders-backend/server/recurrence"
	"github.com/jasonliu2000/reminders-backend/server/storage"
)

const (
	defaultOccurrenceLimit = 100
	maxOccurrenceLimit     = 1000
)

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	reminder, err := req.reminder()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := reminder.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.checkNotBeforeToday(reminder.StartDate); err != nil {
		s.fail(w, r, err)
		return
	}

	reminder.ID = s.newID()
	if err := s.storage.CreateReminder(r.Context(), &reminder); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("reminder created",
		"reminder_id", reminder.ID,
		"recurrence", reminder.Recurrence.String())
	writeJSON(w, http.StatusCreated, dataResponse{Data: toJSON(reminder)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	reminder, err := s.storage.GetReminder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: toJSON(*reminder)})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	existing, err := s.storage.GetReminder(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if patch.Empty() {
		writeJSON(w, http.StatusOK, dataResponse{Data: toJSON(*existing)})
		return
	}

	updated := patch.Apply(*existing)
	updated.RecurrenceValue = valueFor(updated.Recurrence, updated.RecurrenceValue)
	if err := updated.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	if start, ok := patch.StartDate.Get(); ok {
		if err := s.checkNotBeforeToday(start); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	if err := s.storage.UpdateReminder(r.Context(), &updated); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("reminder updated", "reminder_id", id)
	writeJSON(w, http.StatusOK, dataResponse{Data: toJSON(updated)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.storage.DeleteReminder(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("reminder deleted", "reminder_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	reminders, err := s.storage.SearchReminders(r.Context(), keyword)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Debug("keyword search", "keyword", keyword, "results", len(reminders))
	writeJSON(w, http.StatusOK, dataResponse{Data: toJSONList(reminders)})
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := rangeParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	reminders, err := s.engine.FindOccurringInRange(r.Context(), s.storage, start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: toJSONList(reminders)})
}

type occurrencesJSON struct {
	ID          string   `json:"id"`
	Occurrences []string `json:"occurrences"`
}

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	start, end, err := rangeParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	lo, err := recurrence.ParseInstant("startDate", start)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hi, err := recurrence.ParseInstant("endDate", end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	reminder, err := s.storage.GetReminder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	times, err := recurrence.Occurrences(*reminder, lo, hi, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := occurrencesJSON{ID: reminder.ID, Occurrences: make([]string, 0, len(times))}
	for _, t := range times {
		out.Occurrences = append(out.Occurrences, formatTime(t))
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: out})
}

func (s *Server) checkNotBeforeToday(start time.Time) error {
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if start.UTC().Before(today) {
		return badRequest("startDate must be today or later")
	}
	return nil
}

func rangeParams(r *http.Request) (string, string, error) {
	q := r.URL.Query()
	start, end := q.Get("startDate"), q.Get("endDate")
	if start == "" || end == "" {
		return "", "", badRequest("startDate and endDate are required")
	}
	return start, end, nil
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultOccurrenceLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxOccurrenceLimit {
		return 0, badRequest("limit must be an integer between 1 and " + strconv.Itoa(maxOccurrenceLimit))
	}
	return n, nil
}

// fail writes err as a JSON error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	} else {
		s.logger.Info("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

var _ recurrence.Source = storage.Storage(nil)
