package server

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/jasonliu2000/reminders-backend/server/recurrence"
	"github.com/jasonliu2000/reminders-backend/server/storage"
)

func (s *Server) handleReminderICS(w http.ResponseWriter, r *http.Request) {
	reminder, err := s.storage.GetReminder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeCalendar(w, r, func(buf *bytes.Buffer) error {
		return recurrence.EncodeCalendar(buf, []storage.Reminder{*reminder})
	})
}

func (s *Server) handleCalendarICS(w http.ResponseWriter, r *http.Request) {
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
	s.writeCalendar(w, r, func(buf *bytes.Buffer) error {
		return s.engine.EncodeFeed(buf, reminders)
	})
}

func (s *Server) writeCalendar(w http.ResponseWriter, r *http.Request, encode func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	err := encode(&buf)
	if errors.Is(err, recurrence.ErrEmptyCalendar) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
