package recurrence

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/jasonliu2000/reminders-backend/server/storage"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRRule(t *testing.T) {
	tests := []struct {
		name    string
		r       storage.Reminder
		want    string
		wantOK  bool
		wantErr bool
	}{
		{"none", reminder("a", storage.RecurrenceNone, mo.None[int](), "2025-01-15"), "", false, false},
		{"daily", reminder("a", storage.RecurrenceDaily, mo.None[int](), "2025-01-15"), "FREQ=DAILY", true, false},
		{"weekly", reminder("a", storage.RecurrenceWeekly, mo.Some(3), "2025-01-15"), "FREQ=WEEKLY", true, false},
		{"every 4 days", reminder("a", storage.RecurrenceEveryNDays, mo.Some(4), "2025-01-15"), "FREQ=DAILY;INTERVAL=4", true, false},
		{"every n days without value", reminder("a", storage.RecurrenceEveryNDays, mo.None[int](), "2025-01-15"), "", false, true},
		{"monthly 15th", reminder("a", storage.RecurrenceMonthly, mo.None[int](), "2025-01-15"), "FREQ=MONTHLY;BYMONTHDAY=15", true, false},
		{"monthly 28th", reminder("a", storage.RecurrenceMonthly, mo.None[int](), "2025-01-28"), "FREQ=MONTHLY;BYMONTHDAY=28", true, false},
		{"monthly 30th", reminder("a", storage.RecurrenceMonthly, mo.None[int](), "2025-01-30"), "FREQ=MONTHLY;BYMONTHDAY=28,29,30;BYSETPOS=-1", true, false},
		{"invalid", reminder("a", storage.RecurrenceInvalid, mo.None[int](), "2025-01-15"), "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := RRule(tt.r)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedRule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOccurrences(t *testing.T) {
	t.Run("monthly 31st clamps", func(t *testing.T) {
		r := reminder("rent", storage.RecurrenceMonthly, mo.None[int](), "2025-01-31T09:00:00Z")
		got, err := Occurrences(r, ts("2025-01-01"), ts("2025-05-01"), 0)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{
			ts("2025-01-31T09:00:00Z"),
			ts("2025-02-28T09:00:00Z"),
			ts("2025-03-31T09:00:00Z"),
			ts("2025-04-30T09:00:00Z"),
		}, got)
	})

	t.Run("every 4 days with limit", func(t *testing.T) {
		r := reminder("plants", storage.RecurrenceEveryNDays, mo.Some(4), "2025-01-15")
		got, err := Occurrences(r, ts("2025-01-16"), ts("2025-03-01"), 2)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{ts("2025-01-19"), ts("2025-01-23")}, got)
	})

	t.Run("weekly", func(t *testing.T) {
		r := reminder("friday", storage.RecurrenceWeekly, mo.Some(5), "2025-02-07T21:00:00Z")
		got, err := Occurrences(r, ts("2025-02-08"), ts("2025-02-22"), 0)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{ts("2025-02-14T21:00:00Z"), ts("2025-02-21T21:00:00Z")}, got)
	})

	t.Run("one-off", func(t *testing.T) {
		r := reminder("once", storage.RecurrenceNone, mo.None[int](), "2025-06-01")
		got, err := Occurrences(r, ts("2025-05-01"), ts("2025-07-01"), 0)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{ts("2025-06-01")}, got)

		got, err = Occurrences(r, ts("2025-07-01"), ts("2025-08-01"), 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("limit stops expansion early", func(t *testing.T) {
		r := reminder("daily", storage.RecurrenceDaily, mo.None[int](), "2025-01-01T07:00:00Z")
		got, err := Occurrences(r, ts("2025-01-01"), ts("9999-12-31"), 1)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{ts("2025-01-01T07:00:00Z")}, got)

		got, err = Occurrences(r, ts("2260-03-01"), ts("9999-12-31"), 2)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{ts("2260-03-01T07:00:00Z"), ts("2260-03-02T07:00:00Z")}, got)
	})

	t.Run("beyond horizon", func(t *testing.T) {
		r := reminder("cycle", storage.RecurrenceEveryNDays, mo.Some(3), "2025-01-01")

		_, err := Occurrences(r, ts("2400-01-01"), ts("2400-01-06"), 0)
		assert.ErrorIs(t, err, ErrBeyondHorizon)

		// Not enough occurrences before the horizon to satisfy the request.
		_, err = Occurrences(r, ts("2274-12-01"), ts("2300-01-01"), 0)
		assert.ErrorIs(t, err, ErrBeyondHorizon)

		got, err := Occurrences(r, ts("2274-12-01"), ts("2300-01-01"), 3)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := Occurrences(storage.Reminder{ID: "x"}, ts("2025-01-01"), ts("2025-02-01"), 0)
		assert.ErrorIs(t, err, ErrUnsupportedRule)

		r := reminder("daily", storage.RecurrenceDaily, mo.None[int](), "2025-01-01")
		_, err = Occurrences(r, ts("2025-02-01"), ts("2025-01-01"), 0)
		assert.ErrorIs(t, err, ErrInvertedRange)
	})
}

func TestEncodeCalendar(t *testing.T) {
	monthly := reminder("rent", storage.RecurrenceMonthly, mo.None[int](), "2025-01-31T09:00:00Z")
	monthly.Text = "Pay rent, utilities"
	once := reminder("dentist", storage.RecurrenceNone, mo.None[int](), "2025-06-01T14:30:00Z")

	var buf bytes.Buffer
	require.NoError(t, EncodeCalendar(&buf, []storage.Reminder{monthly, once}))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)

	prodID, err := cal.Props.Text(ical.PropProductID)
	require.NoError(t, err)
	assert.Equal(t, ProductID, prodID)

	events := cal.Events()
	require.Len(t, events, 2)

	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "rent", uid)

	summary, err := events[0].Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Pay rent, utilities", summary)

	start, err := events[0].Props.DateTime(ical.PropDateTimeStart, time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(ts("2025-01-31T09:00:00Z")))

	rule := events[0].Props.Get(ical.PropRecurrenceRule)
	require.NotNil(t, rule)
	assert.Equal(t, "FREQ=MONTHLY;BYMONTHDAY=28,29,30,31;BYSETPOS=-1", rule.Value)

	user, err := events[0].Props.Text(PropReminderUser)
	require.NoError(t, err)
	assert.Equal(t, "tester", user)

	assert.Nil(t, events[1].Props.Get(ical.PropRecurrenceRule))
}

func TestEncodeCalendarErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, EncodeCalendar(&buf, nil), ErrEmptyCalendar)

	bad := reminder("bad", storage.RecurrenceEveryNDays, mo.None[int](), "2025-01-01")
	assert.ErrorIs(t, EncodeCalendar(&buf, []storage.Reminder{bad}), ErrUnsupportedRule)
}

func TestEngine_EncodeFeedSkipsUnusableReminders(t *testing.T) {
	obs := new(mockObserver)
	obs.On("ObserveAnomaly", AnomalyUnknownRecurrence).Once()
	obs.On("ObserveAnomaly", AnomalyMissingValue).Once()
	engine := NewEngine(WithObserver(obs))

	good := storage.NewMockReminder("good", "stretch", storage.RecurrenceDaily, mo.None[int](), ts("2025-02-10T08:00:00Z"))
	unknown := storage.NewMockReminder("unknown", "x", storage.RecurrenceInvalid, mo.None[int](), ts("2025-02-11"))
	noValue := storage.NewMockReminder("no-value", "x", storage.RecurrenceEveryNDays, mo.None[int](), ts("2025-02-12"))

	var buf bytes.Buffer
	require.NoError(t, engine.EncodeFeed(&buf, []storage.Reminder{unknown, good, noValue}))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	uid, err := events[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "good", uid)
	obs.AssertExpectations(t)

	obs.On("ObserveAnomaly", AnomalyUnknownRecurrence).Once()
	buf.Reset()
	assert.ErrorIs(t, engine.EncodeFeed(&buf, []storage.Reminder{unknown}), ErrEmptyCalendar)
	obs.AssertExpectations(t)
}
