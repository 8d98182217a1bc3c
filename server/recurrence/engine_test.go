package recurrence

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/jasonliu2000/reminders-backend/server/storage"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) ObserveRangeQuery(outcome string, candidates, matched int, elapsed time.Duration) {
	m.Called(outcome, candidates, matched, elapsed)
}

func (m *mockObserver) ObserveAnomaly(reason string) {
	m.Called(reason)
}

func reminder(id string, rt storage.RecurrenceType, value mo.Option[int], start string) storage.Reminder {
	return storage.NewMockReminder(id, id, rt, value, ts(start))
}

func TestEngine_OccursInRange(t *testing.T) {
	engine := NewEngine()

	oneOff := reminder("appointment", storage.RecurrenceNone, mo.None[int](), "2025-06-01")
	daily := reminder("medication", storage.RecurrenceDaily, mo.None[int](), "2025-02-01T07:00:00Z")
	weekly := reminder("friday", storage.RecurrenceWeekly, mo.Some(5), "2025-01-03T00:00:00Z")
	every4 := reminder("plants", storage.RecurrenceEveryNDays, mo.Some(4), "2025-01-15")
	monthly31 := reminder("rent", storage.RecurrenceMonthly, mo.None[int](), "2025-01-31")
	monthly25 := reminder("invoice", storage.RecurrenceMonthly, mo.None[int](), "2025-01-25")

	tests := []struct {
		name   string
		r      storage.Reminder
		lo, hi string
		want   bool
	}{
		{"starts after range", oneOff, "2025-01-01", "2025-01-01", false},
		{"starts inside range", oneOff, "2025-05-01", "2025-07-01", true},
		{"starts at range start", oneOff, "2025-06-01", "2025-07-01", true},
		{"starts at range end", oneOff, "2025-05-01", "2025-06-01", true},
		{"one-off before range", oneOff, "2025-07-01", "2025-08-01", false},
		{"daily outside single-day window", daily, "2025-03-01T08:00:00Z", "2025-03-01T09:00:00Z", false},
		{"daily over 24h", daily, "2025-03-01T06:00:00Z", "2025-03-02T06:00:00Z", true},
		{"weekly, no friday", weekly, "2025-02-08", "2025-02-13", false},
		{"weekly, friday to sunday", weekly, "2025-02-07", "2025-02-09", true},
		{"every 4 days on range start", every4, "2025-01-19", "2025-01-21", true},
		{"every 4 days missed", every4, "2025-01-16", "2025-01-18", false},
		{"monthly 31st clamps to feb 28", monthly31, "2025-02-24", "2025-02-28", true},
		{"monthly across year, hit", monthly25, "2025-12-24", "2026-01-24", true},
		{"monthly across year, miss", monthly25, "2025-12-26", "2026-01-24", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.OccursInRange(tt.r, ts(tt.lo), ts(tt.hi)))
		})
	}
}

func TestEngine_InclusiveBoundaries(t *testing.T) {
	engine := NewEngine()
	start := "2025-03-10T10:15:00Z"

	for _, rt := range storage.RecurrenceTypes {
		at := ts(start)
		r := reminder(rt.String(), rt, mo.Some(storage.ISOWeekday(at)), start)
		assert.True(t, engine.OccursInRange(r, at, at.Add(time.Hour)), "%s anchored on lo", rt)
		assert.True(t, engine.OccursInRange(r, at.Add(-time.Hour), at), "%s anchored on hi", rt)
		assert.True(t, engine.OccursInRange(r, at, at), "%s on a zero-length range", rt)
	}
}

func TestEngine_FullCycleGuarantee(t *testing.T) {
	engine := NewEngine()
	for _, n := range []int{1, 2, 3, 7, 10, 30} {
		r := reminder("cycle", storage.RecurrenceEveryNDays, mo.Some(n), "2025-01-01T13:37:00Z")
		for _, offset := range []int{0, 5, 11, 29, 101} {
			lo := ts("2025-01-02T00:00:00Z").Add(time.Duration(offset) * 7 * time.Hour)
			hi := lo.Add(time.Duration(n) * 24 * time.Hour)
			assert.True(t, engine.OccursInRange(r, lo, hi), "n=%d lo=%s", n, lo)
		}
	}
}

func TestEngine_MonotonicRangeGrowth(t *testing.T) {
	engine := NewEngine()
	reminders := []storage.Reminder{
		reminder("daily", storage.RecurrenceDaily, mo.None[int](), "2025-01-01T07:00:00Z"),
		reminder("weekly", storage.RecurrenceWeekly, mo.Some(3), "2025-01-01T19:30:00Z"),
		reminder("every3", storage.RecurrenceEveryNDays, mo.Some(3), "2025-01-01T23:59:59Z"),
		reminder("monthly", storage.RecurrenceMonthly, mo.None[int](), "2025-01-30T08:00:00Z"),
	}

	lo := ts("2025-02-10T12:00:00Z")
	for _, r := range reminders {
		seen := false
		for h := 0; h <= 24*40; h += 5 {
			got := engine.OccursInRange(r, lo, lo.Add(time.Duration(h)*time.Hour))
			if seen {
				assert.True(t, got, "%s turned false after widening to +%dh", r.ID, h)
			}
			seen = seen || got
		}
		assert.True(t, seen, "%s never occurred", r.ID)
	}
}

func TestEngine_Anomalies(t *testing.T) {
	var buf bytes.Buffer
	obs := new(mockObserver)
	engine := NewEngine(
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
		WithObserver(obs),
	)
	lo, hi := ts("2025-12-24"), ts("2026-01-24")

	obs.On("ObserveAnomaly", AnomalyUnknownRecurrence).Once()
	unknown := reminder("unknown", storage.RecurrenceInvalid, mo.None[int](), "2025-01-25")
	assert.False(t, engine.OccursInRange(unknown, lo, hi))

	obs.On("ObserveAnomaly", AnomalyMalformedAnchor).Once()
	badStart := storage.Reminder{ID: "bad-start", Recurrence: storage.RecurrenceNone}
	assert.False(t, engine.OccursInRange(badStart, lo, hi))

	obs.On("ObserveAnomaly", AnomalyMissingValue).Twice()
	noValue := reminder("no-value", storage.RecurrenceEveryNDays, mo.None[int](), "2025-01-25")
	assert.False(t, engine.OccursInRange(noValue, lo, hi))
	zero := reminder("zero", storage.RecurrenceEveryNDays, mo.Some(0), "2025-01-25")
	assert.False(t, engine.OccursInRange(zero, lo, hi))

	obs.AssertExpectations(t)
	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"reminder_id":"unknown"`)
	assert.Contains(t, out, `"reason":"malformed_anchor"`)
}

func TestEngine_AnchorInRangeStillReportsAnomalies(t *testing.T) {
	obs := new(mockObserver)
	engine := NewEngine(WithObserver(obs))
	lo, hi := ts("2025-01-01"), ts("2025-02-01")

	obs.On("ObserveAnomaly", AnomalyUnknownRecurrence).Once()
	assert.True(t, engine.OccursInRange(reminder("unknown", storage.RecurrenceInvalid, mo.None[int](), "2025-01-25"), lo, hi))

	obs.On("ObserveAnomaly", AnomalyMissingValue).Once()
	assert.True(t, engine.OccursInRange(reminder("no-value", storage.RecurrenceEveryNDays, mo.None[int](), "2025-01-25"), lo, hi))

	// usable reminders report nothing
	assert.True(t, engine.OccursInRange(reminder("cycle", storage.RecurrenceEveryNDays, mo.Some(2), "2025-01-25"), lo, hi))
	obs.AssertExpectations(t)
}

func TestEngine_CyclesCenturiesAway(t *testing.T) {
	engine := NewEngine()
	r := reminder("cycle", storage.RecurrenceEveryNDays, mo.Some(3), "2025-01-01T00:00:00Z")

	hits := 0
	for d := 1; d <= 6; d++ {
		lo := time.Date(2400, time.January, d, 0, 0, 0, 0, time.UTC)
		if engine.OccursInRange(r, lo, lo.Add(12*time.Hour)) {
			hits++
		}
	}
	assert.Equal(t, 2, hits)

	huge := reminder("huge", storage.RecurrenceEveryNDays, mo.Some(213_504), "2025-01-01T00:00:00Z")
	assert.False(t, engine.OccursInRange(huge, ts("2025-06-01"), ts("2025-06-02")))
}

func TestEngine_DateOnlyCycles(t *testing.T) {
	r := reminder("cycle", storage.RecurrenceEveryNDays, mo.Some(3), "2025-01-12T12:00:00Z")
	lo, hi := ts("2025-01-15T18:00:00Z"), ts("2025-01-16T00:00:00Z")

	assert.False(t, NewEngine().OccursInRange(r, lo, hi))
	assert.True(t, NewEngine(WithDateOnlyCycles()).OccursInRange(r, lo, hi))
}

func TestEngine_NilOptionsKeepDefaults(t *testing.T) {
	engine := NewEngine(WithLogger(nil), WithObserver(nil))
	require.NotNil(t, engine.logger)
	require.NotNil(t, engine.observer)
	assert.False(t, engine.OccursInRange(storage.Reminder{ID: "x"}, ts("2025-01-01"), ts("2025-01-02")))
}

// The engine must agree with a full RRULE expansion of the same reminder.
func TestEngine_AgreesWithRRuleExpansion(t *testing.T) {
	engine := NewEngine()
	reminders := []storage.Reminder{
		reminder("once", storage.RecurrenceNone, mo.None[int](), "2025-01-20T10:00:00Z"),
		reminder("daily", storage.RecurrenceDaily, mo.None[int](), "2025-01-03T07:30:00Z"),
		reminder("weekly-fri", storage.RecurrenceWeekly, mo.Some(5), "2025-01-03T21:00:00Z"),
		reminder("weekly-mon", storage.RecurrenceWeekly, mo.Some(1), "2025-01-06T00:00:00Z"),
		reminder("every3", storage.RecurrenceEveryNDays, mo.Some(3), "2025-01-02T23:59:59Z"),
		reminder("every10", storage.RecurrenceEveryNDays, mo.Some(10), "2025-01-04T12:00:00Z"),
		reminder("monthly-15", storage.RecurrenceMonthly, mo.None[int](), "2025-01-15T09:00:00Z"),
		reminder("monthly-31", storage.RecurrenceMonthly, mo.None[int](), "2025-01-31T18:45:00Z"),
		reminder("monthly-29-leap", storage.RecurrenceMonthly, mo.None[int](), "2024-01-29T06:00:00Z"),
	}
	widths := []time.Duration{
		0,
		5 * time.Hour,
		23 * time.Hour,
		24 * time.Hour,
		51 * time.Hour,
		6 * 24 * time.Hour,
		7 * 24 * time.Hour,
		9*24*time.Hour + 3*time.Hour,
		32 * 24 * time.Hour,
	}

	for _, r := range reminders {
		first := r.StartDate.Add(-48 * time.Hour)
		for step := 0; step < 110; step++ {
			lo := first.Add(time.Duration(step) * 17 * time.Hour)
			for _, w := range widths {
				hi := lo.Add(w)
				occ, err := Occurrences(r, lo, hi, 1)
				require.NoError(t, err)

				want := len(occ) > 0
				if got := engine.OccursInRange(r, lo, hi); got != want {
					t.Fatalf("%s: OccursInRange(%s, %s) = %v, expansion found %v",
						r.ID, lo.Format(time.RFC3339), hi.Format(time.RFC3339), got, occ)
				}
			}
		}
	}
}
