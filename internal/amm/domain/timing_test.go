package amm

import (
	"testing"
	"time"
)

// 2024-03-05 is a Tuesday.
func tuesday(hour, min int) time.Time {
	return time.Date(2024, 3, 5, hour, min, 0, 0, time.UTC)
}

func periodicTiming() Timing {
	return Timing{
		Mode:       ModePeriodic,
		Weekdays:   []time.Weekday{time.Tuesday, time.Thursday},
		DailyStart: "08:00",
		DailyEnd:   "10:00",
	}
}

func TestPeriodicDueWindow(t *testing.T) {
	timing := periodicTiming()

	window, due := timing.DueWindow(tuesday(9, 0))
	if !due {
		t.Fatalf("not due inside the daily window")
	}
	if !window.Start.Equal(tuesday(8, 0)) || !window.End.Equal(tuesday(10, 0)) {
		t.Fatalf("window = %+v", window)
	}
	if window.ID != "2024-03-05T08:00:00Z" {
		t.Fatalf("window id = %q", window.ID)
	}
}

func TestPeriodicNotDueOutsideWindowOrWeekday(t *testing.T) {
	timing := periodicTiming()

	if _, due := timing.DueWindow(tuesday(7, 59)); due {
		t.Fatalf("due before daily start")
	}
	if _, due := timing.DueWindow(tuesday(10, 0)); due {
		t.Fatalf("due at exclusive daily end")
	}
	// 2024-03-06 is a Wednesday.
	wednesday := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	if _, due := timing.DueWindow(wednesday); due {
		t.Fatalf("due on a disabled weekday")
	}
}

func TestPeriodicHonorsDateRange(t *testing.T) {
	timing := periodicTiming()
	timing.SpanStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	timing.SpanEnd = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	if _, due := timing.DueWindow(tuesday(9, 0)); !due {
		t.Fatalf("not due inside the date range")
	}
	// 2026-08-25 is a Tuesday, years past the configured range.
	later := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	if _, due := timing.DueWindow(later); due {
		t.Fatalf("due on a matching weekday outside the date range")
	}
	// 2024-02-27 is a Tuesday before the range opens.
	earlier := time.Date(2024, 2, 27, 9, 0, 0, 0, time.UTC)
	if _, due := timing.DueWindow(earlier); due {
		t.Fatalf("due before the date range opens")
	}
}

func TestPeriodicDateRangeCoversFinalDay(t *testing.T) {
	timing := periodicTiming()
	timing.Weekdays = []time.Weekday{time.Sunday}
	timing.SpanEnd = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	// 2024-03-31 is a Sunday; the range end is inclusive by calendar day.
	if _, due := timing.DueWindow(time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)); !due {
		t.Fatalf("not due on the final day of the date range")
	}
	if _, due := timing.DueWindow(time.Date(2024, 4, 7, 9, 0, 0, 0, time.UTC)); due {
		t.Fatalf("due past the date range")
	}
}

func TestWindowIdentityIsDeterministic(t *testing.T) {
	timing := periodicTiming()

	first, due1 := timing.DueWindow(tuesday(8, 10))
	second, due2 := timing.DueWindow(tuesday(9, 45))
	if !due1 || !due2 {
		t.Fatalf("both instants should be due")
	}
	if first.ID != second.ID {
		t.Fatalf("window ids differ within one window: %q vs %q", first.ID, second.ID)
	}
}

func TestSpanFiresOnlyInsideSpan(t *testing.T) {
	timing := Timing{
		Mode:      ModeSpan,
		SpanStart: tuesday(8, 0),
		SpanEnd:   tuesday(12, 0),
	}

	window, due := timing.DueWindow(tuesday(9, 30))
	if !due {
		t.Fatalf("not due inside span")
	}
	if !window.Start.Equal(tuesday(8, 0)) || !window.End.Equal(tuesday(12, 0)) {
		t.Fatalf("window = %+v", window)
	}

	if _, due := timing.DueWindow(tuesday(7, 0)); due {
		t.Fatalf("due before span")
	}
	if _, due := timing.DueWindow(tuesday(12, 0)); due {
		t.Fatalf("due at exclusive span end")
	}
}

func TestAlwaysBucketsByRefireInterval(t *testing.T) {
	timing := Timing{Mode: ModeAlways, Refire: 5 * time.Minute}

	first, due := timing.DueWindow(tuesday(9, 2))
	if !due || !first.Start.Equal(tuesday(9, 0)) {
		t.Fatalf("window = %+v due = %v", first, due)
	}
	second, _ := timing.DueWindow(tuesday(9, 6))
	if second.ID == first.ID {
		t.Fatalf("next bucket reused the previous id")
	}
	if !second.Start.Equal(tuesday(9, 5)) {
		t.Fatalf("second window = %+v", second)
	}
}

func TestAlwaysRefireFloorsAtOneMinute(t *testing.T) {
	timing := Timing{Mode: ModeAlways}

	window, due := timing.DueWindow(tuesday(9, 0).Add(30 * time.Second))
	if !due {
		t.Fatalf("always schedule not due")
	}
	if got := window.End.Sub(window.Start); got != time.Minute {
		t.Fatalf("bucket = %v, want 1m floor", got)
	}
}

func TestFragmentationNarrowsWindow(t *testing.T) {
	timing := periodicTiming()
	timing.Fragmentation = Fragmentation{
		Enabled:         true,
		DurationMinutes: 5,
		IntervalMinutes: 15,
	}

	window, due := timing.DueWindow(tuesday(8, 3))
	if !due {
		t.Fatalf("not due inside first fragment")
	}
	if !window.Start.Equal(tuesday(8, 0)) || !window.End.Equal(tuesday(8, 5)) {
		t.Fatalf("fragment = %+v", window)
	}

	if _, due := timing.DueWindow(tuesday(8, 7)); due {
		t.Fatalf("due between fragments")
	}

	third, due := timing.DueWindow(tuesday(8, 31))
	if !due || !third.Start.Equal(tuesday(8, 30)) {
		t.Fatalf("third fragment = %+v due = %v", third, due)
	}
	if third.ID == window.ID {
		t.Fatalf("fragments share an id")
	}
}

func TestFragmentationCountLimit(t *testing.T) {
	timing := periodicTiming()
	timing.Fragmentation = Fragmentation{
		Enabled:         true,
		DurationMinutes: 5,
		IntervalMinutes: 15,
		Count:           2,
	}

	if _, due := timing.DueWindow(tuesday(8, 16)); !due {
		t.Fatalf("second fragment should fire")
	}
	if _, due := timing.DueWindow(tuesday(8, 31)); due {
		t.Fatalf("third fragment fired past the count limit")
	}
}

func TestTimingValidate(t *testing.T) {
	tests := []struct {
		name    string
		timing  Timing
		wantErr bool
	}{
		{"periodic ok", periodicTiming(), false},
		{"always ok", Timing{Mode: ModeAlways}, false},
		{"span ok", Timing{Mode: ModeSpan, SpanStart: tuesday(8, 0), SpanEnd: tuesday(9, 0)}, false},
		{"unknown mode", Timing{Mode: "SOMETIMES"}, true},
		{"span inverted", Timing{Mode: ModeSpan, SpanStart: tuesday(9, 0), SpanEnd: tuesday(8, 0)}, true},
		{"periodic no weekdays", Timing{Mode: ModePeriodic, DailyStart: "08:00", DailyEnd: "10:00"}, true},
		{"periodic bad clock", Timing{Mode: ModePeriodic, Weekdays: []time.Weekday{time.Monday}, DailyStart: "8am", DailyEnd: "10:00"}, true},
		{
			"periodic date range inverted",
			Timing{
				Mode: ModePeriodic, Weekdays: []time.Weekday{time.Monday},
				DailyStart: "08:00", DailyEnd: "10:00",
				SpanStart: tuesday(9, 0), SpanEnd: tuesday(8, 0).AddDate(0, 0, -1),
			},
			true,
		},
		{"refire too small", Timing{Mode: ModeAlways, Refire: time.Second}, true},
		{
			"fragment interval too small",
			Timing{
				Mode: ModeAlways,
				Fragmentation: Fragmentation{
					Enabled: true, DurationMinutes: 10, IntervalMinutes: 5,
				},
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.timing.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
