package amm

import (
	"fmt"
	"time"
)

// Timing modes.
const (
	ModeAlways   = "ALWAYS"
	ModeSpan     = "SPAN"
	ModePeriodic = "PERIODIC"
)

// MinRefire is the shortest allowed gap between firings of an ALWAYS
// schedule.
const MinRefire = time.Minute

// Fragmentation splits a firing window into repeated short measurements.
type Fragmentation struct {
	Enabled         bool `json:"enabled"`
	DurationMinutes int  `json:"duration_minutes"`
	IntervalMinutes int  `json:"interval_minutes"`
	Count           int  `json:"count,omitempty"` // 0 means fill the window
}

// Timing describes when a measurement configuration fires.
//
// ALWAYS fires continuously, once per refire interval. SPAN fires once for
// the configured span. PERIODIC fires on the configured weekdays inside the
// daily time window, bounded by the date range when one is set.
type Timing struct {
	Mode string `json:"mode"`

	// SPAN bounds. For PERIODIC they act as an optional date range:
	// the schedule only fires on calendar days inside
	// [SpanStart, SpanEnd], either side open when zero.
	SpanStart time.Time `json:"span_start,omitempty"`
	SpanEnd   time.Time `json:"span_end,omitempty"`

	Weekdays   []time.Weekday `json:"weekdays,omitempty"`
	DailyStart string         `json:"daily_start,omitempty"` // "15:04"
	DailyEnd   string         `json:"daily_end,omitempty"`

	Refire time.Duration `json:"refire,omitempty"` // ALWAYS only

	Fragmentation Fragmentation `json:"fragmentation"`
}

// Window is one concrete firing opportunity. Its ID is derived from the
// window start, so every evaluation of the same schedule at the same slot
// produces the same identity.
type Window struct {
	ID    string
	Start time.Time
	End   time.Time
}

func makeWindow(start, end time.Time) Window {
	return Window{
		ID:    start.UTC().Format(time.RFC3339),
		Start: start.UTC(),
		End:   end.UTC(),
	}
}

// Validate rejects timings the scheduler could not evaluate.
func (t Timing) Validate() error {
	switch t.Mode {
	case ModeAlways:
		if t.Refire != 0 && t.Refire < MinRefire {
			return fmt.Errorf("amm: refire interval below %s", MinRefire)
		}
	case ModeSpan:
		if t.SpanStart.IsZero() || t.SpanEnd.IsZero() {
			return fmt.Errorf("amm: span requires start and end")
		}
		if !t.SpanEnd.After(t.SpanStart) {
			return fmt.Errorf("amm: span end must be after span start")
		}
	case ModePeriodic:
		if len(t.Weekdays) == 0 {
			return fmt.Errorf("amm: periodic timing requires weekdays")
		}
		start, err := parseClock(t.DailyStart)
		if err != nil {
			return fmt.Errorf("amm: daily start: %w", err)
		}
		end, err := parseClock(t.DailyEnd)
		if err != nil {
			return fmt.Errorf("amm: daily end: %w", err)
		}
		if end <= start {
			return fmt.Errorf("amm: daily end must be after daily start")
		}
		if !t.SpanStart.IsZero() && !t.SpanEnd.IsZero() && t.SpanEnd.Before(t.SpanStart) {
			return fmt.Errorf("amm: date range end must not precede start")
		}
	default:
		return fmt.Errorf("amm: unknown timing mode %q", t.Mode)
	}
	if t.Fragmentation.Enabled {
		if t.Fragmentation.DurationMinutes <= 0 {
			return fmt.Errorf("amm: fragment duration must be positive")
		}
		if t.Fragmentation.IntervalMinutes < t.Fragmentation.DurationMinutes {
			return fmt.Errorf("amm: fragment interval must cover the fragment duration")
		}
	}
	return nil
}

// DueWindow reports the firing window containing now, if any. The result is
// deterministic: re-evaluating the same schedule at any instant inside the
// window yields the same window ID, which is what the execution history
// dedupes on.
func (t Timing) DueWindow(now time.Time) (Window, bool) {
	now = now.UTC()

	var base Window
	switch t.Mode {
	case ModeAlways:
		refire := t.Refire
		if refire < MinRefire {
			refire = MinRefire
		}
		start := now.Truncate(refire)
		base = makeWindow(start, start.Add(refire))
	case ModeSpan:
		if now.Before(t.SpanStart) || !now.Before(t.SpanEnd) {
			return Window{}, false
		}
		base = makeWindow(t.SpanStart, t.SpanEnd)
	case ModePeriodic:
		if !t.withinDateRange(now) {
			return Window{}, false
		}
		if !t.weekdayEnabled(now.Weekday()) {
			return Window{}, false
		}
		startMin, err := parseClock(t.DailyStart)
		if err != nil {
			return Window{}, false
		}
		endMin, err := parseClock(t.DailyEnd)
		if err != nil {
			return Window{}, false
		}
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start := midnight.Add(time.Duration(startMin) * time.Minute)
		end := midnight.Add(time.Duration(endMin) * time.Minute)
		if now.Before(start) || !now.Before(end) {
			return Window{}, false
		}
		base = makeWindow(start, end)
	default:
		return Window{}, false
	}

	if !t.Fragmentation.Enabled {
		return base, true
	}
	return t.currentFragment(base, now)
}

// currentFragment narrows the base window to the fragment containing now.
func (t Timing) currentFragment(base Window, now time.Time) (Window, bool) {
	interval := time.Duration(t.Fragmentation.IntervalMinutes) * time.Minute
	duration := time.Duration(t.Fragmentation.DurationMinutes) * time.Minute
	if interval <= 0 || duration <= 0 {
		return Window{}, false
	}

	k := int(now.Sub(base.Start) / interval)
	if t.Fragmentation.Count > 0 && k >= t.Fragmentation.Count {
		return Window{}, false
	}
	start := base.Start.Add(time.Duration(k) * interval)
	end := start.Add(duration)
	if end.After(base.End) {
		end = base.End
	}
	if !now.Before(end) {
		// Between fragments: the current slot's measurement already ended.
		return Window{}, false
	}
	return makeWindow(start, end), true
}

// withinDateRange checks the PERIODIC date range by calendar day, so a
// range ending on the 31st still covers the whole final day. A zero bound
// leaves that side open.
func (t Timing) withinDateRange(now time.Time) bool {
	day := calendarDay(now)
	if !t.SpanStart.IsZero() && day.Before(calendarDay(t.SpanStart)) {
		return false
	}
	if !t.SpanEnd.IsZero() && day.After(calendarDay(t.SpanEnd)) {
		return false
	}
	return true
}

func calendarDay(at time.Time) time.Time {
	at = at.UTC()
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
}

func (t Timing) weekdayEnabled(day time.Weekday) bool {
	for _, d := range t.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
