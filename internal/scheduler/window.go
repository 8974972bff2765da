package scheduler

import (
	"fmt"
	"time"
)

// Window is a daily time window in the server's local time. Valuation runs
// are gated on it so batches never race the nightly ranking pass.
type Window struct {
	startHour   int
	startMinute int
	endHour     int
	endMinute   int
}

// ParseWindow builds a Window from two "HH:MM" strings
func ParseWindow(start, end string) (*Window, error) {
	sh, sm, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("invalid window start %q: %w", start, err)
	}
	eh, em, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("invalid window end %q: %w", end, err)
	}

	return &Window{startHour: sh, startMinute: sm, endHour: eh, endMinute: em}, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// Contains reports whether t falls inside the window. Start is inclusive,
// end is exclusive.
func (w *Window) Contains(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	start := w.startHour*60 + w.startMinute
	end := w.endHour*60 + w.endMinute

	if start <= end {
		return minutes >= start && minutes < end
	}
	// Window wraps past midnight
	return minutes >= start || minutes < end
}
