package availability

import (
	"fmt"
	"time"
)

// WeeklySlot is a recurring availability window. Day uses time.Weekday numbering (0 = Sunday).
type WeeklySlot struct {
	Day   time.Weekday `json:"dayOfWeek"`
	Start TimeOfDay    `json:"startTime"`
	End   TimeOfDay    `json:"endTime"`
}

func NewWeeklySlot(day int, start, end string) (WeeklySlot, error) {
	if day < 0 || day > 6 {
		return WeeklySlot{}, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return WeeklySlot{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return WeeklySlot{}, err
	}
	ws := WeeklySlot{Day: time.Weekday(day), Start: s, End: e}
	if err := ws.Validate(); err != nil {
		return WeeklySlot{}, err
	}
	return ws, nil
}

func (ws WeeklySlot) Validate() error {
	if ws.Day < time.Sunday || ws.Day > time.Saturday {
		return fmt.Errorf("%w: %d", ErrInvalidDay, ws.Day)
	}
	if ws.Start < 0 || ws.End >= 24*60 {
		return fmt.Errorf("%w: %s-%s", ErrInvalidTime, ws.Start, ws.End)
	}
	if ws.Start >= ws.End {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidRange, ws.Start, ws.End)
	}
	return nil
}

// Window anchors the slot on date d.
func (ws WeeklySlot) Window(d Date, loc *time.Location) Interval {
	return Interval{Start: d.At(ws.Start, loc), End: d.At(ws.End, loc)}
}
