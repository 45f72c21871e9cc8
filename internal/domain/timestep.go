package domain

import (
	"fmt"
	"time"
)

// TimeStep is the calendar distance between two consecutive observations.
type TimeStep string

const (
	StepHour TimeStep = "hour"
	StepDay  TimeStep = "day"
	StepWeek TimeStep = "week"
)

// ParseTimeStep validates a configured time step.
func ParseTimeStep(s string) (TimeStep, error) {
	switch TimeStep(s) {
	case StepHour, StepDay, StepWeek:
		return TimeStep(s), nil
	default:
		return "", fmt.Errorf("%w: unknown time step %q (want hour, day or week)", ErrInvalidArgument, s)
	}
}

// Advance returns t moved forward by one step. Day and week steps move by
// calendar days so DST transitions never shift the wall-clock hour.
func (s TimeStep) Advance(t time.Time) time.Time {
	switch s {
	case StepHour:
		return t.Add(time.Hour)
	case StepWeek:
		return t.AddDate(0, 0, 7)
	default:
		return t.AddDate(0, 0, 1)
	}
}
