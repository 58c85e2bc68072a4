package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when a workflow schedule expression cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid schedule expression")

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a standard 5-field cron expression or a descriptor such as @hourly.
func ParseSchedule(expression string) (cron.Schedule, error) {
	if expression == "" {
		return nil, ErrInvalidSchedule
	}

	schedule, err := scheduleParser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	return schedule, nil
}

// IsSchedulable reports whether the workflow should be registered with the schedule trigger source.
func (w *Workflow) IsSchedulable() bool {
	if w.Status != WorkflowStatusActive || w.Schedule == "" {
		return false
	}

	_, err := ParseSchedule(w.Schedule)

	return err == nil
}

// NextRun returns the next time the workflow schedule fires after reference.
func (w *Workflow) NextRun(reference time.Time) (time.Time, error) {
	schedule, err := ParseSchedule(w.Schedule)
	if err != nil {
		return time.Time{}, err
	}

	return schedule.Next(reference), nil
}
