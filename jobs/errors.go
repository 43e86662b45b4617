package jobs

import (
	"errors"
	"fmt"
)

// Stage is a step of the indicators pipeline.
type Stage string

const (
	StageFetch   Stage = "Fetch"
	StageExtract Stage = "Extract"
	StageCompose Stage = "Compose"
	StagePublish Stage = "Publish"
)

var (
	errNoTriggerTimes   = errors.New("scheduler needs at least one trigger time")
	errInvalidTimeOfDay = errors.New("invalid time of day, expected HH:MM")
	errCyclePanic       = errors.New("cycle panicked")
)

// StageError is returned by IndicatorJob.Run when a stage failed and the cycle was aborted.
// The failure has already been logged and captured when it is returned.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("[IndicatorJob.%s]: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
