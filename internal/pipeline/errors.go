package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one step of the per-call pipeline.
type Stage string

const (
	StageAdmit      Stage = "admit"
	StageTranscribe Stage = "transcribe"
	StageAnalyze    Stage = "analyze"
	StageRetrieve   Stage = "retrieve_context"
	StageGenerate   Stage = "generate"
	StageDecide     Stage = "decide"
	StagePersist    Stage = "persist"
	StageNotify     Stage = "notify"
)

var (
	ErrInvalidInput    = errors.New("pipeline: invalid input")
	ErrEmptyTranscript = errors.New("pipeline: transcription returned no text")
	ErrBusy            = errors.New("pipeline: workspace concurrency limit reached")
)

// StageError reports which stage stopped a call.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of err, or "" when err did not come
// from a pipeline stage.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
