package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies why a run failed
type Kind string

const (
	KindBadInput      Kind = "BadInput"
	KindStorage       Kind = "StorageError"
	KindTranscription Kind = "TranscriptionError"
	KindGeneration    Kind = "GenerationError"
	KindSynthesis     Kind = "SynthesisError"
)

// Error is returned by Process for every failed run. State is the last
// state the run reached before failing
type Error struct {
	Kind  Kind
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s after %s: %v", e.Kind, e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err
func KindOf(err error) (Kind, bool) {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind, true
	}
	return "", false
}
