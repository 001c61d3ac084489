package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline and session failures.
var (
	ErrServiceUnavailable = errors.New("language model service unavailable")
	ErrLoadFailure        = errors.New("document load failed")
	ErrIndexBuild         = errors.New("index build failed")
	ErrNotReady           = errors.New("document processing not completed")
	ErrMissingQuestion    = errors.New("input must contain either 'question' or 'input' key")
	ErrGeneration         = errors.New("answer generation failed")
)

// NotReadyError reports a question asked against a session that has not
// finished processing. Status carries the session's current state and Detail
// the prior build error, if any.
type NotReadyError struct {
	Status string
	Detail string
}

func (e *NotReadyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("session not ready (status=%s): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("session not ready (status=%s)", e.Status)
}

func (e *NotReadyError) Unwrap() error { return ErrNotReady }
