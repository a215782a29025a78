package chatsvc

import (
	"context"
	"errors"
	"sync"
)

// ErrSubmitInProgress is returned when a flow is submitted while a previous
// submission has not finished.
var ErrSubmitInProgress = errors.New("submission in progress")

// FlowState is the state of a SubmitFlow.
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowSubmitting
	FlowSucceeded
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowSubmitting:
		return "submitting"
	case FlowSucceeded:
		return "succeeded"
	case FlowFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SubmitFlow tracks a single user-facing submission such as a login form:
// Idle -> Submitting -> Succeeded | Failed. A failed flow keeps its error
// until ClearError or the next Submit.
type SubmitFlow[T any] struct {
	mu    sync.Mutex
	state FlowState
	value T
	err   error
}

// Submit runs fn unless a submission is already running.
func (f *SubmitFlow[T]) Submit(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	f.mu.Lock()

	if f.state == FlowSubmitting {
		f.mu.Unlock()

		var zero T

		return zero, ErrSubmitInProgress
	}

	f.state = FlowSubmitting
	f.err = nil
	f.mu.Unlock()

	value, err := fn(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		var zero T

		f.state = FlowFailed
		f.value = zero
		f.err = err

		return zero, err
	}

	f.state = FlowSucceeded
	f.value = value

	return value, nil
}

// State returns the current state and, in FlowFailed, the error.
func (f *SubmitFlow[T]) State() (FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state, f.err
}

// Value returns the result of the last successful submission.
func (f *SubmitFlow[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.value, f.state == FlowSucceeded
}

// ClearError dismisses a failure, moving the flow back to FlowIdle. It has
// no effect in any other state.
func (f *SubmitFlow[T]) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == FlowFailed {
		f.state = FlowIdle
		f.err = nil
	}
}
