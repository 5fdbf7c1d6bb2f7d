package runner

import (
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by Resume/Cancel when the store has no record
// for the given run id. Grounded on runner.py's RunNotFoundError.
var ErrRunNotFound = errors.New("runner: run not found")

// ErrConstellationNotFound is returned by Run when the registry has no
// Constellation for the given id.
var ErrConstellationNotFound = errors.New("runner: constellation not found")

// ErrNotAwaitingConfirmation is returned by Resume when the target run's
// status isn't awaiting_confirmation.
var ErrNotAwaitingConfirmation = errors.New("runner: run is not awaiting confirmation")

// ExecutionError reports a node-execution failure that isn't itself the
// underlying Star's error — e.g. an unmet precondition like a failed
// upstream node or a missing required variable. Grounded on runner.py's
// ExecutionError (astro_backend_service/executor/exceptions.py, inferred
// from its usage in runner.py).
type ExecutionError struct {
	NodeID  string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %q: %s", e.NodeID, e.Message)
}

// ParallelExecutionError aggregates the errors from a failed parallel
// fan-out wave, grounded on runner.py's _execute_parallel_nodes
// (`errors = [r for r in results if isinstance(r, Exception)]`).
type ParallelExecutionError struct {
	Errors []error
}

func (e *ParallelExecutionError) Error() string {
	return fmt.Sprintf("%d node(s) failed in parallel execution", len(e.Errors))
}

// Unwrap exposes the aggregated errors to errors.Is/errors.As chains.
func (e *ParallelExecutionError) Unwrap() []error {
	return e.Errors
}
