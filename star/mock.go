package star

import (
	"context"
	"fmt"
	"sync"

	"github.com/astro-run/constellation-runtime/constellation"
)

// Mock is a scriptable test double for Star, grounded on the teacher's
// graph/tool/mock.go (canned responses, call counting, mutex-guarded call
// log).
type Mock struct {
	mu    sync.Mutex
	calls int

	// Responses is consumed in order, one per call; Responses[call % len]
	// is NOT used — once exhausted, the last response repeats. Useful for
	// scenario S4 where a Star must be invoked a fixed number of times.
	Responses []constellation.StarOutput

	// Err, if set, is returned instead of a response on every call. Set
	// ErrUntilCall to only fail for the first N calls; failed calls still
	// advance the call index used to pick from Responses.
	Err          error
	ErrUntilCall int

	// Fn, if set, overrides Responses/Err entirely.
	Fn func(ctx context.Context, cc *constellation.Context, call int) (constellation.StarOutput, error)
}

// Execute implements Star.
func (m *Mock) Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, cc, call)
	}

	if m.Err != nil && (m.ErrUntilCall == 0 || call < m.ErrUntilCall) {
		return nil, m.Err
	}

	if len(m.Responses) == 0 {
		return constellation.WorkerOutput{Result: fmt.Sprintf("mock-call-%d", call)}, nil
	}
	idx := call
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// CallCount returns the number of times Execute has been invoked.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Reset clears the call count.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
}
