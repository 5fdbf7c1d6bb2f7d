package runner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/astro-run/constellation-runtime/costs"
	"github.com/astro-run/constellation-runtime/emit"
	"github.com/astro-run/constellation-runtime/metrics"
	"github.com/astro-run/constellation-runtime/runstore"
)

// Option configures a Runner at construction time, grounded on the
// teacher's graph/options.go functional-options pattern.
type Option func(*runnerConfig) error

type runnerConfig struct {
	registry           *Registry
	store              runstore.Store
	emitter            emit.Emitter
	metrics            *metrics.Metrics
	costTracker        *costs.Tracker
	logger             *slog.Logger
	toolCallTruncation int
	semanticMatches    []SemanticMatch
	checkpointEvery    int
	maxConcurrent      int
	defaultNodeTimeout time.Duration
	idGen              func() string
}

// WithStore sets the Run Store. Required — New returns an error without one.
func WithStore(store runstore.Store) Option {
	return func(cfg *runnerConfig) error {
		if store == nil {
			return fmt.Errorf("runner: store must not be nil")
		}
		cfg.store = store
		return nil
	}
}

// WithEmitter sets the event sink. Default: emit.NewNullEmitter().
func WithEmitter(emitter emit.Emitter) Option {
	return func(cfg *runnerConfig) error {
		if emitter == nil {
			return fmt.Errorf("runner: emitter must not be nil")
		}
		cfg.emitter = emitter
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics collector. Default: nil (all
// Metrics methods on a nil receiver are no-ops).
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *runnerConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithToolCallTruncation sets the character limit applied to a tool
// call's Result field before storage (§4.4). Default: star.DefaultToolCallTruncation (500).
func WithToolCallTruncation(n int) Option {
	return func(cfg *runnerConfig) error {
		cfg.toolCallTruncation = n
		return nil
	}
}

// WithSemanticMatches overrides the §4.5 step-3 substring map. Default:
// DefaultSemanticMatches().
func WithSemanticMatches(matches []SemanticMatch) Option {
	return func(cfg *runnerConfig) error {
		cfg.semanticMatches = matches
		return nil
	}
}

// WithCheckpointInterval sets how many StarNode executions (completed ones
// and failed attempts alike) elapse between periodic Run persistence
// (§4.2). A failed execution is also persisted on its own. Default: 3.
func WithCheckpointInterval(n int) Option {
	return func(cfg *runnerConfig) error {
		if n < 1 {
			return fmt.Errorf("runner: checkpoint interval must be >= 1")
		}
		cfg.checkpointEvery = n
		return nil
	}
}

// WithRunIDGenerator overrides run-id generation (format "run_<12 hex>"),
// for deterministic tests.
func WithRunIDGenerator(gen func() string) Option {
	return func(cfg *runnerConfig) error {
		if gen == nil {
			return fmt.Errorf("runner: run id generator must not be nil")
		}
		cfg.idGen = gen
		return nil
	}
}

// WithCostTracker attaches a costs.Tracker; Worker Stars that report
// token-usage metadata on their WorkerOutput have their cost recorded
// against it after each node completes (§9 supplemented feature).
// Default: nil (no cost tracking).
func WithCostTracker(tracker *costs.Tracker) Option {
	return func(cfg *runnerConfig) error {
		cfg.costTracker = tracker
		return nil
	}
}

// WithLogger sets the logger used for conditions §4.6.3 requires the
// Runner to "log a warning and proceed" about (e.g. an eval loop decision
// with no loop edge and no Planning Star to fall back to). Default:
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *runnerConfig) error {
		if logger == nil {
			return fmt.Errorf("runner: logger must not be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithMaxConcurrent bounds how many sibling StarNodes ExecuteParallel runs
// at once via a counting semaphore; n must be >= 1. Default: 0 (unbounded
// — every sibling gets its own goroutine, as before this option existed).
func WithMaxConcurrent(n int) Option {
	return func(cfg *runnerConfig) error {
		if n < 1 {
			return fmt.Errorf("runner: max concurrent must be >= 1")
		}
		cfg.maxConcurrent = n
		return nil
	}
}

// WithDefaultNodeTimeout bounds how long a single StarNode execution
// attempt (one retry attempt, not the whole retry envelope) may run before
// its context is cancelled; d must be > 0. Default: 0 (no timeout).
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *runnerConfig) error {
		if d <= 0 {
			return fmt.Errorf("runner: default node timeout must be > 0")
		}
		cfg.defaultNodeTimeout = d
		return nil
	}
}
