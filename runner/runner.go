// Package runner implements the Runner Core (C5) and Resume Controller
// (C6): the traversal engine that walks a Constellation in topological
// order, invokes Stars through the star.Star contract, binds variables,
// fans out parallel siblings with retry, controls the eval loop, pauses
// for human confirmation, emits progress events, and checkpoints Run
// state. Grounded end-to-end on
// astro_backend_service/executor/runner.py's ConstellationRunner
// (original_source/), with the teacher's goroutine/WaitGroup/channel
// concurrency idioms (graph/engine.go) replacing Python's asyncio.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/astro-run/constellation-runtime/constellation"
	"github.com/astro-run/constellation-runtime/costs"
	"github.com/astro-run/constellation-runtime/emit"
	"github.com/astro-run/constellation-runtime/metrics"
	"github.com/astro-run/constellation-runtime/runstore"
	"github.com/astro-run/constellation-runtime/star"
)

// Runner executes Constellations against a Registry, persisting to a
// runstore.Store and emitting progress to an emit.Emitter.
type Runner struct {
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

// New builds a Runner against registry. WithStore is required; all other
// options have spec-documented defaults.
func New(registry *Registry, opts ...Option) (*Runner, error) {
	if registry == nil {
		return nil, fmt.Errorf("runner: registry must not be nil")
	}

	cfg := &runnerConfig{
		emitter:            emit.NewNullEmitter(),
		logger:             slog.Default(),
		toolCallTruncation: star.DefaultToolCallTruncation,
		semanticMatches:    DefaultSemanticMatches(),
		checkpointEvery:    3,
		idGen:              generateRunID,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.store == nil {
		return nil, fmt.Errorf("runner: WithStore is required")
	}

	return &Runner{
		registry:           registry,
		store:              cfg.store,
		emitter:            cfg.emitter,
		metrics:            cfg.metrics,
		costTracker:        cfg.costTracker,
		logger:             cfg.logger,
		toolCallTruncation: cfg.toolCallTruncation,
		semanticMatches:    cfg.semanticMatches,
		checkpointEvery:    cfg.checkpointEvery,
		maxConcurrent:      cfg.maxConcurrent,
		defaultNodeTimeout: cfg.defaultNodeTimeout,
		idGen:              cfg.idGen,
	}, nil
}

// generateRunID produces an id of the form "run_<12 hex>" (§3).
func generateRunID() string {
	return "run_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Run executes constellationID from scratch with the given variables and
// original query, returning the finished (or paused) Run record.
func (r *Runner) Run(ctx context.Context, constellationID string, variables map[string]any, originalQuery string) (*constellation.Run, error) {
	c, ok := r.registry.GetConstellation(constellationID)
	if !ok {
		return nil, ErrConstellationNotFound
	}

	vars := cloneVariables(variables)
	vars["_original_query"] = originalQuery

	run := constellation.NewRun(r.idGen(), constellationID, c.Name, vars)
	if err := r.store.UpsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("runner: persist initial run: %w", err)
	}

	r.emitter.Emit(emit.RunStarted{
		RunID:             run.ID,
		ConstellationID:   constellationID,
		ConstellationName: c.Name,
		TotalNodes:        c.StarNodeCount(),
		NodeNames:         r.nodeDisplayNames(c),
	})

	cc := constellation.NewContext(run.ID, constellationID, originalQuery, c.Description, vars, r.emitter)

	checkpoints := new(int32)
	err := r.executeGraph(ctx, c, cc, run, checkpoints)
	return r.finalize(ctx, run, err)
}

// Resume re-enters a paused Run at the node immediately after the one it
// paused at, optionally injecting additionalContext. Grounded on
// runner.py's resume_run.
func (r *Runner) Resume(ctx context.Context, runID string, additionalContext string) (*constellation.Run, error) {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		if err == runstore.ErrNotFound {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	if run.Status != constellation.StatusAwaitingConfirmation {
		return nil, ErrNotAwaitingConfirmation
	}

	c, ok := r.registry.GetConstellation(run.ConstellationID)
	if !ok {
		return nil, ErrConstellationNotFound
	}

	resumedFrom := run.AwaitingNodeID
	run.Status = constellation.StatusRunning
	run.AwaitingNodeID = ""
	run.AwaitingPrompt = ""
	if additionalContext != "" {
		run.AdditionalContext = additionalContext
		appendExpertResponse(run, resumedFrom, additionalContext)
	}
	if err := r.store.UpsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("runner: persist resumed run: %w", err)
	}

	cc := constellation.NewContext(run.ID, run.ConstellationID, originalQueryFromVariables(run.Variables), c.Description, run.Variables, r.emitter)
	restoreContextOutputs(cc, run)

	r.emitter.Emit(emit.RunResumed{
		RunID:             run.ID,
		ResumedFromNode:   resumedFrom,
		AdditionalContext: additionalContext,
	})

	checkpoints := new(int32)
	var resumeErr error
	if resumedFrom != "" {
		resumeErr = r.executeFromNode(ctx, resumedFrom, c, cc, run, checkpoints, downstreamOnly)
	}
	return r.finalize(ctx, run, resumeErr)
}

// Cancel marks an in-flight or paused run as cancelled. A run already in a
// terminal state is returned unchanged.
func (r *Runner) Cancel(ctx context.Context, runID string) (*constellation.Run, error) {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		if err == runstore.ErrNotFound {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	switch run.Status {
	case constellation.StatusCompleted, constellation.StatusFailed, constellation.StatusCancelled:
		return run, nil
	}

	run.Status = constellation.StatusCancelled
	run.CompletedAt = time.Now().UTC()
	run.AwaitingNodeID = ""
	run.AwaitingPrompt = ""

	if err := r.store.UpsertRun(ctx, run); err != nil {
		return nil, fmt.Errorf("runner: persist cancelled run: %w", err)
	}
	return run, nil
}

// finalize applies the terminal status/event/persistence steps shared by
// Run and Resume, tolerating the internal paused sentinel as a non-error
// termination (§4.7 step 4).
func (r *Runner) finalize(ctx context.Context, run *constellation.Run, execErr error) (*constellation.Run, error) {
	if isPaused(execErr) {
		return run, nil
	}

	if execErr != nil {
		run.Status = constellation.StatusFailed
		run.Error = execErr.Error()
		run.CompletedAt = time.Now().UTC()
		r.emitter.Emit(emit.RunFailed{
			RunID:        run.ID,
			Error:        execErr.Error(),
			FailedNodeID: failedNodeID(execErr),
		})
	} else {
		run.Status = constellation.StatusCompleted
		run.CompletedAt = time.Now().UTC()
		run.FinalOutput = run.FinalOutputFromLastCompleted()

		r.emitter.Emit(emit.RunCompleted{
			RunID:       run.ID,
			FinalOutput: star.Preview(run.FinalOutput, 500),
			DurationMS:  durationMS(run.StartedAt, run.CompletedAt),
		})
	}

	if err := r.store.UpsertRun(ctx, run); err != nil {
		return run, fmt.Errorf("runner: persist final run: %w", err)
	}
	if execErr != nil {
		return run, execErr
	}
	return run, nil
}

func (r *Runner) nodeDisplayNames(c constellation.Constellation) []string {
	names := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		names = append(names, r.displayName(n))
	}
	return names
}

func (r *Runner) displayName(n constellation.Node) string {
	if n.DisplayName != "" {
		return n.DisplayName
	}
	if def, ok := r.registry.GetStar(n.StarID); ok && def.Name != "" {
		return def.Name
	}
	return n.StarID
}

// originalQueryFromVariables restores the original_query Resume must carry
// forward (§4.8 step 5), stashed under "_original_query" at Run creation
// time (runner.go's Run method).
func originalQueryFromVariables(vars map[string]any) string {
	q, _ := vars["_original_query"].(string)
	return q
}

func cloneVariables(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// appendExpertResponse applies §4.8 step 3: appends additionalContext to
// the paused node's stored output under an "--- Expert Response ---"
// header, whether or not the previous output was empty.
func appendExpertResponse(run *constellation.Run, nodeID, additionalContext string) {
	out, ok := run.GetNodeOutput(nodeID)
	if !ok {
		return
	}
	if out.Output == "" {
		out.Output = "--- Expert Response ---\n" + additionalContext
		return
	}
	out.Output = out.Output + "\n\n--- Expert Response ---\n" + additionalContext
}

func restoreContextOutputs(cc *constellation.Context, run *constellation.Run) {
	for _, id := range run.NodeOutputOrderSnapshot() {
		out, ok := run.GetNodeOutput(id)
		if ok && out != nil && out.Output != "" {
			cc.SetNodeOutput(id, constellation.OpaqueOutput{Value: out.Output})
		}
	}
}

func durationMS(start, end time.Time) int64 {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return end.Sub(start).Milliseconds()
}

func failedNodeID(err error) string {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.NodeID
	}
	return ""
}

// incrementCheckpoint bumps the checkpoint counter, which advances on every
// completed or failed StarNode execution, and reports whether a periodic
// persistence is due (the counter is a multiple of every).
func incrementCheckpoint(counter *int32, every int) bool {
	n := atomic.AddInt32(counter, 1)
	return int(n)%every == 0
}
