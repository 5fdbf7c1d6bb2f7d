package runner

import (
	"context"
	"errors"

	"github.com/astro-run/constellation-runtime/constellation"
	"github.com/astro-run/constellation-runtime/emit"
)

// pausedSignal is the internal, non-error sentinel raised when a StarNode
// with requires_confirmation completes and the Run must suspend (§4.7 step
// 4). spec.md describes it as an exception that unwinds the call stack and
// is caught only at the top-level Run/Resume entrypoint; the Python
// reference this runtime is grounded on doesn't actually implement that
// unwind (_pause_for_confirmation just returns), but spec.md's explicit
// text governs where the two disagree. Carried as an error-compatible
// value (checked with isPaused, matched via errors.As) rather than a
// second return value threaded through every call site, per the §9 design
// note's "sentinel result value" option.
type pausedSignal struct {
	RunID  string
	NodeID string
}

func (p *pausedSignal) Error() string {
	return "runner: execution paused for confirmation at node " + p.NodeID
}

// isPaused reports whether err is, or wraps, the HITL pause sentinel. It
// is never treated as a Run failure: finalize checks it before touching
// run.Status, and executeWithRetry/ExecuteParallel both let it through
// unretried and unaggregated.
func isPaused(err error) bool {
	var p *pausedSignal
	return errors.As(err, &p)
}

// pauseForConfirmation applies §4.7: marks the Run awaiting_confirmation,
// emits RunPaused, persists, and returns the pause sentinel so it
// propagates out through executeNode, the traversal loop, retry, and
// parallel fan-out to Run/Resume, which treat it as non-error termination.
func (r *Runner) pauseForConfirmation(ctx context.Context, node constellation.Node, run *constellation.Run, cc *constellation.Context) error {
	prompt := node.ConfirmationPrompt
	if prompt == "" {
		prompt = "Review the output. Proceed?"
	}

	run.Status = constellation.StatusAwaitingConfirmation
	run.AwaitingNodeID = node.ID
	run.AwaitingPrompt = prompt

	r.metrics.HITLPaused(cc.ConstellationID, node.ID)
	r.emitter.Emit(emit.RunPaused{
		RunID:    run.ID,
		NodeID:   node.ID,
		NodeName: r.displayName(node),
		Prompt:   prompt,
	})

	if err := r.store.UpsertRun(ctx, run); err != nil {
		return err
	}

	return &pausedSignal{RunID: run.ID, NodeID: node.ID}
}
