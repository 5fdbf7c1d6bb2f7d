package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/astro-run/constellation-runtime/constellation"
	"github.com/astro-run/constellation-runtime/emit"
	"github.com/astro-run/constellation-runtime/star"
)

// fromMode selects where executeFromNode re-enters topological order.
type fromMode int

const (
	// atNode starts at the named node itself (§4.6.3 step 5: loop re-entry).
	atNode fromMode = iota
	// downstreamOnly starts at the named node's topological successor
	// (§4.8 step 7: Resume continues after the node it paused at).
	downstreamOnly
)

// executeGraph walks c's full topological order once, start to end,
// per §4.6.1. Nodes execute sequentially, each under the same retry
// envelope ExecuteParallel gives its siblings (§4.6.2); parallel fan-out
// itself is a distinct, explicitly-invoked entrypoint, never auto-detected
// mid-walk.
func (r *Runner) executeGraph(ctx context.Context, c constellation.Constellation, cc *constellation.Context, run *constellation.Run, checkpoints *int32) error {
	order := c.TopologicalOrder()
	return r.walk(ctx, c, cc, run, checkpoints, order, starNodeIndices(c, order))
}

// executeFromNode re-enters topological traversal either at fromNodeID
// (mode atNode) or at its topological successor (mode downstreamOnly).
func (r *Runner) executeFromNode(ctx context.Context, fromNodeID string, c constellation.Constellation, cc *constellation.Context, run *constellation.Run, checkpoints *int32, mode fromMode) error {
	order := c.TopologicalOrder()
	indices := starNodeIndices(c, order)

	startIdx := -1
	for i, id := range order {
		if id == fromNodeID {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return fmt.Errorf("runner: node %q not found in topological order", fromNodeID)
	}
	if mode == downstreamOnly {
		startIdx++
	}
	if startIdx >= len(order) {
		return nil
	}

	return r.walk(ctx, c, cc, run, checkpoints, order[startIdx:], indices)
}

// walk drives a slice of an already-computed topological order through
// Start/End handling and per-StarNode execution.
func (r *Runner) walk(ctx context.Context, c constellation.Constellation, cc *constellation.Context, run *constellation.Run, checkpoints *int32, order []string, indices map[string]int) error {
	for _, nodeID := range order {
		if err := ctx.Err(); err != nil {
			return err
		}

		node, ok := c.GetNode(nodeID)
		if !ok {
			return fmt.Errorf("runner: node %q not found in constellation", nodeID)
		}

		switch node.Kind {
		case constellation.KindStart:
			// cc already carries OriginalQuery/ConstellationPurpose from
			// construction (§4.1); nothing further to populate since Stars
			// see the Context, not the Start node itself.
			continue
		case constellation.KindEnd:
			continue
		}

		if err := r.executeWithRetry(ctx, c, node, cc, run, indices[nodeID], checkpoints, c.MaxRetryAttempts, c.RetryDelayBase); err != nil {
			return err
		}
	}
	return nil
}

// starNodeIndices maps each StarNode id to its 1-based position among
// StarNodes only (Start/End excluded), for NodeStarted's node_index (§4.3).
func starNodeIndices(c constellation.Constellation, order []string) map[string]int {
	indices := make(map[string]int, len(order))
	n := 0
	for _, id := range order {
		if id == c.Start.ID || id == c.End.ID {
			continue
		}
		n++
		indices[id] = n
	}
	return indices
}

// executeNode runs the §4.6.1 step sequence for a single StarNode.
func (r *Runner) executeNode(ctx context.Context, c constellation.Constellation, node constellation.Node, cc *constellation.Context, run *constellation.Run, nodeIndex int, checkpoints *int32) error {
	def, ok := r.registry.GetStar(node.StarID)
	if !ok {
		return &ExecutionError{NodeID: node.ID, Message: fmt.Sprintf("star %q not found", node.StarID)}
	}
	impl, ok := r.registry.GetStarImplementation(node.StarID)
	if !ok {
		return &ExecutionError{NodeID: node.ID, Message: fmt.Sprintf("no implementation registered for star %q", node.StarID)}
	}

	if upstream := c.GetUpstreamNodes(node.ID); len(upstream) > 1 {
		if err := waitForUpstream(node.ID, upstream, run); err != nil {
			return err
		}
	}

	displayName := r.displayName(node)
	cc.SetCurrentNode(node.ID, displayName)
	defer cc.ClearCurrentNode()

	nodeOutput := &constellation.NodeOutput{
		NodeID:    node.ID,
		StarID:    node.StarID,
		Status:    constellation.NodeRunning,
		StartedAt: time.Now().UTC(),
	}
	run.PutNodeOutput(nodeOutput)

	r.metrics.NodeStarted()
	r.emitter.Emit(emit.NodeStarted{
		RunID:      run.ID,
		NodeID:     node.ID,
		NodeName:   displayName,
		StarID:     node.StarID,
		StarType:   string(def.Type),
		NodeIndex:  nodeIndex,
		TotalNodes: c.StarNodeCount(),
	})

	result, err := r.executeStar(ctx, def, impl, cc)
	if err != nil {
		nodeOutput.Status = constellation.NodeFailed
		nodeOutput.Error = err.Error()
		nodeOutput.CompletedAt = time.Now().UTC()
		d := nodeOutput.CompletedAt.Sub(nodeOutput.StartedAt)

		r.metrics.NodeFinished(cc.ConstellationID, node.ID, "failed", d)
		r.emitter.Emit(emit.NodeFailed{
			RunID:      run.ID,
			NodeID:     node.ID,
			NodeName:   displayName,
			Error:      err.Error(),
			DurationMS: d.Milliseconds(),
		})

		// A failed node always persists (§4.6.1 step 9), regardless of the
		// checkpoint cadence; the counter still advances so the next
		// success's modulo check isn't skewed.
		incrementCheckpoint(checkpoints, r.checkpointEvery)
		if perr := r.store.UpsertRun(ctx, run); perr != nil {
			return fmt.Errorf("runner: node %q failed (%w) and persisting the run also failed: %v", node.ID, err, perr)
		}
		return err
	}

	text, toolCalls := star.Normalize(result, r.toolCallTruncation)
	nodeOutput.Output = text
	nodeOutput.ToolCalls = toolCalls
	nodeOutput.Status = constellation.NodeCompleted
	nodeOutput.CompletedAt = time.Now().UTC()
	cc.SetNodeOutput(node.ID, result)

	// §9 supplemented feature: Stars that return token-usage metadata on
	// WorkerOutput have their cost recorded after each node completes.
	if r.costTracker != nil {
		if wo, ok := result.(constellation.WorkerOutput); ok && (wo.InputTokens > 0 || wo.OutputTokens > 0) {
			r.costTracker.RecordCall(wo.Model, node.ID, wo.InputTokens, wo.OutputTokens)
		}
	}

	d := nodeOutput.CompletedAt.Sub(nodeOutput.StartedAt)
	r.metrics.NodeFinished(cc.ConstellationID, node.ID, "completed", d)
	r.emitter.Emit(emit.NodeCompleted{
		RunID:         run.ID,
		NodeID:        node.ID,
		NodeName:      displayName,
		OutputPreview: star.Preview(text, 500),
		DurationMS:    d.Milliseconds(),
	})

	if def.Type == constellation.StarEval {
		if decision, ok := result.(constellation.EvalDecision); ok {
			if err := r.handleEvalDecision(ctx, decision, node, c, cc, run, checkpoints); err != nil {
				return err
			}
		}
	}

	if node.RequiresConfirmation {
		if err := r.pauseForConfirmation(ctx, node, run, cc); err != nil {
			return err
		}
	}

	if incrementCheckpoint(checkpoints, r.checkpointEvery) {
		if perr := r.store.UpsertRun(ctx, run); perr != nil {
			return fmt.Errorf("runner: persist checkpoint after node %q: %w", node.ID, perr)
		}
	}

	return nil
}

// executeStar resolves §4.5 variable bindings for the node's Directive (if
// any), merges them into the Context, then invokes the Star (§6).
func (r *Runner) executeStar(ctx context.Context, def constellation.Star, impl star.Star, cc *constellation.Context) (constellation.StarOutput, error) {
	if directive, ok := r.registry.GetDirective(def.DirectiveID); ok {
		bindings, err := r.resolveBindings(directive, cc)
		if err != nil {
			return nil, err
		}
		for k, v := range bindings {
			cc.SetVariable(k, v)
		}
	}
	return impl.Execute(ctx, cc)
}

// waitForUpstream applies §4.6.1 step 1: abort nodeID if any upstream
// sibling already recorded a failure.
func waitForUpstream(nodeID string, upstream []constellation.Node, run *constellation.Run) error {
	for _, u := range upstream {
		out, ok := run.GetNodeOutput(u.ID)
		if ok && out.Status == constellation.NodeFailed {
			return &ExecutionError{
				NodeID:  nodeID,
				Message: fmt.Sprintf("Upstream node '%s' failed: %s", u.ID, out.Error),
			}
		}
	}
	return nil
}
