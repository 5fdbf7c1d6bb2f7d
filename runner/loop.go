package runner

import (
	"context"
	"fmt"

	"github.com/astro-run/constellation-runtime/constellation"
)

// handleEvalDecision applies §4.6.3. A "continue" decision is left alone.
// A "loop" decision increments the Run-global loop counter; once the
// bound is reached the decision is rewritten to "continue" in place and
// the loop stops, otherwise downstream outputs of the loop target are
// cleared and the graph is re-entered there.
func (r *Runner) handleEvalDecision(
	ctx context.Context,
	decision constellation.EvalDecision,
	node constellation.Node,
	c constellation.Constellation,
	cc *constellation.Context,
	run *constellation.Run,
	checkpoints *int32,
) error {
	if decision.Decision != "loop" {
		return nil
	}

	count := cc.IncrementLoopCount()
	if count >= c.MaxLoopIterations {
		decision.Decision = "continue"
		decision.Reasoning += fmt.Sprintf(" (forced continue: max %d loops reached)", c.MaxLoopIterations)
		r.rewriteEvalOutput(cc, run, node.ID, decision)
		return nil
	}

	r.metrics.LoopIterated(cc.ConstellationID)

	targetID, ok := r.findLoopTarget(node.ID, c)
	if !ok {
		// §4.6.3 step 3: no loop edge and no Planning Star to fall back to.
		r.logger.Warn("eval loop: no loop edge or Planning Star target found, proceeding without looping",
			"run_id", run.ID, "constellation_id", c.ID, "node_id", node.ID)
		return nil
	}

	clearDownstreamOutputs(targetID, c, cc, run)

	return r.executeFromNode(ctx, targetID, c, cc, run, checkpoints, atNode)
}

// rewriteEvalOutput keeps the Context's StarOutput and the Run's stored
// output string in sync after a forced continue rewrites the decision.
func (r *Runner) rewriteEvalOutput(cc *constellation.Context, run *constellation.Run, nodeID string, decision constellation.EvalDecision) {
	cc.SetNodeOutput(nodeID, decision)
	if out, ok := run.GetNodeOutput(nodeID); ok {
		out.Output = fmt.Sprintf("Decision: %s. %s", decision.Decision, decision.Reasoning)
	}
}

// findLoopTarget implements §4.6.3 step 3: the first outgoing loop edge of
// evalNodeID, else the first StarNode whose Star is of type Planning.
func (r *Runner) findLoopTarget(evalNodeID string, c constellation.Constellation) (string, bool) {
	if target, ok := c.LoopEdgeTarget(evalNodeID); ok {
		return target, true
	}

	stars := make(map[string]constellation.Star, len(c.Nodes))
	for _, n := range c.Nodes {
		if def, ok := r.registry.GetStar(n.StarID); ok {
			stars[n.StarID] = def
		}
	}
	if node, ok := c.FirstStarOfType(constellation.StarPlanning, stars); ok {
		return node.ID, true
	}
	return "", false
}

// clearDownstreamOutputs deletes every node id reachable from targetID
// (§4.6.3 step 4) from both the Context and the Run, using the existing
// explicit-stack DFS (constellation.DownstreamClosure) rather than
// recursion.
func clearDownstreamOutputs(targetID string, c constellation.Constellation, cc *constellation.Context, run *constellation.Run) {
	for _, id := range c.DownstreamClosure(targetID) {
		cc.DeleteNodeOutput(id)
		run.DeleteNodeOutput(id)
	}
}
