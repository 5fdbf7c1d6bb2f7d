package runner

import (
	"context"
	"sync"

	"github.com/astro-run/constellation-runtime/constellation"
)

// ExecuteParallel runs a set of sibling StarNodes (nodes that share a
// single upstream) concurrently, each under its own retry envelope
// (§4.6.2). It is a distinct entrypoint from the sequential traversal in
// executeGraph: the reference runtime never auto-detects sibling sets
// mid-walk, fan-out is invoked explicitly by a caller that has already
// assembled the sibling list (such as a Planning Star's dispatch).
//
// If any sibling's retry envelope is exhausted, ExecuteParallel waits for
// every other sibling to finish and returns a ParallelExecutionError
// aggregating every failure — never just the first.
func (r *Runner) ExecuteParallel(
	ctx context.Context,
	nodes []constellation.Node,
	c constellation.Constellation,
	cc *constellation.Context,
	run *constellation.Run,
	checkpoints *int32,
) error {
	indices := starNodeIndices(c, c.TopologicalOrder())

	// WithMaxConcurrent bounds how many siblings run at once; a nil
	// semaphore (the default) leaves every sibling its own goroutine.
	var sem chan struct{}
	if r.maxConcurrent > 0 {
		sem = make(chan struct{}, r.maxConcurrent)
	}

	var wg sync.WaitGroup
	results := make([]error, len(nodes))
	wg.Add(len(nodes))
	for i, node := range nodes {
		i, node := i, node
		go func() {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results[i] = r.executeWithRetry(ctx, c, node, cc, run, indices[node.ID], checkpoints, c.MaxRetryAttempts, c.RetryDelayBase)
		}()
	}
	wg.Wait()

	var failed []error
	for _, err := range results {
		if err == nil {
			continue
		}
		if isPaused(err) {
			// §4.7: a pause halts the whole Run; siblings that already
			// completed stay completed, but the pause itself must
			// propagate rather than be folded into an aggregate error.
			return err
		}
		failed = append(failed, err)
	}
	if len(failed) > 0 {
		return &ParallelExecutionError{Errors: failed}
	}
	return nil
}
