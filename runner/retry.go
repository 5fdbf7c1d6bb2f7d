package runner

import (
	"context"
	"errors"
	"time"

	"github.com/astro-run/constellation-runtime/constellation"
)

// executeWithRetry invokes executeNode up to maxAttempts+1 times with
// exponential backoff between failures, grounded on runner.py's
// _execute_with_retry (`delay = delay_base * (2**attempt)`, no jitter per
// spec). A context-cancellation during the backoff sleep aborts the retry
// loop immediately rather than sleeping it out.
func (r *Runner) executeWithRetry(
	ctx context.Context,
	c constellation.Constellation,
	node constellation.Node,
	cc *constellation.Context,
	run *constellation.Run,
	nodeIndex int,
	checkpoints *int32,
	maxAttempts int,
	delayBase time.Duration,
) error {
	var lastErr error

	for attempt := 0; attempt <= maxAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if r.defaultNodeTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.defaultNodeTimeout)
		}
		err := r.executeNode(attemptCtx, c, node, cc, run, nodeIndex, checkpoints)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		if isPaused(err) {
			return err
		}
		// §4.6.1 step 8 / §4.6.2: binding errors and upstream-failure
		// aborts are preconditions, not Star execution failures, and are
		// never retried.
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			return err
		}

		lastErr = err
		r.metrics.RetryAttempted(cc.ConstellationID, node.ID)

		if attempt >= maxAttempts {
			break
		}

		delay := delayBase * time.Duration(1<<uint(attempt))
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return lastErr
}
