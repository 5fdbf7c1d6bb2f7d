// Package star defines the Star Execution Adapter contract (C4): the thin
// shim the Runner Core invokes for every StarNode. Grounded on
// astro_backend_service/executor/runner.py's _execute_star dispatch
// (original_source/).
package star

import (
	"context"

	"github.com/astro-run/constellation-runtime/constellation"
)

// Star is the pluggable behavior a Constellation node invokes. The Runner
// Core never type-asserts on a concrete implementation; it only calls
// Execute and normalizes whatever constellation.StarOutput comes back
// (§4.4). Implementations MUST NOT mutate ctx.NodeOutputs (§6).
type Star interface {
	Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error)
}

// Func adapts a plain function to the Star interface, mirroring the
// teacher's graph.NodeFunc adapter (graph/node.go).
type Func func(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error) {
	return f(ctx, cc)
}
