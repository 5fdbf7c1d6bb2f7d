// Package runstore implements the Run Store (C2): abstract persistence for
// Run records, narrowed to the two operations §4.2 names (UpsertRun,
// GetRun). Grounded on the teacher's graph/store.Store[S] interface
// (github.com/dshills/langgraph-go/graph/store), narrowed because the spec
// explicitly forbids the core from assuming richer capabilities exist (§9
// design note: "implementations MAY add listing, indexing, or TTL; the
// core must not assume those exist").
package runstore

import (
	"context"
	"errors"

	"github.com/astro-run/constellation-runtime/constellation"
)

// ErrNotFound is returned by GetRun when no record exists for the given id.
var ErrNotFound = errors.New("runstore: run not found")

// Store is the abstract Run Store contract (§4.2, §6).
type Store interface {
	// UpsertRun idempotently writes record, keyed by record.ID.
	UpsertRun(ctx context.Context, record *constellation.Run) error

	// GetRun fetches a record by id, returning ErrNotFound if absent.
	GetRun(ctx context.Context, id string) (*constellation.Run, error)
}
