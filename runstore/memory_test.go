package runstore

import (
	"context"
	"errors"
	"testing"

	"github.com/astro-run/constellation-runtime/constellation"
)

func TestMemoryStoreUpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	run := constellation.NewRun("run1", "c1", "Constellation", map[string]any{"k": "v"})
	run.PutNodeOutput(&constellation.NodeOutput{NodeID: "a", Status: constellation.NodeCompleted, Output: "a-out"})

	if err := store.UpsertRun(ctx, run); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := store.GetRun(ctx, "run1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != "run1" || got.ConstellationID != "c1" {
		t.Fatalf("unexpected run: %+v", got)
	}
	out, ok := got.GetNodeOutput("a")
	if !ok || out.Output != "a-out" {
		t.Fatalf("expected node output a to round-trip, got %v ok=%v", out, ok)
	}
}

func TestMemoryStoreGetRunNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestMemoryStoreIsolatesCallerMutations confirms that mutating a Run
// returned by GetRun, or mutating the Run passed into UpsertRun afterward,
// never affects what the store holds — the deep-copy-via-JSON contract.
func TestMemoryStoreIsolatesCallerMutations(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	run := constellation.NewRun("run1", "c1", "Constellation", map[string]any{})
	if err := store.UpsertRun(ctx, run); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	run.FinalOutput = "mutated after upsert"
	got, err := store.GetRun(ctx, "run1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.FinalOutput == "mutated after upsert" {
		t.Fatalf("expected store's copy to be unaffected by post-upsert mutation of caller's Run")
	}

	got.FinalOutput = "mutated after get"
	second, err := store.GetRun(ctx, "run1")
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if second.FinalOutput == "mutated after get" {
		t.Fatalf("expected store's copy to be unaffected by mutation of a fetched Run")
	}
}
