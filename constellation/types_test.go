package constellation

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestDefaultConstellationFillsZeroValuesOnly(t *testing.T) {
	c := DefaultConstellation(Constellation{})
	if c.MaxLoopIterations != 3 || c.MaxRetryAttempts != 2 {
		t.Fatalf("expected documented defaults, got %+v", c)
	}

	c2 := DefaultConstellation(Constellation{MaxLoopIterations: 7, MaxRetryAttempts: 1})
	if c2.MaxLoopIterations != 7 || c2.MaxRetryAttempts != 1 {
		t.Fatalf("expected explicit non-zero values preserved, got %+v", c2)
	}
}

func TestContextNodeOutputOrderTracksInsertion(t *testing.T) {
	cc := NewContext("run1", "c1", "q", "p", map[string]any{}, nil)

	cc.SetNodeOutput("a", OpaqueOutput{Value: "first"})
	cc.SetNodeOutput("b", OpaqueOutput{Value: "second"})
	cc.SetNodeOutput("a", OpaqueOutput{Value: "overwritten"})

	order := cc.NodeOutputOrder()
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected order [a b] with no duplicate on overwrite, got %v", order)
	}

	out, ok := cc.GetNodeOutput("a")
	if !ok || out.(OpaqueOutput).Value != "overwritten" {
		t.Fatalf("expected overwritten value for a, got %v ok=%v", out, ok)
	}
}

func TestContextDeleteNodeOutputRemovesFromOrder(t *testing.T) {
	cc := NewContext("run1", "c1", "q", "p", map[string]any{}, nil)
	cc.SetNodeOutput("a", OpaqueOutput{Value: "1"})
	cc.SetNodeOutput("b", OpaqueOutput{Value: "2"})

	cc.DeleteNodeOutput("a")

	if _, ok := cc.GetNodeOutput("a"); ok {
		t.Fatalf("expected a to be deleted")
	}
	order := cc.NodeOutputOrder()
	if len(order) != 1 || order[0] != "b" {
		t.Fatalf("expected order [b] after deleting a, got %v", order)
	}

	// Deleting an id never recorded is a no-op, not a panic.
	cc.DeleteNodeOutput("never-existed")
}

func TestContextVariableAccessors(t *testing.T) {
	cc := NewContext("run1", "c1", "q", "p", map[string]any{"seed": "value"}, nil)

	if v, ok := cc.GetVariable("seed"); !ok || v != "value" {
		t.Fatalf("expected seeded variable to read back, got %v ok=%v", v, ok)
	}

	cc.SetVariable("added", 42)
	if v, ok := cc.GetVariable("added"); !ok || v != 42 {
		t.Fatalf("expected added variable to read back, got %v ok=%v", v, ok)
	}

	if _, ok := cc.GetVariable("missing"); ok {
		t.Fatalf("expected missing variable to report not-found")
	}
}

func TestContextCurrentNodeSetClear(t *testing.T) {
	cc := NewContext("run1", "c1", "q", "p", map[string]any{}, nil)

	cc.SetCurrentNode("n1", "Node One")
	id, name := cc.CurrentNode()
	if id != "n1" || name != "Node One" {
		t.Fatalf("expected current node n1/Node One, got %q/%q", id, name)
	}

	cc.ClearCurrentNode()
	id, name = cc.CurrentNode()
	if id != "" || name != "" {
		t.Fatalf("expected current node cleared, got %q/%q", id, name)
	}
}

// TestContextConcurrentFanOutAccess drives concurrent SetNodeOutput/
// GetNodeOutput/SetVariable/GetVariable calls through a shared Context, the
// same access pattern ExecuteParallel's goroutine siblings produce, and
// confirms nothing panics or is lost: every sibling's own write is visible
// by its own id once all goroutines finish.
func TestContextConcurrentFanOutAccess(t *testing.T) {
	cc := NewContext("run1", "c1", "q", "p", map[string]any{}, nil)

	const siblings = 16
	var wg sync.WaitGroup
	wg.Add(siblings)

	for i := 0; i < siblings; i++ {
		go func(i int) {
			defer wg.Done()
			id := nodeIDFor(i)
			cc.SetNodeOutput(id, OpaqueOutput{Value: i})
			cc.SetVariable(id, i)
			cc.SetCurrentNode(id, id)
			_, _ = cc.GetNodeOutput(id)
			_, _ = cc.GetVariable(id)
			_ = cc.NodeOutputOrder()
			cc.ClearCurrentNode()
		}(i)
	}
	wg.Wait()

	order := cc.NodeOutputOrder()
	if len(order) != siblings {
		t.Fatalf("expected %d recorded node outputs, got %d: %v", siblings, len(order), order)
	}
	for i := 0; i < siblings; i++ {
		id := nodeIDFor(i)
		out, ok := cc.GetNodeOutput(id)
		if !ok || out.(OpaqueOutput).Value != i {
			t.Fatalf("expected sibling %d's own output to survive, got %v ok=%v", i, out, ok)
		}
	}
}

func nodeIDFor(i int) string {
	const letters = "0123456789abcdefghijklmnopqrstuvwxyz"
	return "node-" + string(letters[i%len(letters)])
}

func TestRunPutNodeOutputTracksOrderAndOverwrite(t *testing.T) {
	run := NewRun("run1", "c1", "Constellation", map[string]any{})

	run.PutNodeOutput(&NodeOutput{NodeID: "a", Status: NodeCompleted, Output: "first"})
	run.PutNodeOutput(&NodeOutput{NodeID: "b", Status: NodeCompleted, Output: "second"})
	run.PutNodeOutput(&NodeOutput{NodeID: "a", Status: NodeCompleted, Output: "third"})

	order := run.NodeOutputOrderSnapshot()
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected order [a b], got %v", order)
	}

	out, ok := run.GetNodeOutput("a")
	if !ok || out.Output != "third" {
		t.Fatalf("expected a's output overwritten to third, got %v ok=%v", out, ok)
	}
}

func TestRunFinalOutputFromLastCompleted(t *testing.T) {
	run := NewRun("run1", "c1", "Constellation", map[string]any{})

	if got := run.FinalOutputFromLastCompleted(); got != "" {
		t.Fatalf("expected empty final output before any node completes, got %q", got)
	}

	run.PutNodeOutput(&NodeOutput{NodeID: "a", Status: NodeCompleted, Output: "a-out"})
	run.PutNodeOutput(&NodeOutput{NodeID: "b", Status: NodeFailed, Error: "boom"})
	run.PutNodeOutput(&NodeOutput{NodeID: "c", Status: NodeCompleted, Output: "c-out"})

	if got := run.FinalOutputFromLastCompleted(); got != "c-out" {
		t.Fatalf("expected last completed output c-out, got %q", got)
	}
}

func TestRunDeleteNodeOutput(t *testing.T) {
	run := NewRun("run1", "c1", "Constellation", map[string]any{})
	run.PutNodeOutput(&NodeOutput{NodeID: "a", Status: NodeCompleted, Output: "a-out"})

	run.DeleteNodeOutput("a")
	if _, ok := run.GetNodeOutput("a"); ok {
		t.Fatalf("expected a deleted")
	}
	if order := run.NodeOutputOrderSnapshot(); len(order) != 0 {
		t.Fatalf("expected empty order after delete, got %v", order)
	}

	// No-op on an id that was never recorded.
	run.DeleteNodeOutput("never-existed")
}

// TestRunMarshalJSONRoundTrip confirms the locked MarshalJSON still produces
// the same shape a caller reflecting over Run's exported fields would
// expect, including through a concurrent PutNodeOutput call.
func TestRunMarshalJSONRoundTrip(t *testing.T) {
	run := NewRun("run1", "c1", "Constellation", map[string]any{"k": "v"})
	run.Status = StatusCompleted
	run.FinalOutput = "done"
	run.PutNodeOutput(&NodeOutput{NodeID: "a", Status: NodeCompleted, Output: "a-out"})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run.PutNodeOutput(&NodeOutput{NodeID: "b", Status: NodeCompleted, Output: "b-out"})
	}()

	data, err := json.Marshal(run)
	wg.Wait()
	if err != nil {
		t.Fatalf("MarshalJSON returned error: %v", err)
	}

	var decoded struct {
		ID              string                 `json:"id"`
		Status          string                 `json:"status"`
		FinalOutput     string                 `json:"final_output"`
		NodeOutputOrder []string               `json:"node_output_order"`
		NodeOutputs     map[string]*NodeOutput `json:"node_outputs"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.ID != "run1" || decoded.Status != string(StatusCompleted) || decoded.FinalOutput != "done" {
		t.Fatalf("unexpected decoded run: %+v", decoded)
	}
	if _, ok := decoded.NodeOutputs["a"]; !ok {
		t.Fatalf("expected node a present in marshaled output")
	}
}
