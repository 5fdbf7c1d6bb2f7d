package emit

import "testing"

func TestNullEmitterDiscardsEverything(t *testing.T) {
	var e Emitter = NewNullEmitter()

	// Must not panic on any event shape, including nil.
	e.Emit(RunStarted{RunID: "run_1"})
	e.Emit(NodeFailed{RunID: "run_1", Error: "boom"})
	e.Emit(nil)
	e.Emit("arbitrary")
}
