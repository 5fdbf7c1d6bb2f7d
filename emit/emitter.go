package emit

// Emitter is the Event Stream contract (§6): a single Emit method with no
// return value other than acceptance/drop, implementation-defined. Grounded
// on the teacher's graph/emit.Emitter interface, narrowed to the one method
// the spec actually requires (Emit); EmitBatch/Flush are teacher concerns
// tied to its replay/checkpoint machinery, which this runtime doesn't carry
// forward (see DESIGN.md "Dropped / deferred teacher concerns").
type Emitter interface {
	Emit(event any)
}
