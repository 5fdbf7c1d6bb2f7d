package emit

// NullEmitter discards every event. It backs §4.3's "a missing stream is
// replaced with a no-op sink so emitters never branch on nullability."
// Grounded on the teacher's graph/emit/null.go.
type NullEmitter struct{}

// NewNullEmitter returns a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards event.
func (NullEmitter) Emit(event any) {}
