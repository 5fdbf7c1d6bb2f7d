// Package emit implements the Event Stream (C3): a sink that accepts
// structured progress events, with a no-op variant used when no subscriber
// is attached. Grounded on github.com/dshills/langgraph-go's graph/emit
// package (Event/Emitter/NullEmitter/LogEmitter shape), retargeted at the
// event vocabulary §4.3 names.
package emit

// RunStarted is emitted once, before any node event (§4.3 ordering).
type RunStarted struct {
	RunID               string
	ConstellationID     string
	ConstellationName   string
	TotalNodes          int
	NodeNames           []string
}

// NodeStarted is emitted before a StarNode begins executing.
// NodeIndex is 1-based and excludes Start/End.
type NodeStarted struct {
	RunID      string
	NodeID     string
	NodeName   string
	StarID     string
	StarType   string
	NodeIndex  int
	TotalNodes int
}

// NodeCompleted is emitted when a StarNode finishes successfully.
type NodeCompleted struct {
	RunID         string
	NodeID        string
	NodeName      string
	OutputPreview string
	DurationMS    int64
}

// NodeFailed is emitted when a StarNode's execution (including exhausted
// retries) fails.
type NodeFailed struct {
	RunID      string
	NodeID     string
	NodeName   string
	Error      string
	DurationMS int64
}

// RunPaused is emitted when a HITL confirmation gate halts the Run (§4.7).
type RunPaused struct {
	RunID    string
	NodeID   string
	NodeName string
	Prompt   string
}

// RunResumed is emitted when a paused Run resumes (§4.8 step 6).
type RunResumed struct {
	RunID             string
	ResumedFromNode   string
	AdditionalContext string
}

// RunCompleted is emitted once the Run reaches terminal success.
// FinalOutput is truncated to 500 characters per §4.3.
type RunCompleted struct {
	RunID       string
	FinalOutput string
	DurationMS  int64
}

// RunFailed is emitted once the Run reaches terminal failure.
type RunFailed struct {
	RunID         string
	Error         string
	FailedNodeID  string
}

// TruncateOutput trims s to maxLength characters, appending an ellipsis
// suffix when truncation occurs. Grounded on original_source's
// events.truncate_output helper (imported by runner.py).
func TruncateOutput(s string, maxLength int) string {
	runes := []rune(s)
	if maxLength <= 0 || len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength]) + "… [truncated]"
}
