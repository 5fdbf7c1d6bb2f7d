package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// LogEmitter writes events to an io.Writer, either as human-readable text
// or as newline-delimited JSON. Grounded on the teacher's
// graph/emit/log.go.
type LogEmitter struct {
	mu       sync.Mutex
	w        io.Writer
	jsonMode bool
}

// NewLogEmitter returns a LogEmitter writing to w. When jsonMode is true,
// each event is written as one JSON object per line; otherwise a short
// human-readable line is written.
func NewLogEmitter(w io.Writer, jsonMode bool) *LogEmitter {
	return &LogEmitter{w: w, jsonMode: jsonMode}
}

type logRecord struct {
	Time  time.Time `json:"time"`
	Type  string    `json:"type"`
	Event any       `json:"event"`
}

// Emit writes event to the underlying writer. Errors are swallowed: the
// Event Stream contract (§6) has no failure path back to the Runner, and
// §5 requires that node execution never block on stream delivery.
func (l *LogEmitter) Emit(event any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		rec := logRecord{Time: time.Now().UTC(), Type: eventTypeName(event), Event: event}
		enc := json.NewEncoder(l.w)
		_ = enc.Encode(rec)
		return
	}

	_, _ = fmt.Fprintf(l.w, "[%s] %s %+v\n", time.Now().UTC().Format(time.RFC3339), eventTypeName(event), event)
}

func eventTypeName(event any) string {
	switch event.(type) {
	case RunStarted:
		return "run_started"
	case NodeStarted:
		return "node_started"
	case NodeCompleted:
		return "node_completed"
	case NodeFailed:
		return "node_failed"
	case RunPaused:
		return "run_paused"
	case RunResumed:
		return "run_resumed"
	case RunCompleted:
		return "run_completed"
	case RunFailed:
		return "run_failed"
	default:
		return "unknown"
	}
}
