// Package constellation defines the immutable graph model the Constellation
// Runtime executes: constellations, nodes, edges, stars, directives, and the
// tagged StarOutput union a Star's execution produces.
package constellation

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// StarType classifies the role a Star plays in a Constellation.
type StarType string

const (
	StarWorker    StarType = "worker"
	StarPlanning  StarType = "planning"
	StarEval      StarType = "eval"
	StarSynthesis StarType = "synthesis"
	StarDocEx     StarType = "docex"
)

// TemplateVariable is a single declared input of a Directive.
type TemplateVariable struct {
	Name        string
	Description string
	Required    bool
	Default     any
}

// Directive is the template (instructions plus declared variables) a Star executes.
type Directive struct {
	ID               string
	Name             string
	Description      string
	Content          string
	TemplateVariables []TemplateVariable
	ProbeIDs         []string
}

// Star is the static definition of a node's behavior: its type and the
// Directive it depends on. The runnable behavior itself lives behind the
// star.Star interface (package star) so the Runner Core never imports a
// concrete LLM or tool implementation.
type Star struct {
	ID          string
	Name        string
	Type        StarType
	DirectiveID string
}

// NodeKind distinguishes the three node variants a Constellation may contain.
type NodeKind int

const (
	KindStart NodeKind = iota
	KindEnd
	KindStar
)

// Node is a variant of {Start, End, StarNode}. Only StarNode carries
// meaningful fields beyond its ID; Start and End are structural bookends.
type Node struct {
	Kind NodeKind
	ID   string

	// StarNode fields (Kind == KindStar).
	StarID                string
	DisplayName           string
	RequiresConfirmation  bool
	ConfirmationPrompt    string

	// Start-node scratch fields, populated by the Runner at traversal start
	// so Stars that inspect the Start node can read them (§4.1).
	OriginalQuery        string
	ConstellationPurpose string
}

// Edge connects two nodes. Condition is an opaque tag; the only tag the
// runtime interprets is the case-insensitive substring "loop".
type Edge struct {
	ID        string
	Source    string
	Target    string
	Condition string
}

// IsLoopEdge reports whether this edge is the cycle-breaking loop edge the
// eval loop controller uses for re-entry (§4.6.3).
func (e Edge) IsLoopEdge() bool {
	return strings.Contains(strings.ToLower(e.Condition), "loop")
}

// Constellation is the graph: an ordered set of Star nodes connected by
// edges, bookended by a single Start and a single End.
type Constellation struct {
	ID          string
	Name        string
	Description string

	Start Node
	End   Node
	Nodes []Node
	Edges []Edge

	MaxLoopIterations int
	MaxRetryAttempts  int
	RetryDelayBase    time.Duration
}

// DefaultConstellation fills in the spec's documented defaults
// (max_loop_iterations=3, max_retry_attempts=2, retry_delay_base=0.5s) for a
// Constellation whose zero-valued fields haven't been set explicitly.
func DefaultConstellation(c Constellation) Constellation {
	if c.MaxLoopIterations == 0 {
		c.MaxLoopIterations = 3
	}
	if c.MaxRetryAttempts == 0 {
		c.MaxRetryAttempts = 2
	}
	if c.RetryDelayBase == 0 {
		c.RetryDelayBase = 500 * time.Millisecond
	}
	return c
}

// GetNode returns a node (Start, End, or a StarNode) by id.
func (c *Constellation) GetNode(id string) (Node, bool) {
	if c.Start.ID == id {
		return c.Start, true
	}
	if c.End.ID == id {
		return c.End, true
	}
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// StarNodeCount returns the number of StarNodes (excludes Start/End), used
// for 1-based node_index and total_nodes in emitted events (§4.3).
func (c *Constellation) StarNodeCount() int {
	return len(c.Nodes)
}

// --- StarOutput: tagged union (§9 design note: sum type, not hasattr probing) ---

// StarOutput is implemented by every concrete result type a Star may
// return. It carries no methods of its own; the Runner Core type-switches
// over it in star.Normalize (§4.4).
type StarOutput interface {
	isStarOutput()
}

// ToolCall is a single tool invocation a Worker Star reports alongside its
// result text.
type ToolCall struct {
	Name   string
	Args   map[string]any
	Result string
}

// WorkerOutput is the result of a Worker Star. Model/InputTokens/
// OutputTokens are populated by Worker Stars backed by a model.ChatModel
// that reports token usage (§9 supplemented cost-tracking feature); a
// zero value means no usage was reported and the Runner records no cost.
type WorkerOutput struct {
	Result    string
	ToolCalls []ToolCall

	Model        string
	InputTokens  int
	OutputTokens int
}

func (WorkerOutput) isStarOutput() {}

// SynthesisOutput is the result of a Synthesis Star.
type SynthesisOutput struct {
	FormattedResult string
}

func (SynthesisOutput) isStarOutput() {}

// ExecutionResult aggregates the outputs of a set of Worker Stars run as a
// single logical phase (e.g. the result of a parallel fan-out).
type ExecutionResult struct {
	WorkerOutputs []WorkerOutput
}

func (ExecutionResult) isStarOutput() {}

// Document is a single extracted document within a DocExResult.
type Document struct {
	Source           string
	ExtractedContent string
}

// DocExResult is the result of a DocEx (document extraction) Star.
type DocExResult struct {
	Documents []Document
}

func (DocExResult) isStarOutput() {}

// EvalDecision is the result of an Eval Star: whether to continue or loop
// back to an earlier part of the graph (§4.6.3).
type EvalDecision struct {
	Decision  string // "continue" | "loop"
	Reasoning string
}

func (EvalDecision) isStarOutput() {}

// Task is a single unit of work within a Plan.
type Task struct {
	Description string
}

// Plan is the result of a Planning Star.
type Plan struct {
	Tasks []Task
}

func (Plan) isStarOutput() {}

// OpaqueOutput wraps any StarOutput shape the runtime doesn't recognize.
// The Runner must tolerate unknown variants by treating them as opaque text
// (§3); OpaqueOutput is the fallback wrapper a Star implementation can use,
// or the Runner's normalizer falls back to fmt.Sprintf("%v", ...) for
// completely foreign values via star.Normalize's default case.
type OpaqueOutput struct {
	Value any
}

func (OpaqueOutput) isStarOutput() {}

// --- Run, NodeOutput, Context (§3) ---

// RunStatus enumerates the lifecycle states of a Run.
type RunStatus string

const (
	StatusRunning               RunStatus = "running"
	StatusCompleted             RunStatus = "completed"
	StatusFailed                RunStatus = "failed"
	StatusAwaitingConfirmation  RunStatus = "awaiting_confirmation"
	StatusCancelled             RunStatus = "cancelled"
)

// NodeStatus enumerates the lifecycle states of a single NodeOutput.
type NodeStatus string

const (
	NodeRunning   NodeStatus = "running"
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
)

// NodeOutput is the persisted record of a single StarNode's execution
// (§3). Invariant: while Status == NodeRunning, Output is empty; CompletedAt
// is set exactly when the status transitions to a terminal value.
type NodeOutput struct {
	NodeID      string     `json:"node_id"`
	StarID      string     `json:"star_id"`
	Status      NodeStatus `json:"status"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at,omitzero"`
}

// Run is the persisted execution record (§3).
type Run struct {
	ID                string    `json:"id"`
	ConstellationID   string    `json:"constellation_id"`
	ConstellationName string    `json:"constellation_name"`
	Status            RunStatus `json:"status"`
	Variables         map[string]any `json:"variables"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at,omitzero"`
	FinalOutput       string    `json:"final_output,omitempty"`
	Error             string    `json:"error,omitempty"`
	AwaitingNodeID    string    `json:"awaiting_node_id,omitempty"`
	AwaitingPrompt    string    `json:"awaiting_prompt,omitempty"`
	AdditionalContext string    `json:"additional_context,omitempty"`

	// NodeOutputOrder preserves insertion order so "the most recently
	// completed upstream output" (§4.4.4) and the semantic-binding
	// tie-break ("ties are broken by iteration order of node_outputs",
	// §4.5) are well defined — Go maps have no iteration order.
	NodeOutputOrder []string               `json:"node_output_order"`
	NodeOutputs     map[string]*NodeOutput `json:"node_outputs"`

	// mu guards NodeOutputs/NodeOutputOrder against concurrent fan-out
	// siblings (§4.6.2) recording results through the same Run. Not
	// serialized; a Run read back from storage is always accessed
	// single-threaded during the Runner's own traversal.
	mu sync.Mutex
}

// NewRun allocates a Run in the "running" state with empty node output maps.
func NewRun(id, constellationID, constellationName string, variables map[string]any) *Run {
	return &Run{
		ID:                id,
		ConstellationID:   constellationID,
		ConstellationName: constellationName,
		Status:            StatusRunning,
		Variables:         variables,
		StartedAt:         time.Now().UTC(),
		NodeOutputs:       make(map[string]*NodeOutput),
	}
}

// PutNodeOutput records (or overwrites, for a re-executed loop target) a
// node's output, maintaining NodeOutputOrder. Mutex-guarded so parallel
// fan-out siblings (§4.6.2) recording through the same Run never race.
func (r *Run) PutNodeOutput(out *NodeOutput) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.NodeOutputs[out.NodeID]; !exists {
		r.NodeOutputOrder = append(r.NodeOutputOrder, out.NodeID)
	}
	r.NodeOutputs[out.NodeID] = out
}

// DeleteNodeOutput removes a node's recorded output (used when clearing
// downstream outputs on a loop re-entry, §4.6.3 step 4).
func (r *Run) DeleteNodeOutput(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.NodeOutputs[nodeID]; !exists {
		return
	}
	delete(r.NodeOutputs, nodeID)
	for i, id := range r.NodeOutputOrder {
		if id == nodeID {
			r.NodeOutputOrder = append(r.NodeOutputOrder[:i], r.NodeOutputOrder[i+1:]...)
			break
		}
	}
}

// runAlias has Run's exact field set without its methods, used by
// MarshalJSON to avoid infinite recursion.
type runAlias Run

// MarshalJSON takes r.mu before serializing so a store persisting a Run
// mid-fan-out (§4.6.2) never observes NodeOutputs/NodeOutputOrder
// half-written by a concurrent PutNodeOutput call.
func (r *Run) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal((*runAlias)(r))
}

// GetNodeOutput returns a node's recorded output, mutex-guarded.
func (r *Run) GetNodeOutput(nodeID string) (*NodeOutput, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.NodeOutputs[nodeID]
	return out, ok
}

// NodeOutputOrderSnapshot returns a copy of the insertion-ordered node ids,
// safe to range over while siblings may still be appending to it.
func (r *Run) NodeOutputOrderSnapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	order := make([]string, len(r.NodeOutputOrder))
	copy(order, r.NodeOutputOrder)
	return order
}

// FinalOutputFromLastCompleted returns the output of the most recently
// completed StarNode in insertion order (§4.6.4), or "" if none completed.
func (r *Run) FinalOutputFromLastCompleted() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last string
	for _, id := range r.NodeOutputOrder {
		out := r.NodeOutputs[id]
		if out != nil && out.Status == NodeCompleted && out.Output != "" {
			last = out.Output
		}
	}
	return last
}

// Context is the in-memory working set during a single Run or Resume
// invocation (§3). loop_count is shared across parallel branches and
// guarded by mu, per the §9 design note.
type Context struct {
	RunID                string
	ConstellationID      string
	OriginalQuery        string
	ConstellationPurpose string

	// Variables is mutable; node bindings are merged in by the Runner (§4.5).
	Variables map[string]any

	// NodeOutputs is keyed by node id and read by downstream Stars for
	// binding resolution. The Star contract (§6) forbids Stars from
	// mutating it; only the Runner writes to it, via SetNodeOutput.
	NodeOutputs map[string]StarOutput

	Stream EventStream

	// CurrentNodeID/CurrentNodeName are set for the duration of exactly one
	// node's execution (§4.6.1 step 2).
	CurrentNodeID   string
	CurrentNodeName string

	mu        sync.Mutex
	loopCount int

	// order preserves NodeOutputs insertion order, needed for the §4.5
	// semantic-binding tie-break and the "most recently completed upstream
	// output" fallback — Go maps have no iteration order.
	order []string
}

// EventStream is the minimal surface the Context needs from the Event
// Stream (C3); the concrete emit.Emitter satisfies it. Kept as a narrow
// interface here (rather than importing package emit) to avoid a cyclic
// dependency between constellation and emit.
type EventStream interface {
	Emit(event any)
}

// NewContext builds a Context for a fresh Run or Resume invocation.
func NewContext(runID, constellationID, originalQuery, purpose string, variables map[string]any, stream EventStream) *Context {
	return &Context{
		RunID:                runID,
		ConstellationID:      constellationID,
		OriginalQuery:        originalQuery,
		ConstellationPurpose: purpose,
		Variables:            variables,
		NodeOutputs:          make(map[string]StarOutput),
		Stream:               stream,
	}
}

// IncrementLoopCount atomically increments the shared loop counter and
// returns the new value, under the same mutex as the rest of the Context's
// shared state. The caller compares the returned value against the loop
// bound (§4.6.3 step 2) after the lock is released.
func (c *Context) IncrementLoopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopCount++
	return c.loopCount
}

// LoopCount returns the current loop count without incrementing it.
func (c *Context) LoopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopCount
}

// SetCurrentNode records which node is executing, mutex-guarded so
// concurrent fan-out siblings (§4.6.2) writing through the same Context
// never race on the underlying fields. Under true parallel siblings the
// value is necessarily last-writer-wins and not meaningful as "the"
// current node; the Runner only relies on it during the single-node-at-a-
// time sequential traversal (§4.6.1 step 2).
func (c *Context) SetCurrentNode(id, name string) {
	c.mu.Lock()
	c.CurrentNodeID = id
	c.CurrentNodeName = name
	c.mu.Unlock()
}

// ClearCurrentNode resets the current-node fields, mirroring SetCurrentNode.
func (c *Context) ClearCurrentNode() {
	c.mu.Lock()
	c.CurrentNodeID = ""
	c.CurrentNodeName = ""
	c.mu.Unlock()
}

// CurrentNode returns the current node id/name under the same mutex
// SetCurrentNode uses, safe to call from a Star that may run concurrently
// with siblings.
func (c *Context) CurrentNode() (id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentNodeID, c.CurrentNodeName
}

// SetNodeOutput records a node's StarOutput, tracking insertion order. The
// Runner is the only writer (§6); Stars must treat NodeOutputs as read-only.
// Mutex-guarded: parallel fan-out siblings (§4.6.2) call this concurrently
// through the same Context.
func (c *Context) SetNodeOutput(nodeID string, out StarOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.NodeOutputs[nodeID]; !exists {
		c.order = append(c.order, nodeID)
	}
	c.NodeOutputs[nodeID] = out
}

// GetNodeOutput returns a node's recorded output, mutex-guarded.
func (c *Context) GetNodeOutput(nodeID string) (StarOutput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.NodeOutputs[nodeID]
	return out, ok
}

// DeleteNodeOutput removes a node's recorded output (used when clearing
// downstream outputs on a loop re-entry, §4.6.3 step 4).
func (c *Context) DeleteNodeOutput(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.NodeOutputs[nodeID]; !exists {
		return
	}
	delete(c.NodeOutputs, nodeID)
	for i, id := range c.order {
		if id == nodeID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// NodeOutputOrder returns a copy of the node ids in the order their outputs
// were first recorded, safe to range over while siblings may still be
// appending to it.
func (c *Context) NodeOutputOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	order := make([]string, len(c.order))
	copy(order, c.order)
	return order
}

// SetVariable merges a single variable binding into the Context, mutex-
// guarded since §4.5 binding resolution runs concurrently for fan-out
// siblings that share a Context.
func (c *Context) SetVariable(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Variables[name] = value
}

// GetVariable reads a single variable, mutex-guarded.
func (c *Context) GetVariable(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.Variables[name]
	return v, ok
}

