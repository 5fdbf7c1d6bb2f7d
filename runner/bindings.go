package runner

import (
	"strings"

	"github.com/astro-run/constellation-runtime/constellation"
	"github.com/astro-run/constellation-runtime/star"
)

// SemanticMatch pairs a well-known template-variable name with the
// case-insensitive substrings a prior node id is checked against (§4.5
// step 3). Configurable at Runner construction time per the §9 open
// question ("the substring map MUST be constructor-time configurable").
type SemanticMatch struct {
	VariableName string
	Substrings   []string
}

// DefaultSemanticMatches mirrors the reference runtime's fixed map,
// grounded on spec.md §4.5's worked examples.
func DefaultSemanticMatches() []SemanticMatch {
	return []SemanticMatch{
		{VariableName: "structure_analysis", Substrings: []string{"excel_parser", "parser"}},
		{VariableName: "interview_transcript", Substrings: []string{"expert_interview", "interviewer"}},
		{VariableName: "model_blueprint", Substrings: []string{"blueprint_compiler"}},
	}
}

// resolveBindings computes the variable bindings §4.5 describes for a
// single StarNode's Directive, following the priority chain:
// context.variables -> node-id-named output -> semantic match ->
// most recent completed output -> default -> required-missing error.
// Grounded on runner.py's _resolve_bindings, extended with step 3
// (semantic matching) and step 4 (most-recent fallback), neither of
// which the Python reference's simplified version implements but which
// spec.md §4.5 requires.
func (r *Runner) resolveBindings(directive constellation.Directive, cc *constellation.Context) (map[string]any, error) {
	bindings := make(map[string]any, len(directive.TemplateVariables))

	for _, v := range directive.TemplateVariables {
		value, ok := r.bindOne(v, cc)
		if !ok {
			if v.Required {
				nodeID, _ := cc.CurrentNode()
				return nil, &ExecutionError{
					NodeID:  nodeID,
					Message: "Required variable '" + v.Name + "' not provided",
				}
			}
			continue
		}
		bindings[v.Name] = value
	}
	return bindings, nil
}

func (r *Runner) bindOne(v constellation.TemplateVariable, cc *constellation.Context) (any, bool) {
	// Step 1: already in context.variables.
	if val, ok := cc.GetVariable(v.Name); ok {
		return val, true
	}

	// Step 2: a prior node id equals the variable name.
	if out, ok := cc.GetNodeOutput(v.Name); ok {
		return star.ExtractBindingValue(out), true
	}

	// Step 3: semantic matching against a fixed substring map, first
	// upstream match wins, ties broken by node_outputs iteration order.
	if nodeID, ok := r.semanticMatch(v.Name, cc); ok {
		out, _ := cc.GetNodeOutput(nodeID)
		return star.ExtractBindingValue(out), true
	}

	// Step 4: most recently completed upstream output.
	if nodeID, ok := lastCompletedNodeID(cc); ok {
		out, _ := cc.GetNodeOutput(nodeID)
		return star.ExtractBindingValue(out), true
	}

	// Step 5: declared default.
	if v.Default != nil {
		return v.Default, true
	}

	return nil, false
}

// semanticMatch returns the id of the first node (in node_outputs
// insertion order) whose id contains, case-insensitively, any substring
// registered for varName.
func (r *Runner) semanticMatch(varName string, cc *constellation.Context) (string, bool) {
	var substrings []string
	for _, m := range r.semanticMatches {
		if m.VariableName == varName {
			substrings = m.Substrings
			break
		}
	}
	if len(substrings) == 0 {
		return "", false
	}

	for _, nodeID := range cc.NodeOutputOrder() {
		lower := strings.ToLower(nodeID)
		for _, substr := range substrings {
			if strings.Contains(lower, strings.ToLower(substr)) {
				return nodeID, true
			}
		}
	}
	return "", false
}

// lastCompletedNodeID returns the most recently inserted node id in
// node_outputs, iteration-order being the stand-in for "most recent" since
// constellation.Context.NodeOutputs has no per-entry timestamp.
func lastCompletedNodeID(cc *constellation.Context) (string, bool) {
	order := cc.NodeOutputOrder()
	if len(order) == 0 {
		return "", false
	}
	return order[len(order)-1], true
}
