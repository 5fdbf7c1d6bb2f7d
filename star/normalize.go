package star

import (
	"fmt"
	"strings"

	"github.com/astro-run/constellation-runtime/constellation"
)

// DefaultToolCallTruncation is the number of characters a tool call's
// Result field is truncated to before being stored on a NodeOutput, per the
// §9 open question ("the default MUST match to preserve event-stream
// compatibility").
const DefaultToolCallTruncation = 500

// Normalize converts a StarOutput into the single string stored in
// NodeOutput.Output, by the priority chain in §4.4. Implemented as a type
// switch over the StarOutput sum type (§9 design note) rather than
// attribute probing, mirroring the priority order of runner.py's
// _execute_node hasattr cascade:
//
//	formatted_result -> result (+tool_calls) -> worker outputs joined ->
//	document extractions joined -> eval decision text -> plan summary ->
//	string coercion.
//
// The main output string is never truncated (§4.6.1 step 5); only the
// returned tool calls have their Result field truncated, to
// toolCallTruncation characters (0 or negative disables truncation).
func Normalize(output constellation.StarOutput, toolCallTruncation int) (text string, toolCalls []constellation.ToolCall) {
	switch o := output.(type) {
	case constellation.SynthesisOutput:
		return o.FormattedResult, nil

	case constellation.WorkerOutput:
		calls := make([]constellation.ToolCall, len(o.ToolCalls))
		for i, tc := range o.ToolCalls {
			tc.Result = truncate(tc.Result, toolCallTruncation)
			calls[i] = tc
		}
		return o.Result, calls

	case constellation.ExecutionResult:
		parts := make([]string, 0, len(o.WorkerOutputs))
		for _, wo := range o.WorkerOutputs {
			if wo.Result != "" {
				parts = append(parts, wo.Result)
			}
		}
		if len(parts) == 0 {
			return fmt.Sprintf("%v", o), nil
		}
		return strings.Join(parts, "\n\n"), nil

	case constellation.DocExResult:
		parts := make([]string, 0, len(o.Documents))
		for _, d := range o.Documents {
			if d.ExtractedContent != "" {
				parts = append(parts, d.ExtractedContent)
			}
		}
		if len(parts) == 0 {
			return fmt.Sprintf("%v", o), nil
		}
		return strings.Join(parts, "\n\n"), nil

	case constellation.EvalDecision:
		return fmt.Sprintf("Decision: %s. %s", o.Decision, o.Reasoning), nil

	case constellation.Plan:
		descs := make([]string, 0, 3)
		for i, t := range o.Tasks {
			if i >= 3 {
				break
			}
			descs = append(descs, t.Description)
		}
		return fmt.Sprintf("Plan with %d tasks: %s", len(o.Tasks), strings.Join(descs, "; ")), nil

	case constellation.OpaqueOutput:
		return fmt.Sprintf("%v", o.Value), nil

	default:
		return fmt.Sprintf("%v", o), nil
	}
}

// ExtractBindingValue extracts the value used for variable binding (§4.5)
// from a StarOutput: prefer result, then formatted_result, then output,
// then the opaque value itself.
func ExtractBindingValue(output constellation.StarOutput) any {
	switch o := output.(type) {
	case constellation.WorkerOutput:
		return o.Result
	case constellation.SynthesisOutput:
		return o.FormattedResult
	case constellation.OpaqueOutput:
		return o.Value
	default:
		text, _ := Normalize(output, DefaultToolCallTruncation)
		return text
	}
}

// Preview returns the first maxLength characters of s, for use as an
// event's output_preview field (§4.4: "implementation-defined cutoff of a
// few hundred characters").
func Preview(s string, maxLength int) string {
	return truncate(s, maxLength)
}

func truncate(s string, maxLength int) string {
	runes := []rune(s)
	if maxLength <= 0 || len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength]) + "… [truncated]"
}
