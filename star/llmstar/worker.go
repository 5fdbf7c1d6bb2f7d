// Package llmstar implements a Worker Star backed by a model.ChatModel and
// an optional tool.Tool registry — the reference implementation of the
// Star Execution Adapter contract (C4) for the common "call an LLM, maybe
// invoke tools, return text" case. Grounded on
// astro_backend_service/executor/runner.py's _execute_star dispatch
// (original_source/), which hands a Star its resolved Directive content
// and merged bindings and expects a StarOutput back.
package llmstar

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/astro-run/constellation-runtime/constellation"
	"github.com/astro-run/constellation-runtime/model"
	"github.com/astro-run/constellation-runtime/tool"
)

// Worker is a Star that renders a Directive's content against the
// Runner-merged bindings, sends it to a ChatModel, and resolves any tool
// calls the model requests against a registry before returning a
// constellation.WorkerOutput.
//
// Tool dispatch is a single round: the model's tool calls are executed and
// their results attached to the returned WorkerOutput.ToolCalls, but the
// results are not fed back to the model for a second turn. A Worker that
// needs multi-turn tool use should wrap or replace this implementation.
type Worker struct {
	Model           model.ChatModel
	Tools           map[string]tool.Tool
	SystemPrompt    string
	DirectiveContent string
}

// New returns a Worker for directiveContent, dispatching tool calls
// against tools (may be nil or empty for a tool-free Worker).
func New(chatModel model.ChatModel, directiveContent string, tools ...tool.Tool) *Worker {
	registry := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		registry[t.Name()] = t
	}
	return &Worker{Model: chatModel, Tools: registry, DirectiveContent: directiveContent}
}

// Execute implements star.Star.
func (w *Worker) Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error) {
	rendered, err := renderTemplate(w.DirectiveContent, cc.Variables)
	if err != nil {
		return nil, fmt.Errorf("llmstar: render directive: %w", err)
	}

	messages := make([]model.Message, 0, 2)
	if w.SystemPrompt != "" {
		messages = append(messages, model.Message{Role: model.RoleSystem, Content: w.SystemPrompt})
	}
	messages = append(messages, model.Message{Role: model.RoleUser, Content: rendered})

	out, err := w.Model.Chat(ctx, messages, w.toolSpecs())
	if err != nil {
		return nil, fmt.Errorf("llmstar: chat: %w", err)
	}

	calls := make([]constellation.ToolCall, 0, len(out.ToolCalls))
	for _, tc := range out.ToolCalls {
		result := w.dispatch(ctx, tc)
		calls = append(calls, constellation.ToolCall{
			Name:   tc.Name,
			Args:   tc.Input,
			Result: result,
		})
	}

	return constellation.WorkerOutput{
		Result:       out.Text,
		ToolCalls:    calls,
		Model:        out.Model,
		InputTokens:  out.InputTokens,
		OutputTokens: out.OutputTokens,
	}, nil
}

func (w *Worker) dispatch(ctx context.Context, tc model.ToolCall) string {
	t, ok := w.Tools[tc.Name]
	if !ok {
		return fmt.Sprintf("tool %q not registered", tc.Name)
	}
	result, err := t.Call(ctx, tc.Input)
	if err != nil {
		return fmt.Sprintf("tool %q failed: %v", tc.Name, err)
	}
	return fmt.Sprintf("%v", result)
}

func (w *Worker) toolSpecs() []model.ToolSpec {
	if len(w.Tools) == 0 {
		return nil
	}
	specs := make([]model.ToolSpec, 0, len(w.Tools))
	for name := range w.Tools {
		specs = append(specs, model.ToolSpec{Name: name})
	}
	return specs
}

// renderTemplate substitutes {{.VarName}} placeholders in content against
// vars using Go's text/template — the one templating mechanism available
// since no pack dependency supplies one.
func renderTemplate(content string, vars map[string]any) (string, error) {
	if content == "" {
		return "", nil
	}
	tmpl, err := template.New("directive").Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
