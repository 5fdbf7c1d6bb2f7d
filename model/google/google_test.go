package google

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/astro-run/constellation-runtime/model"
)

func TestNewChatModelDefaultsModelNameWhenEmpty(t *testing.T) {
	m := NewChatModel("key", "")
	if m.modelName == "" {
		t.Fatal("expected a default model name when none given")
	}
}

func TestChatSendsMessagesAndReturnsResponse(t *testing.T) {
	mockClient := &mockGoogleClient{response: model.ChatOut{Text: "Hello!", Model: "gemini-2.5-flash", InputTokens: 8, OutputTokens: 2}}
	m := &ChatModel{client: mockClient, modelName: "gemini-2.5-flash"}

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "Hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "Hello!" {
		t.Errorf("Text = %q, want Hello!", out.Text)
	}
	if out.InputTokens != 8 || out.OutputTokens != 2 {
		t.Errorf("usage not passed through: %+v", out)
	}
	if mockClient.callCount != 1 {
		t.Errorf("callCount = %d, want 1", mockClient.callCount)
	}
}

func TestChatHandlesToolCallsInResponse(t *testing.T) {
	mockClient := &mockGoogleClient{response: model.ChatOut{ToolCalls: []model.ToolCall{
		{Name: "search", Input: map[string]interface{}{"query": "test"}},
	}}}
	m := &ChatModel{client: mockClient, modelName: "gemini-2.5-flash"}

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "Search"}},
		[]model.ToolSpec{{Name: "search", Description: "Search the web"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "search" {
		t.Fatalf("unexpected tool calls: %+v", out.ToolCalls)
	}
}

func TestChatRespectsContextCancellation(t *testing.T) {
	mockClient := &mockGoogleClient{response: model.ChatOut{Text: "unused"}}
	m := &ChatModel{client: mockClient, modelName: "gemini-2.5-flash"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "Test"}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mockClient.callCount != 0 {
		t.Fatalf("client should never be called once ctx is already cancelled, callCount=%d", mockClient.callCount)
	}
}

func TestChatTranslatesSafetyFilterError(t *testing.T) {
	safetyErr := &SafetyFilterError{reason: "blocked content", category: "HARM_CATEGORY_DANGEROUS_CONTENT"}
	mockClient := &mockGoogleClient{err: safetyErr}
	m := &ChatModel{client: mockClient, modelName: "gemini-2.5-flash"}

	_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "Test"}}, nil)
	var got *SafetyFilterError
	if !errors.As(err, &got) {
		t.Fatalf("expected *SafetyFilterError, got %T", err)
	}
	if got.Category() != "HARM_CATEGORY_DANGEROUS_CONTENT" {
		t.Errorf("Category() = %q", got.Category())
	}
}

func TestSafetyFilterErrorMessageIncludesCategory(t *testing.T) {
	err := &SafetyFilterError{reason: "r", category: "HARM_CATEGORY_HARASSMENT"}
	if err.Error() != "content blocked by safety filter: HARM_CATEGORY_HARASSMENT" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if err.Reason() != "r" {
		t.Fatalf("Reason() = %q, want r", err.Reason())
	}
}

func TestChatWrapsPlainErrorsUnchanged(t *testing.T) {
	plain := errors.New("quota exceeded")
	mockClient := &mockGoogleClient{err: plain}
	m := &ChatModel{client: mockClient, modelName: "gemini-2.5-flash"}

	_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "Test"}}, nil)
	if !errors.Is(err, plain) {
		t.Fatalf("err = %v, want wrapped plain error", err)
	}
}

func TestDefaultClientRejectsEmptyAPIKey(t *testing.T) {
	c := &defaultClient{apiKey: "", modelName: "gemini-2.5-flash"}
	_, err := c.generateContent(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestConvertTypeStringMapsJSONSchemaTypes(t *testing.T) {
	cases := map[string]genai.Type{
		"string": genai.TypeString, "number": genai.TypeNumber, "integer": genai.TypeInteger,
		"boolean": genai.TypeBoolean, "array": genai.TypeArray, "object": genai.TypeObject,
		"unknown": genai.TypeUnspecified,
	}
	for typeStr, want := range cases {
		// Unknown types fall back to TypeUnspecified.
		if got := convertTypeString(typeStr); got != want {
			t.Errorf("convertTypeString(%q) = %v, want %v", typeStr, got, want)
		}
	}
}

type mockGoogleClient struct {
	response  model.ChatOut
	err       error
	callCount int
}

func (m *mockGoogleClient) generateContent(_ context.Context, messages []model.Message, _ []model.ToolSpec) (model.ChatOut, error) {
	m.callCount++
	if m.err != nil {
		return model.ChatOut{}, m.err
	}
	return m.response, nil
}
