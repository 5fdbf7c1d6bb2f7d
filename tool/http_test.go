package tool

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPToolGetDefaultMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("X-Custom", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	h := NewHTTPTool()
	out, err := h.Call(context.Background(), map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out["status_code"] != http.StatusOK {
		t.Fatalf("status_code = %v, want 200", out["status_code"])
	}
	if out["body"] != "hello" {
		t.Fatalf("body = %v, want hello", out["body"])
	}
}

func TestHTTPToolPostWithBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("X-Token"); got != "abc" {
			t.Errorf("X-Token header = %q, want abc", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"k":"v"}` {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	h := NewHTTPTool()
	out, err := h.Call(context.Background(), map[string]interface{}{
		"url":    srv.URL,
		"method": "post",
		"body":   `{"k":"v"}`,
		"headers": map[string]interface{}{
			"X-Token": "abc",
		},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out["status_code"] != http.StatusCreated {
		t.Fatalf("status_code = %v, want 201", out["status_code"])
	}
}

func TestHTTPToolMissingURLErrors(t *testing.T) {
	h := NewHTTPTool()
	if _, err := h.Call(context.Background(), map[string]interface{}{}); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestHTTPToolUnsupportedMethodErrors(t *testing.T) {
	h := NewHTTPTool()
	_, err := h.Call(context.Background(), map[string]interface{}{
		"url": "http://example.invalid", "method": "DELETE",
	})
	if err == nil {
		t.Fatal("expected error for unsupported method")
	}
}

func TestHTTPToolNameIsHTTPRequest(t *testing.T) {
	if (&HTTPTool{}).Name() != "http_request" {
		t.Fatalf("Name() = %q, want http_request", (&HTTPTool{}).Name())
	}
}
