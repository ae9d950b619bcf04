package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider("openai", "test-key", srv.URL, "test-model", 5*time.Second)
}

func completionBody(msg map[string]any) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": msg, "finish_reason": "stop"}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return body
}

func TestChat_TextAnswer(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer credential, got %q", got)
		}
		w.Write(completionBody(map[string]any{"role": "assistant", "content": "hello there"}))
	})

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.WantsTools() {
		t.Fatal("text answer misclassified as tool call")
	}
	if resp.Content != "hello there" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestChat_ToolCall(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req wireRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "greet_tool" {
			t.Errorf("tool definitions not forwarded: %+v", req.Tools)
		}
		w.Write(completionBody(map[string]any{
			"role": "assistant",
			"tool_calls": []map[string]any{{
				"id":   "call_1",
				"type": "function",
				"function": map[string]any{
					"name":      "greet_tool",
					"arguments": `{"mood":"happy"}`,
				},
			}},
		}))
	})

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "greet me"}},
		Tools: []ToolDefinition{{
			Type:     "function",
			Function: ToolFunctionSchema{Name: "greet_tool", Parameters: map[string]any{"type": "object"}},
		}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !resp.WantsTools() {
		t.Fatal("tool call misclassified as text answer")
	}
	call := resp.ToolCalls[0]
	if call.Name != "greet_tool" || call.ID != "call_1" {
		t.Errorf("call = %+v", call)
	}
	if call.Args["mood"] != "happy" {
		t.Errorf("args = %+v", call.Args)
	}
}

func TestChat_MalformedArgumentsIsProtocolError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(map[string]any{
			"role": "assistant",
			"tool_calls": []map[string]any{{
				"id":       "call_1",
				"type":     "function",
				"function": map[string]any{"name": "greet_tool", "arguments": `{"mood":`},
			}},
		}))
	})

	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestChat_EmptyUnionIsProtocolError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(map[string]any{"role": "assistant", "content": ""}))
	})

	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError for neither-variant response, got %v", err)
	}
}

func TestChat_ServerErrorIsServiceUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestChat_ClientErrorIsAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad key"}})
	})

	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.StatusCode != http.StatusUnauthorized || ae.Message != "bad key" {
		t.Errorf("api error = %+v", ae)
	}
}

func TestChat_TransportFailureIsServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	p := NewOpenAIProvider("openai", "k", srv.URL, "m", time.Second)

	_, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestEncodeMessages_ToolResultRoundTrip(t *testing.T) {
	msgs := []Message{
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "c1", Name: "greet_tool", Args: map[string]any{"mood": "happy"}}}},
		{Role: "tool", ToolCallID: "c1", Name: "greet_tool", Content: "hi"},
	}
	wire := encodeMessages(msgs)
	if len(wire) != 2 {
		t.Fatalf("got %d messages", len(wire))
	}
	if wire[0].ToolCalls[0].Function.Arguments != `{"mood":"happy"}` {
		t.Errorf("arguments = %q", wire[0].ToolCalls[0].Function.Arguments)
	}
	if wire[1].ToolCallID != "c1" || wire[1].Role != "tool" {
		t.Errorf("tool result message = %+v", wire[1])
	}
}
