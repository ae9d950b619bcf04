package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	openaiDefaultBase  = "https://api.openai.com/v1"
	openaiDefaultModel = "gpt-4o-mini"

	defaultRequestTimeout = 120 * time.Second
)

// OpenAIProvider talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAIProvider struct {
	name    string
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
}

// NewOpenAIProvider creates a provider. Empty apiBase/model fall back to the
// OpenAI defaults; timeout <= 0 uses the package default.
func NewOpenAIProvider(name, apiKey, apiBase, model string, timeout time.Duration) *OpenAIProvider {
	if name == "" {
		name = "openai"
	}
	if apiBase == "" {
		apiBase = openaiDefaultBase
	}
	if model == "" {
		model = openaiDefaultModel
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &OpenAIProvider{
		name:    name,
		apiKey:  apiKey,
		apiBase: apiBase,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

// Model returns the default model requests are issued against.
func (p *OpenAIProvider) Model() string { return p.model }

// --- wire types ---

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type wireRequest struct {
	Model       string           `json:"model"`
	Messages    []wireMessage    `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type wireResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat performs one blocking round-trip to the service.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	body := wireRequest{
		Model:       model,
		Messages:    encodeMessages(req.Messages),
		Tools:       CleanToolSchemas(p.name, req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrServiceUnavailable, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, p.statusError(httpResp.StatusCode, raw)
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &ProtocolError{Provider: p.name, Reason: "undecodable response body", Err: err}
	}
	if wire.Error != nil {
		return nil, &APIError{Provider: p.name, StatusCode: httpResp.StatusCode, Message: wire.Error.Message}
	}
	if len(wire.Choices) == 0 {
		return nil, &ProtocolError{Provider: p.name, Reason: "response has no choices"}
	}

	resp, err := decodeResponse(p.name, wire)
	if err != nil {
		return nil, err
	}

	slog.Debug("chat round-trip",
		"provider", p.name,
		"model", model,
		"tool_calls", len(resp.ToolCalls),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (p *OpenAIProvider) statusError(code int, raw []byte) error {
	msg := string(raw)
	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Error != nil {
		msg = wire.Error.Message
	}
	// Server-side trouble and throttling are transient; the session can
	// retry next turn. Anything else is a request the service rejected.
	if code >= 500 || code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: HTTP %d: %s", ErrServiceUnavailable, code, msg)
	}
	return &APIError{Provider: p.name, StatusCode: code, Message: msg}
}

func encodeMessages(msgs []Message) []wireMessage {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		w := wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Args)
			wtc := wireToolCall{ID: tc.ID, Type: "function"}
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = string(args)
			w.ToolCalls = append(w.ToolCalls, wtc)
		}
		out[i] = w
	}
	return out
}

// decodeResponse maps the wire message onto the closed response union and
// rejects shapes that fit neither variant.
func decodeResponse(provider string, wire wireResponse) (*ChatResponse, error) {
	msg := wire.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		calls := make([]ToolCall, 0, len(msg.ToolCalls))
		for _, wtc := range msg.ToolCalls {
			args := map[string]any{}
			if wtc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(wtc.Function.Arguments), &args); err != nil {
					return nil, &ProtocolError{
						Provider: provider,
						Reason:   fmt.Sprintf("malformed arguments for tool %s", wtc.Function.Name),
						Err:      err,
					}
				}
			}
			calls = append(calls, ToolCall{ID: wtc.ID, Name: wtc.Function.Name, Args: args})
		}
		return &ChatResponse{ToolCalls: calls, Usage: wire.Usage}, nil
	}

	if msg.Content == "" {
		return nil, &ProtocolError{Provider: provider, Reason: "response carries neither tool calls nor text"}
	}
	return &ChatResponse{Content: msg.Content, Usage: wire.Usage}, nil
}
