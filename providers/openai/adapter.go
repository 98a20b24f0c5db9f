// Package openai implements the provider adapter for OpenAI-compatible
// chat-completion APIs, in direct or relayed transport mode.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/upb/llm-gateway/providers"
	"github.com/upb/llm-gateway/retry"
)

const (
	// ProviderName identifies this adapter in the registry and in errors
	ProviderName = "openai"

	// DefaultBaseURL is the public OpenAI API base
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when neither config nor options name a model
	DefaultModel = "gpt-4o-mini"

	completionsPath = "/chat/completions"

	// doneSentinel terminates an OpenAI event stream
	doneSentinel = "[DONE]"

	// maxErrorBody bounds how much of an upstream error payload is read
	maxErrorBody = 4096
)

// Adapter talks to an OpenAI-compatible chat-completions endpoint.
// Instances are immutable after construction and safe for concurrent use.
type Adapter struct {
	name       string
	config     providers.Config
	httpClient *http.Client
	endpoint   string
}

// New constructs an adapter. It performs no network I/O, and an empty API
// key is permitted: the adapter constructs but reports itself unavailable.
// When config.ProxyURL is set, calls go to the relay's forwarding prefix
// for this provider with the Authorization header unchanged. config.Name
// exposes an OpenAI-compatible vendor under its own identity.
func New(config providers.Config) *Adapter {
	name := config.Name
	if name == "" {
		name = ProviderName
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	base := strings.TrimSuffix(config.BaseURL, "/")
	if config.ProxyURL != "" {
		base = strings.TrimSuffix(config.ProxyURL, "/") + "/proxy/" + name
	}

	return &Adapter{
		name:       name,
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		endpoint:   base + completionsPath,
	}
}

// Name implements providers.Provider
func (a *Adapter) Name() string {
	return a.name
}

// Available reports whether an API key is configured
func (a *Adapter) Available() bool {
	return a.config.APIKey != ""
}

// Query implements providers.Provider. Each attempt is an independent
// HTTP call; a non-retriable failure aborts the loop on the attempt that
// produced it.
func (a *Adapter) Query(ctx context.Context, prompt string, opts providers.QueryOptions) (*providers.Response, error) {
	payload := a.buildRequest(prompt, opts, false)
	return retry.Do(ctx, a.retryPolicy(), func() (*providers.Response, error) {
		return a.complete(ctx, payload)
	})
}

// Stream implements providers.Provider. Only the opening request is
// retried: once fragments have been delivered, replaying the call would
// re-emit them, so mid-flight failures surface through Next instead.
func (a *Adapter) Stream(ctx context.Context, prompt string, opts providers.QueryOptions) (providers.Stream, error) {
	payload := a.buildRequest(prompt, opts, true)
	return retry.Do(ctx, a.retryPolicy(), func() (providers.Stream, error) {
		return a.openStream(ctx, payload)
	})
}

func (a *Adapter) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: a.config.MaxRetries,
		MinTimeout:  a.config.MinBackoff,
		MaxTimeout:  a.config.MaxBackoff,
		Jitter:      a.config.Jitter,
		Retryable:   providers.IsRetriable,
	}
}

// buildRequest resolves per-call options against the adapter defaults and
// assembles the wire payload
func (a *Adapter) buildRequest(prompt string, opts providers.QueryOptions, stream bool) *chatRequest {
	model := a.config.Model
	if opts.Model != "" {
		model = opts.Model
	}
	temperature := a.config.Temperature
	if opts.Temperature != nil {
		temperature = opts.Temperature
	}
	maxTokens := a.config.MaxTokens
	if opts.MaxTokens != nil {
		maxTokens = opts.MaxTokens
	}

	messages := providers.BuildMessages(prompt, opts)
	wire := make([]chatMessage, len(messages))
	for i, m := range messages {
		wire[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	return &chatRequest{
		Model:       model,
		Messages:    wire,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
}

// send performs one HTTP attempt. The Authorization header is identical
// whether the endpoint is the upstream API or a relay.
func (a *Adapter) send(ctx context.Context, payload *chatRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	for key, value := range a.config.Headers {
		req.Header.Set(key, value)
	}

	httpResp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	return httpResp, nil
}

// complete executes one non-streaming attempt and normalizes the result.
// Latency and Timestamp are left zero for the wrapping caller to stamp.
func (a *Adapter) complete(ctx context.Context, payload *chatRequest) (*providers.Response, error) {
	httpResp, err := a.send(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.errorFromResponse(httpResp)
	}

	var wire chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("openai: decoding response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return nil, providers.NewProviderError(a.name, 0, "", "empty response: no choices returned")
	}

	model := wire.Model
	if model == "" {
		model = payload.Model
	}
	resp := &providers.Response{
		Provider: a.name,
		Model:    model,
		Content:  wire.Choices[0].Message.Content,
	}
	if wire.Usage != nil {
		resp.Usage = normalizeUsage(wire.Usage)
	}
	return resp, nil
}

// openStream executes one streaming attempt and wraps the live body in a
// pull-based Stream that decodes SSE chunks into content fragments
func (a *Adapter) openStream(ctx context.Context, payload *chatRequest) (providers.Stream, error) {
	httpResp, err := a.send(ctx, payload)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		return nil, a.errorFromResponse(httpResp)
	}

	scanner := providers.NewSSEScanner(httpResp.Body)
	next := func() (string, error) {
		for scanner.Next() {
			ev := scanner.Event()
			if ev.Data == doneSentinel {
				return "", io.EOF
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				return "", fmt.Errorf("openai: decoding stream chunk: %w", err)
			}
			// role-only and finish_reason-only chunks carry no content
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				return content, nil
			}
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("openai: reading stream: %w", err)
		}
		return "", io.EOF
	}
	return providers.NewStream(next, httpResp.Body), nil
}

// errorFromResponse reads a bounded amount of the upstream error payload
// and classifies the failure. The caller still owns closing the body.
func (a *Adapter) errorFromResponse(httpResp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))

	provErr := &providers.ProviderError{
		Provider:   a.name,
		StatusCode: httpResp.StatusCode,
	}
	var wire errorResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		provErr.Message = wire.Error.Message
		provErr.Code = wire.Error.Code
		if provErr.Code == "" {
			provErr.Code = wire.Error.Type
		}
	} else {
		provErr.Message = strings.TrimSpace(string(body))
	}
	if provErr.Message == "" {
		provErr.Message = http.StatusText(httpResp.StatusCode)
	}

	return providers.Classify(provErr)
}

// normalizeUsage keeps the reported total consistent with its parts even
// when the upstream omits or misreports it
func normalizeUsage(u *chatUsage) *providers.Usage {
	usage := &providers.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if usage.TotalTokens != usage.PromptTokens+usage.CompletionTokens {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

// wire format for the chat-completions endpoint

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type streamChunk struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamDelta struct {
	Content string `json:"content"`
}
