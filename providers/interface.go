package providers

import (
	"context"
	"time"
)

// Provider is the unified contract every LLM provider adapter implements.
// Implementations must be safe for concurrent use: all call state lives on
// the stack, adapters only share their immutable configuration.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai")
	Name() string

	// Available reports whether the adapter is usable, which only requires
	// a non-empty API key. It never performs network I/O.
	Available() bool

	// Query sends a single-shot completion request and returns the
	// normalized response. Latency and Timestamp are left zero for the
	// caller that owns the timer to fill in.
	Query(ctx context.Context, prompt string, opts QueryOptions) (*Response, error)

	// Stream opens a streaming completion request. The returned Stream
	// yields content fragments in upstream order until io.EOF. A stream is
	// not restartable; issue a fresh call to stream again.
	Stream(ctx context.Context, prompt string, opts QueryOptions) (Stream, error)
}

// Message is a single conversation turn
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// QueryOptions carries per-call parameters. The zero value is valid and
// means "use the adapter's defaults". Options are never mutated by a call.
type QueryOptions struct {
	// SystemPrompt, when non-empty, becomes the first message of the request
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Context holds prior conversation turns, sent in order between the
	// system prompt and the user prompt
	Context []Message `json:"context,omitempty" validate:"omitempty,dive"`

	// Model overrides the adapter's default model
	Model string `json:"model,omitempty"`

	// Temperature overrides the adapter default; nil lets the provider decide
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`

	// MaxTokens caps the completion length; nil lets the provider decide
	MaxTokens *int `json:"max_tokens,omitempty" validate:"omitempty,gte=1"`
}

// Usage reports token consumption for a completed query
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the normalized result of a non-streaming query.
// Adapters fill Provider, Model, Content and Usage; the orchestration
// layer that wraps the call stamps Latency and Timestamp.
type Response struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Content   string        `json:"content"`
	Usage     *Usage        `json:"usage,omitempty"`
	Latency   time.Duration `json:"latency"`
	Timestamp time.Time     `json:"timestamp"`
}

// Config configures a provider adapter. APIKey is the only field without
// a usable default.
type Config struct {
	// Name overrides the adapter's native identity. OpenAI-compatible
	// vendors are exposed under their own names this way; empty keeps the
	// adapter's default.
	Name string

	// APIKey authenticates against the upstream API. Empty means the
	// adapter is constructed but reports itself unavailable.
	APIKey string

	// Model is the default model for calls that do not override it
	Model string

	// Temperature is the default sampling temperature; nil defers to the provider
	Temperature *float64

	// MaxTokens is the default completion budget; nil defers to the provider
	MaxTokens *int

	// BaseURL overrides the provider's public API base URL
	BaseURL string

	// ProxyURL, when set, routes all calls through a relay instance at this
	// base URL instead of calling the upstream directly. The Authorization
	// header is sent exactly as in direct mode.
	ProxyURL string

	// MaxRetries is the number of additional attempts after the first.
	// Zero means a single attempt.
	MaxRetries int

	// MinBackoff and MaxBackoff bound the exponential retry delay
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// Jitter randomizes each backoff delay to avoid synchronized retries
	Jitter bool

	// Timeout is the transport-level limit per HTTP attempt; zero disables it
	Timeout time.Duration

	// Headers are extra headers added to every upstream request
	Headers map[string]string
}

// DefaultConfig returns a Config with production defaults. The API key
// must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		MinBackoff: 1 * time.Second,
		MaxBackoff: 30 * time.Second,
		Jitter:     true,
		Timeout:    120 * time.Second,
	}
}

// BuildMessages assembles the wire-order message sequence shared by all
// adapters: the system prompt first when present, then each context turn
// in order, then the user prompt last.
func BuildMessages(prompt string, opts QueryOptions) []Message {
	messages := make([]Message, 0, len(opts.Context)+2)

	if opts.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, opts.Context...)
	messages = append(messages, Message{Role: "user", Content: prompt})

	return messages
}
