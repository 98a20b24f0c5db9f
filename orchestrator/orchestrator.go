// Package orchestrator fans prompts out across registered provider
// adapters and aggregates the results. It also owns the timing the
// adapters leave blank: latency and completion timestamps are stamped
// here, around each adapter call.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/llm-gateway/providers"
)

// ErrProviderUnavailable is returned for adapters constructed without an API key
var ErrProviderUnavailable = errors.New("provider unavailable: no API key configured")

// Result is one adapter's outcome in a fan-out query
type Result struct {
	ID       uuid.UUID
	Provider string
	Response *providers.Response
	Err      error
}

// Orchestrator drives queries across a provider registry
type Orchestrator struct {
	registry *providers.Registry
	logger   *zap.Logger
}

// New creates an orchestrator backed by registry
func New(registry *providers.Registry, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, logger: logger}
}

// Query runs a single-shot query against one provider by name, stamping
// latency and completion time on the response
func (o *Orchestrator) Query(ctx context.Context, name, prompt string, opts providers.QueryOptions) (*providers.Response, error) {
	provider, err := o.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, provider, prompt, opts)
}

// QueryAll fans the prompt out to every registered provider concurrently.
// Results come back in registration order, one per provider; an
// individual failure never aborts sibling queries.
func (o *Orchestrator) QueryAll(ctx context.Context, prompt string, opts providers.QueryOptions) []Result {
	names := o.registry.Names()
	results := make([]Result, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		provider, err := o.registry.Get(name)
		if err != nil {
			results[i] = Result{ID: uuid.New(), Provider: name, Err: err}
			continue
		}
		wg.Add(1)
		go func(i int, provider providers.Provider) {
			defer wg.Done()
			resp, err := o.run(ctx, provider, prompt, opts)
			results[i] = Result{ID: uuid.New(), Provider: provider.Name(), Response: resp, Err: err}
		}(i, provider)
	}
	wg.Wait()

	return results
}

// Stream opens a streaming query against one provider by name. The
// caller owns the returned stream and must close it.
func (o *Orchestrator) Stream(ctx context.Context, name, prompt string, opts providers.QueryOptions) (providers.Stream, error) {
	provider, err := o.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if !provider.Available() {
		return nil, fmt.Errorf("%s: %w", provider.Name(), ErrProviderUnavailable)
	}
	return provider.Stream(ctx, prompt, opts)
}

// StreamTo drives a streaming query to completion, writing each fragment
// to w as it arrives. The underlying stream is released however the loop
// exits.
func (o *Orchestrator) StreamTo(ctx context.Context, name, prompt string, opts providers.QueryOptions, w io.Writer) error {
	stream, err := o.Stream(ctx, name, prompt, opts)
	if err != nil {
		return err
	}
	defer stream.Close()

	start := time.Now()
	fragments := 0
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		fragments++
	}

	o.logger.Info("stream completed",
		zap.String("provider", name),
		zap.Int("fragments", fragments),
		zap.Duration("latency", time.Since(start)))
	return nil
}

// run executes one adapter call and stamps the timing fields
func (o *Orchestrator) run(ctx context.Context, provider providers.Provider, prompt string, opts providers.QueryOptions) (*providers.Response, error) {
	if !provider.Available() {
		return nil, fmt.Errorf("%s: %w", provider.Name(), ErrProviderUnavailable)
	}

	start := time.Now()
	resp, err := provider.Query(ctx, prompt, opts)
	if err != nil {
		o.logger.Warn("provider query failed",
			zap.String("provider", provider.Name()),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	resp.Latency = time.Since(start)
	resp.Timestamp = time.Now()

	fields := []zap.Field{
		zap.String("provider", resp.Provider),
		zap.String("model", resp.Model),
		zap.Duration("latency", resp.Latency),
	}
	if resp.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", resp.Usage.TotalTokens))
	}
	o.logger.Info("provider query completed", fields...)
	return resp, nil
}
