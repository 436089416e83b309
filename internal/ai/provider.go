package ai

import (
	"context"
	"fmt"
	"strings"
)

// Usage is the token accounting for a single provider call. TotalTokens is
// always InputTokens + OutputTokens.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

func NewUsage(input, output int64) Usage {
	return Usage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
	}
}

func (u Usage) Add(other Usage) Usage {
	return NewUsage(u.InputTokens+other.InputTokens, u.OutputTokens+other.OutputTokens)
}

type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	// JSONMode asks the provider for a raw JSON object response.
	JSONMode bool
}

type CompletionResult struct {
	Text  string
	Usage Usage
}

type EmbedResult struct {
	Vector []float32
	Usage  Usage
}

type IProvider interface {
	Name() string
	Complete(ctx context.Context, model string, req *CompletionRequest) (*CompletionResult, error)
	Embed(ctx context.Context, model string, text string, taskType string) (*EmbedResult, error)
}

type ICompleter interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) (*EmbedResult, error)
	ModelName() string
}

type completer struct {
	provider IProvider
	model    string
}

func NewCompleter(p IProvider, model string) ICompleter {
	return &completer{provider: p, model: model}
}

func (c *completer) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	return c.provider.Complete(ctx, c.model, req)
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) (*EmbedResult, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
