package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// Request is one call to a completion capability.
type Request struct {
	Prompt    string
	MaxTokens int
	JSONMode  bool
}

// Completion is the raw result of a completion call. Usage and Duration are
// reported by the capability and passed through untouched.
type Completion struct {
	Text     string
	Usage    map[string]any
	Duration time.Duration
}

// Completer is a text-completion capability.
type Completer interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// LLMCompleter adapts a langchaingo model to Completer.
type LLMCompleter struct {
	model llms.Model
}

var _ Completer = (*LLMCompleter)(nil)

// NewLLMCompleter wraps model.
func NewLLMCompleter(model llms.Model) *LLMCompleter {
	return &LLMCompleter{model: model}
}

// NewOpenAI builds a completer for an OpenAI-compatible endpoint. Returns
// ErrUnavailable when apiKey is empty.
func NewOpenAI(cfg types.CompletionConfig, apiKey string) (*LLMCompleter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("completion: no API key: %w", types.ErrUnavailable)
	}
	model := cfg.Model
	if model == "" {
		model = types.DefaultCompletionModel
	}
	opts := []openai.Option{openai.WithModel(model), openai.WithToken(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("completion: creating client: %w", err)
	}
	return NewLLMCompleter(llm), nil
}

// Complete sends req as a single human message.
func (c *LLMCompleter) Complete(ctx context.Context, req Request) (Completion, error) {
	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}
	msgs := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt)}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, msgs, opts...)
	elapsed := time.Since(start)
	if err != nil {
		return Completion{}, fmt.Errorf("completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Completion{}, errors.New("completion: empty response")
	}

	choice := resp.Choices[0]
	return Completion{
		Text:     choice.Content,
		Usage:    usageFrom(choice.GenerationInfo),
		Duration: elapsed,
	}, nil
}

// usageFrom picks the token counts out of a provider's generation info.
func usageFrom(info map[string]any) map[string]any {
	usage := map[string]any{}
	for key, name := range map[string]string{
		"PromptTokens":     "input",
		"CompletionTokens": "output",
		"TotalTokens":      "total",
	} {
		if v, ok := info[key]; ok {
			usage[name] = v
		}
	}
	return usage
}
