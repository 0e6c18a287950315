package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// recordingModel is an llms.Model that replies with a fixed string and
// keeps the options it was called with.
type recordingModel struct {
	reply string
	info  map[string]any
	err   error
	opts  llms.CallOptions
	msgs  []llms.MessageContent
}

func (m *recordingModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.msgs = msgs
	for _, opt := range options {
		opt(&m.opts)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply, GenerationInfo: m.info}}}, nil
}

func (m *recordingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLLMCompleter_Complete(t *testing.T) {
	model := &recordingModel{
		reply: `{"title": "Total"}`,
		info:  map[string]any{"PromptTokens": 80, "CompletionTokens": 20, "TotalTokens": 100, "Other": true},
	}
	c := NewLLMCompleter(model)

	got, err := c.Complete(t.Context(), Request{Prompt: "hello", MaxTokens: 250, JSONMode: true})
	require.NoError(t, err)
	assert.Equal(t, `{"title": "Total"}`, got.Text)
	assert.Equal(t, map[string]any{"input": 80, "output": 20, "total": 100}, got.Usage)

	assert.Equal(t, 250, model.opts.MaxTokens)
	assert.True(t, model.opts.JSONMode)
	require.Len(t, model.msgs, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.msgs[0].Role)
}

func TestLLMCompleter_Errors(t *testing.T) {
	_, err := NewLLMCompleter(&recordingModel{err: errors.New("rate limited")}).Complete(t.Context(), Request{Prompt: "x"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestLLMCompleter_DrivesAdapter(t *testing.T) {
	model := &recordingModel{reply: `Sure! {"title": "Users per day", "description": "Daily signups"}`}
	a := NewAdapter(NewLLMCompleter(model), types.CompletionConfig{MaxTokens: 100})

	got, err := a.Suggest(t.Context(), "data", []string{"users"}, "select date(created), count(*) from users group by 1")
	require.NoError(t, err)
	assert.Equal(t, "users-per-day", got.URL)
	assert.Equal(t, 100, model.opts.MaxTokens)
	assert.Empty(t, got.Usage)
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(types.CompletionConfig{}, " ")
	assert.ErrorIs(t, err, types.ErrUnavailable)

	c, err := NewOpenAI(types.CompletionConfig{BaseURL: "http://127.0.0.1:1/v1"}, "sk-test")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
