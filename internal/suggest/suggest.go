// Package suggest asks a text-completion capability for a title and
// description of a SQL query and parses the structured answer out of
// loosely formatted text.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/internal/slugs"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

const promptTemplate = `
Suggest a title and description for this new SQL query.

The database is called "%s" and it contains tables: %s.

The SQL query is: %s

The title should be in "Sentence case". The description should be quite short.

Return the suggested title and description as JSON:
` + "```json" + `
{"title": "Suggested title", "description": "Suggested description"}
` + "```" + `
`

// Suggestion is a candidate title, description and slug for a query.
type Suggestion struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	Usage       map[string]any `json:"usage"`
	Duration    int64          `json:"duration"` // Milliseconds.
	Prompt      string         `json:"prompt"`
}

// Adapter turns a Completer into a metadata suggester. It holds no state
// between calls.
type Adapter struct {
	completer Completer
	maxTokens int
	timeout   time.Duration
}

// NewAdapter returns an adapter over c. Zero maxTokens and timeout take the
// defaults from pkg/types.
func NewAdapter(c Completer, cfg types.CompletionConfig) *Adapter {
	cfg = cfg.WithDefaults()
	return &Adapter{completer: c, maxTokens: cfg.MaxTokens, timeout: cfg.Timeout}
}

// Prompt renders the suggestion prompt. The SQL is embedded verbatim.
func Prompt(database string, tableNames []string, sql string) string {
	return fmt.Sprintf(promptTemplate, database, strings.Join(tableNames, " "), sql)
}

// Suggest requests a title and description for sql. It returns
// ErrNoStructuredOutput when the completion carries no usable JSON object.
func (a *Adapter) Suggest(ctx context.Context, database string, tableNames []string, sql string) (*Suggestion, error) {
	if a == nil || a.completer == nil {
		return nil, fmt.Errorf("suggest: %w", types.ErrUnavailable)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prompt := Prompt(database, tableNames, sql)
	completion, err := a.completer.Complete(ctx, Request{Prompt: prompt, MaxTokens: a.maxTokens, JSONMode: true})
	if err != nil {
		return nil, err
	}

	obj, err := ExtractJSON(completion.Text)
	if err != nil {
		logging.Logger().Warn("suggest: unparseable completion", "database", database, "length", len(completion.Text))
		return nil, err
	}
	title, ok := obj["title"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing title", types.ErrNoStructuredOutput)
	}
	description, _ := obj["description"].(string)

	usage := completion.Usage
	if usage == nil {
		usage = map[string]any{}
	}
	return &Suggestion{
		Title:       title,
		Description: description,
		URL:         slugs.Normalize(title),
		Usage:       usage,
		Duration:    completion.Duration.Milliseconds(),
		Prompt:      prompt,
	}, nil
}

// ExtractJSON parses the text between the first '{' and the last '}' as a
// JSON object. Anything before or after is ignored.
func ExtractJSON(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, types.ErrNoStructuredOutput
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNoStructuredOutput, err)
	}
	if obj == nil {
		return nil, types.ErrNoStructuredOutput
	}
	return obj, nil
}
