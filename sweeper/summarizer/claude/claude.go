// Package claude implements the sweeper's Summarizer on the Anthropic
// API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/becomeliminal/strata-go-sdk/core"
	"github.com/becomeliminal/strata-go-sdk/sweeper"
)

const systemPrompt = `You condense a batch of user interactions with a brand-strategy agent into a compact strategic checkpoint.

Respond with ONLY a JSON object, no markdown fences, of the form:
{"summary": "<2-3 sentence summary of what happened and what it means strategically>", "key_takeaways": ["<short actionable takeaway>", ...]}

Keep key_takeaways to at most 5 entries.`

// Summarizer condenses interaction events via Claude.
type Summarizer struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// Option configures the summarizer.
type Option func(*Summarizer)

// WithModel overrides the Claude model.
func WithModel(model string) Option {
	return func(s *Summarizer) {
		s.model = model
	}
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(maxTokens int64) Option {
	return func(s *Summarizer) {
		s.maxTokens = maxTokens
	}
}

// New creates a Claude-backed summarizer.
func New(client *anthropic.Client, opts ...Option) *Summarizer {
	s := &Summarizer{
		client:    client,
		model:     "claude-sonnet-4-20250514",
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize condenses the event batch. Fails loudly: an API error, an
// unparsable response, or an empty summary all return errors so the
// compaction aborts with the ledger untouched.
func (s *Summarizer) Summarize(ctx context.Context, events []core.Event) (*sweeper.Summary, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to summarize")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(formatEvents(events))),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return parseSummary(text)
}

// formatEvents renders the batch as numbered interaction lines.
func formatEvents(events []core.Event) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Interactions to condense (%d, oldest first):\n", len(events)))
	for i, e := range events {
		p, ok := e.Payload.(core.UserInteractionPayload)
		if !ok {
			continue
		}
		line := p.Content
		if p.Kind == "search" && p.Query != "" {
			line = fmt.Sprintf("searched for %q", p.Query)
		}
		b.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, p.Kind, line))
	}
	return b.String()
}

// parseSummary decodes the model's JSON reply, tolerating stray
// markdown fences.
func parseSummary(text string) (*sweeper.Summary, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed struct {
		Summary      string   `json:"summary"`
		KeyTakeaways []string `json:"key_takeaways"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("unparsable summarizer response: %w", err)
	}
	if parsed.Summary == "" {
		return nil, fmt.Errorf("summarizer returned empty summary")
	}

	return &sweeper.Summary{
		Summary:      parsed.Summary,
		KeyTakeaways: parsed.KeyTakeaways,
	}, nil
}

var _ sweeper.Summarizer = (*Summarizer)(nil)
