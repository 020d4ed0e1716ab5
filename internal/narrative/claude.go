package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/resilience"
	"github.com/sells-group/dqi-engine/pkg/anthropic"
)

const systemPrompt = `You are a commercial real-estate credit analyst. Write a concise, factual ` +
	`three-sentence summary of a Deal Quality Index result for an investor. Mention the ` +
	`overall score, the strongest and weakest pillars, and any safeguard that capped the ` +
	`score. Do not invent figures that are not in the input.`

// ClaudeOptions configures ClaudeSummarizer.
type ClaudeOptions struct {
	Model     string
	MaxTokens int64
	Meter     *anthropic.Meter // optional token accounting
}

// ClaudeSummarizer writes narratives with the Anthropic Messages API. Calls
// are guarded by a circuit breaker so a failing API is skipped quickly.
type ClaudeSummarizer struct {
	client  anthropic.Client
	opts    ClaudeOptions
	breaker *resilience.CircuitBreaker
}

// NewClaudeSummarizer creates a ClaudeSummarizer. A nil breaker disables
// circuit breaking.
func NewClaudeSummarizer(client anthropic.Client, opts ClaudeOptions, breaker *resilience.CircuitBreaker) *ClaudeSummarizer {
	if opts.Model == "" {
		opts.Model = "claude-haiku-4-5-20251001"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 300
	}
	return &ClaudeSummarizer{client: client, opts: opts, breaker: breaker}
}

// Summarize implements Summarizer.
func (c *ClaudeSummarizer) Summarize(ctx context.Context, p model.PropertyInput, metrics []model.Metric, overall int) (string, error) {
	req := anthropic.MessageRequest{
		Model:     c.opts.Model,
		MaxTokens: c.opts.MaxTokens,
		System:    systemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: BuildPrompt(p, metrics, overall)}},
	}

	call := func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.client.CreateMessage(ctx, req)
	}
	var (
		resp *anthropic.MessageResponse
		err  error
	)
	if c.breaker != nil {
		resp, err = resilience.ExecuteVal(ctx, c.breaker, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return "", eris.Wrap(err, "narrative: create message")
	}

	c.opts.Meter.Record(c.opts.Model, resp.Usage)
	text := resp.Text()
	if resp.Truncated() {
		text = trimToSentence(text)
	}
	if text == "" {
		return "", eris.New("narrative: empty response")
	}
	return text, nil
}

// trimToSentence drops a trailing partial sentence from text cut off at the
// token limit. Text with no complete sentence is returned unchanged.
func trimToSentence(text string) string {
	if i := strings.LastIndexAny(text, ".!?"); i >= 0 {
		return strings.TrimSpace(text[:i+1])
	}
	return text
}

// BuildPrompt renders the analysis facts the model summarizes.
func BuildPrompt(p model.PropertyInput, metrics []model.Metric, overall int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Property: %s\n", p.DisplayName())
	fmt.Fprintf(&sb, "Type: %s\n", p.PropertyType)
	if p.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", p.Location)
	}
	fmt.Fprintf(&sb, "Value: $%.0f\n", p.PropertyValue)
	fmt.Fprintf(&sb, "Overall DQI: %d/100\n\nPillars:\n", overall)
	for _, m := range metrics {
		fmt.Fprintf(&sb, "- %s (weight %d%%): %d", m.Name, m.Weight, m.Score)
		if len(m.Drivers) > 0 {
			fmt.Fprintf(&sb, "; %s", strings.Join(m.Drivers, "; "))
		}
		if m.HardFail != nil {
			fmt.Fprintf(&sb, "; HARD FAIL: %s", m.HardFail.Condition)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
