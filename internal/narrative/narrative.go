// Package narrative produces the prose commentary attached to an analysis.
// The collaborator is optional; WithFallback guarantees a sentence is always
// returned.
package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/model"
)

// DefaultTimeout bounds a narrative request.
const DefaultTimeout = 5 * time.Second

// Summarizer turns a computed score into prose.
type Summarizer interface {
	Summarize(ctx context.Context, p model.PropertyInput, metrics []model.Metric, overall int) (string, error)
}

// Template returns the deterministic fallback narrative.
func Template(p model.PropertyInput, metrics []model.Metric, overall int, rating model.Rating) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s scores %d/100 (%s) on the Deal Quality Index.", p.DisplayName(), overall, rating)

	if best, worst, ok := extremes(metrics); ok {
		fmt.Fprintf(&sb, " Strongest pillar: %s (%d); weakest: %s (%d).",
			best.Name, best.Score, worst.Name, worst.Score)
	}
	for _, m := range metrics {
		if m.HardFail != nil {
			fmt.Fprintf(&sb, " Safeguard triggered: %s.", m.HardFail.Condition)
			break
		}
	}
	return sb.String()
}

func extremes(metrics []model.Metric) (best, worst model.Metric, ok bool) {
	if len(metrics) == 0 {
		return best, worst, false
	}
	best, worst = metrics[0], metrics[0]
	for _, m := range metrics[1:] {
		if m.Score > best.Score {
			best = m
		}
		if m.Score < worst.Score {
			worst = m
		}
	}
	return best, worst, true
}

type result struct {
	text string
	err  error
}

// WithFallback asks s for a narrative, bounded by timeout (DefaultTimeout
// when zero). A nil summarizer, an error, a timeout or empty text all yield
// the templated narrative. The numeric analysis never waits past timeout,
// even if s ignores ctx.
func WithFallback(
	ctx context.Context,
	s Summarizer,
	timeout time.Duration,
	p model.PropertyInput,
	metrics []model.Metric,
	overall int,
	rating model.Rating,
) (string, model.NarrativeSource) {
	fallback := func(reason string, cause error) (string, model.NarrativeSource) {
		fields := []zap.Field{
			zap.String("property_id", p.PropertyID),
			zap.String("reason", reason),
			zap.Error(model.ErrNarrativeUnavailable),
		}
		if cause != nil {
			fields = append(fields, zap.NamedError("cause", cause))
		}
		zap.L().Warn("narrative: using template", fields...)
		return Template(p, metrics, overall, rating), model.NarrativeTemplate
	}

	if s == nil {
		return Template(p, metrics, overall, rating), model.NarrativeTemplate
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		text, err := s.Summarize(ctx, p, metrics, overall)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return fallback("timeout", ctx.Err())
	case r := <-done:
		switch {
		case r.err != nil:
			return fallback("error", r.err)
		case strings.TrimSpace(r.text) == "":
			return fallback("empty", nil)
		}
		return strings.TrimSpace(r.text), model.NarrativeCollaborator
	}
}
