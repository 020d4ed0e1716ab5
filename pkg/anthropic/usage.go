package anthropic

import (
	"sync"

	"go.uber.org/zap"
)

// TokenUsage is the token count of one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Per-million-token prices in USD: {input, output}.
var modelPricing = map[string][2]float64{
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
}

// EstimateCost returns the USD cost of u on model, or 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return (float64(u.InputTokens)/1e6)*pricing[0] + (float64(u.OutputTokens)/1e6)*pricing[1]
}

// UsageTotals summarizes every call a Meter has seen.
type UsageTotals struct {
	Calls        int
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// Meter accumulates token usage across calls. It is safe for concurrent use;
// a nil Meter ignores records.
type Meter struct {
	mu     sync.Mutex
	totals UsageTotals
}

// Record adds one call and logs it at debug.
func (m *Meter) Record(model string, u TokenUsage) {
	cost := u.EstimateCost(model)
	zap.L().Debug("anthropic: usage",
		zap.String("model", model),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", cost),
	)
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals.Calls++
	m.totals.InputTokens += u.InputTokens
	m.totals.OutputTokens += u.OutputTokens
	m.totals.CostUSD += cost
}

// Totals returns a copy of the running totals.
func (m *Meter) Totals() UsageTotals {
	if m == nil {
		return UsageTotals{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals
}
