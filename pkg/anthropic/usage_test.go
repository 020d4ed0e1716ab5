package anthropic

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage TokenUsage
		want  float64
	}{
		{"haiku", "claude-haiku-4-5-20251001", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 4.80},
		{"sonnet", "claude-sonnet-4-5-20250929", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 18.00},
		{"small prompt", "claude-haiku-4-5-20251001", TokenUsage{InputTokens: 500_000, OutputTokens: 100_000}, 0.80},
		{"unknown model", "unknown-model", TokenUsage{InputTokens: 1_000_000}, 0},
		{"zero tokens", "claude-haiku-4-5-20251001", TokenUsage{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.usage.EstimateCost(tt.model), 0.001)
		})
	}
}

func TestMeter_Concurrent(t *testing.T) {
	m := &Meter{}
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record("claude-haiku-4-5-20251001", TokenUsage{InputTokens: 1000, OutputTokens: 200})
		}()
	}
	wg.Wait()

	got := m.Totals()
	assert.Equal(t, 50, got.Calls)
	assert.Equal(t, int64(50_000), got.InputTokens)
	assert.Equal(t, int64(10_000), got.OutputTokens)
	assert.InDelta(t, 50*(0.0008+0.0008), got.CostUSD, 1e-9)
}

func TestMeter_Nil(t *testing.T) {
	var m *Meter
	assert.NotPanics(t, func() { m.Record("unknown-model", TokenUsage{InputTokens: 5}) })
	assert.Equal(t, UsageTotals{}, m.Totals())
}
