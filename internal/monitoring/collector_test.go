package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dqi-engine/internal/model"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCollector(m *Metrics) (*Collector, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCollector(m, 2*time.Hour)
	c.now = clk.now
	return c, clk
}

func analysis(score int, rating model.Rating, hardFail, templated, degraded bool) *model.DQIAnalysis {
	a := &model.DQIAnalysis{
		OverallScore:    score,
		Rating:          rating,
		NarrativeSource: model.NarrativeCollaborator,
		Metrics: []model.Metric{
			{Name: "Leverage"},
			{Name: "Cash-Flow Quality"},
		},
	}
	if hardFail {
		a.Metrics[0].HardFail = &model.HardFail{Pillar: "Leverage", Condition: "stressed"}
	}
	if templated {
		a.NarrativeSource = model.NarrativeTemplate
	}
	a.Market.CapRateFallback = degraded
	return a
}

func TestCollector_Snapshot(t *testing.T) {
	c, _ := newTestCollector(nil)

	c.ObserveAnalysis(analysis(74, model.RatingFair, false, false, false), 20*time.Millisecond)
	c.ObserveAnalysis(analysis(59, model.RatingPoor, true, true, false), 40*time.Millisecond)
	c.ObserveAnalysis(analysis(82, model.RatingGood, false, true, true), 30*time.Millisecond)
	c.ObserveAnalysis(analysis(65, model.RatingBelowAverage, false, false, false), 10*time.Millisecond)
	c.ObserveFailure(errors.New("missing required field"))
	c.ObserveAnalysis(nil, time.Second)

	snap := c.Snapshot(60)
	assert.Equal(t, 4, snap.Analyses)
	assert.Equal(t, 1, snap.Failures)
	assert.Equal(t, 1, snap.HardFails)
	assert.Equal(t, 2, snap.NarrativeFallbacks)
	assert.Equal(t, 1, snap.MarketFallbacks)
	assert.InDelta(t, 0.25, snap.HardFailRate, 1e-9)
	assert.InDelta(t, 0.5, snap.NarrativeFallRate, 1e-9)
	assert.InDelta(t, 0.25, snap.MarketFallRate, 1e-9)
	assert.InDelta(t, 70, snap.AvgScore, 1e-9)
	assert.InDelta(t, 25, snap.AvgDurationMs, 1e-9)
	assert.Equal(t, 60, snap.LookbackMins)
}

func TestCollector_Empty(t *testing.T) {
	c, _ := newTestCollector(nil)
	snap := c.Snapshot(60)
	assert.Zero(t, snap.Analyses)
	assert.Zero(t, snap.HardFailRate)
}

func TestCollector_WindowAndRetention(t *testing.T) {
	c, clk := newTestCollector(nil)

	c.ObserveAnalysis(analysis(70, model.RatingFair, true, false, false), 0)
	clk.t = clk.t.Add(90 * time.Minute)
	c.ObserveAnalysis(analysis(80, model.RatingGood, false, false, false), 0)

	assert.Equal(t, 1, c.Snapshot(60).Analyses)
	assert.Equal(t, 2, c.Snapshot(120).Analyses)

	// Past retention the first event is pruned on the next write.
	clk.t = clk.t.Add(45 * time.Minute)
	c.ObserveAnalysis(analysis(80, model.RatingGood, false, false, false), 0)
	c.mu.Lock()
	assert.Len(t, c.events, 2)
	c.mu.Unlock()
	assert.Zero(t, c.Snapshot(1000).HardFails)
}

func TestCollector_ConcurrentUse(t *testing.T) {
	c := NewCollector(NewMetrics(), time.Hour)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ObserveAnalysis(analysis(74, model.RatingFair, false, false, false), time.Millisecond)
			_ = c.Snapshot(60)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, c.Snapshot(60).Analyses)
}

func TestMetrics_MirrorsObservations(t *testing.T) {
	m := NewMetrics()
	c, _ := newTestCollector(m)

	c.ObserveAnalysis(analysis(59, model.RatingPoor, true, true, true), 50*time.Millisecond)
	c.ObserveAnalysis(analysis(74, model.RatingFair, false, false, false), 10*time.Millisecond)
	c.ObserveFailure(errors.New("boom"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Analyses.WithLabelValues("Poor")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Analyses.WithLabelValues("Fair")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HardFails.WithLabelValues("Leverage")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NarrativeFallbacks), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MarketFallbacks), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Failures), 1e-9)

	n, err := testutil.GatherAndCount(m.Registry(), "dqi_analysis_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
