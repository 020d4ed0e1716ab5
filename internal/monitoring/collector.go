package monitoring

import (
	"sync"
	"time"

	"github.com/sells-group/dqi-engine/internal/model"
)

// MetricsSnapshot holds a point-in-time view of scoring health.
type MetricsSnapshot struct {
	Analyses           int     `json:"analyses"`
	Failures           int     `json:"failures"`
	HardFails          int     `json:"hard_fails"`
	NarrativeFallbacks int     `json:"narrative_fallbacks"`
	MarketFallbacks    int     `json:"market_fallbacks"`
	HardFailRate       float64 `json:"hard_fail_rate"`
	NarrativeFallRate  float64 `json:"narrative_fallback_rate"`
	MarketFallRate     float64 `json:"market_fallback_rate"`
	AvgScore           float64 `json:"avg_score"`
	AvgDurationMs      float64 `json:"avg_duration_ms"`

	LookbackMins int       `json:"lookback_mins"`
	CollectedAt  time.Time `json:"collected_at"`
}

type event struct {
	at                time.Time
	failed            bool
	rating            string
	score             int
	hardFailPillars   []string
	narrativeFallback bool
	marketFallback    bool
	duration          time.Duration
}

// Collector records analysis outcomes in memory and summarizes a
// trailing window. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	events  []event
	metrics *Metrics
	retain  time.Duration
	now     func() time.Time
}

// NewCollector creates a collector that keeps events for retain and
// mirrors them into metrics when it is non-nil.
func NewCollector(metrics *Metrics, retain time.Duration) *Collector {
	if retain <= 0 {
		retain = 24 * time.Hour
	}
	return &Collector{
		metrics: metrics,
		retain:  retain,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ObserveAnalysis records a completed analysis and how long it took.
func (c *Collector) ObserveAnalysis(a *model.DQIAnalysis, d time.Duration) {
	if a == nil {
		return
	}
	e := event{
		rating:            string(a.Rating),
		score:             a.OverallScore,
		narrativeFallback: a.NarrativeSource == model.NarrativeTemplate,
		marketFallback:    a.Market.Degraded(),
		duration:          d,
	}
	for _, m := range a.Metrics {
		if m.HardFail != nil {
			e.hardFailPillars = append(e.hardFailPillars, m.Name)
		}
	}
	c.record(e)
}

// ObserveFailure records an analysis that returned an error.
func (c *Collector) ObserveFailure(error) {
	c.record(event{failed: true})
}

func (c *Collector) record(e event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.at = c.now()
	c.events = append(c.events, e)
	c.metrics.observe(e)

	cutoff := e.at.Add(-c.retain)
	drop := 0
	for drop < len(c.events) && c.events[drop].at.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		c.events = append(c.events[:0], c.events[drop:]...)
	}
}

// Snapshot summarizes the events recorded in the last lookbackMins minutes.
func (c *Collector) Snapshot(lookbackMins int) *MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	snap := &MetricsSnapshot{LookbackMins: lookbackMins, CollectedAt: now}
	cutoff := now.Add(-time.Duration(lookbackMins) * time.Minute)

	var totalScore int
	var totalDuration time.Duration
	for _, e := range c.events {
		if e.at.Before(cutoff) {
			continue
		}
		if e.failed {
			snap.Failures++
			continue
		}
		snap.Analyses++
		totalScore += e.score
		totalDuration += e.duration
		if len(e.hardFailPillars) > 0 {
			snap.HardFails++
		}
		if e.narrativeFallback {
			snap.NarrativeFallbacks++
		}
		if e.marketFallback {
			snap.MarketFallbacks++
		}
	}

	if snap.Analyses > 0 {
		n := float64(snap.Analyses)
		snap.HardFailRate = float64(snap.HardFails) / n
		snap.NarrativeFallRate = float64(snap.NarrativeFallbacks) / n
		snap.MarketFallRate = float64(snap.MarketFallbacks) / n
		snap.AvgScore = float64(totalScore) / n
		snap.AvgDurationMs = float64(totalDuration.Milliseconds()) / n
	}
	return snap
}
