// Package aggregate folds the seven pillar metrics into the composite DQI.
package aggregate

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/model"
)

const (
	// PillarCount is the fixed number of pillars in a composite.
	PillarCount = 7
	// TotalWeight is the required sum of pillar weights.
	TotalWeight = 100
	// DefaultBenchmark is the peer benchmark score.
	DefaultBenchmark = 71
	// HardFailCap is the highest composite score a hard-failed deal can receive.
	HardFailCap = 59
	// MaxDrivers and MaxImprovements bound the composite's explanation lists.
	MaxDrivers      = 4
	MaxImprovements = 3
)

// Composite is the aggregated result of one set of pillar metrics.
type Composite struct {
	OverallScore   int
	Uncapped       int
	Rating         model.Rating
	Band           string
	PeerRank       string
	BenchmarkScore int
	BenchmarkDelta int
	HardFails      []string
	Drivers        []string
	Improvements   []model.Improvement
}

// Aggregator combines metrics against a peer benchmark.
type Aggregator struct {
	Benchmark int
}

// Aggregate combines metrics with DefaultBenchmark.
func Aggregate(metrics []model.Metric) (Composite, error) {
	return Aggregator{Benchmark: DefaultBenchmark}.Aggregate(metrics)
}

// Aggregate computes the weighted composite. Any pillar hard fail caps the
// score at HardFailCap. It returns an error unless exactly PillarCount
// metrics with weights summing to TotalWeight are supplied.
func (a Aggregator) Aggregate(metrics []model.Metric) (Composite, error) {
	if len(metrics) != PillarCount {
		return Composite{}, eris.Errorf("aggregate: expected %d pillars, got %d", PillarCount, len(metrics))
	}

	benchmark := a.Benchmark
	if benchmark <= 0 {
		benchmark = DefaultBenchmark
	}

	weights, weighted := 0, 0
	for _, m := range metrics {
		if m.Score < 0 || m.Score > 100 {
			return Composite{}, eris.Errorf("aggregate: pillar %q score %d out of range", m.Name, m.Score)
		}
		weights += m.Weight
		weighted += m.Score * m.Weight
	}
	if weights != TotalWeight {
		return Composite{}, eris.Errorf("aggregate: pillar weights sum to %d, want %d", weights, TotalWeight)
	}

	c := Composite{
		Uncapped:       int(math.Round(float64(weighted) / TotalWeight)),
		BenchmarkScore: benchmark,
		HardFails:      []string{},
		Drivers:        []string{},
		Improvements:   []model.Improvement{},
	}
	c.OverallScore = c.Uncapped

	for _, m := range metrics {
		if m.HardFail != nil {
			c.HardFails = append(c.HardFails, fmt.Sprintf("%s: %s", m.HardFail.Pillar, m.HardFail.Condition))
		}
		for _, d := range m.Drivers {
			if len(c.Drivers) < MaxDrivers {
				c.Drivers = append(c.Drivers, d)
			}
		}
		for _, imp := range m.Improvements {
			if len(c.Improvements) < MaxImprovements {
				c.Improvements = append(c.Improvements, imp)
			}
		}
	}
	if len(c.HardFails) > 0 {
		c.OverallScore = min(c.OverallScore, HardFailCap)
	}

	c.Rating = RatingFor(c.OverallScore)
	c.Band = BandFor(c.OverallScore)
	c.PeerRank = PeerRankFor(c.OverallScore, benchmark)
	c.BenchmarkDelta = c.OverallScore - benchmark
	return c, nil
}

// RatingFor maps a score to its rating label.
func RatingFor(score int) model.Rating {
	switch {
	case score >= 90:
		return model.RatingExcellent
	case score >= 80:
		return model.RatingGood
	case score >= 70:
		return model.RatingFair
	case score >= 60:
		return model.RatingBelowAverage
	default:
		return model.RatingPoor
	}
}

// BandFor returns the decile band, e.g. "80-89". Scores of 90 and above
// share the "90-100" band.
func BandFor(score int) string {
	score = max(0, min(score, 100))
	if score >= 90 {
		return "90-100"
	}
	lo := score / 10 * 10
	return fmt.Sprintf("%d-%d", lo, lo+9)
}

// PeerRankFor places a score against the peer distribution centered on
// benchmark. With DefaultBenchmark the cut lines fall at 80, 70 and 60.
func PeerRankFor(score, benchmark int) string {
	delta := score - benchmark
	switch {
	case delta > 9:
		return "top 20%"
	case delta >= 0:
		return "top 40%"
	case delta >= -10:
		return "median"
	default:
		return "below median"
	}
}
