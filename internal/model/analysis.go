package model

import "time"

// Rating is the categorical label derived from the overall score.
type Rating string

const (
	RatingExcellent    Rating = "Excellent"
	RatingGood         Rating = "Good"
	RatingFair         Rating = "Fair"
	RatingBelowAverage Rating = "Below Average"
	RatingPoor         Rating = "Poor"
)

// NarrativeSource identifies where the runeAnalysis text came from.
type NarrativeSource string

const (
	NarrativeCollaborator NarrativeSource = "collaborator"
	NarrativeTemplate     NarrativeSource = "template"
)

// Safeguards lists the hard-fail overrides and data warnings behind a score.
type Safeguards struct {
	HardFails []string `json:"hardFails"`
	Warnings  []string `json:"warnings"`
}

// Governance carries confidence and peer-comparison context for a score.
type Governance struct {
	ConfidenceLevel Confidence       `json:"confidenceLevel"`
	PeerRank        string           `json:"peerRank"`
	BenchmarkScore  int              `json:"benchmarkScore"`
	BenchmarkDelta  int              `json:"benchmarkDelta"`
	Validation      ValidationResult `json:"validation"`
}

// DQIAnalysis is the final result of one Deal Quality Index computation.
// It is built once by the engine and must be treated as read-only afterwards.
type DQIAnalysis struct {
	ID              string          `json:"id,omitempty"`
	PropertyID      string          `json:"propertyId"`
	PropertyName    string          `json:"propertyName"`
	OverallScore    int             `json:"overallScore"`
	Rating          Rating          `json:"rating"`
	Band            string          `json:"band"`
	Drivers         []string        `json:"drivers"`
	Improvements    []Improvement   `json:"improvements"`
	Metrics         []Metric        `json:"metrics"`
	Safeguards      Safeguards      `json:"safeguards"`
	Governance      Governance      `json:"governance"`
	Market          MarketContext   `json:"market"`
	RuneAnalysis    string          `json:"runeAnalysis"`
	NarrativeSource NarrativeSource `json:"narrativeSource"`
	Timestamp       time.Time       `json:"timestamp"`
}

// HardFailed reports whether any safeguard capped the score.
func (a *DQIAnalysis) HardFailed() bool {
	return len(a.Safeguards.HardFails) > 0
}

// Metric returns the named pillar metric, if present.
func (a *DQIAnalysis) Metric(name string) (Metric, bool) {
	for _, m := range a.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}
