package model

import "time"

// Improvement is a suggested action and the points it would add to a pillar.
type Improvement struct {
	Action string `json:"action"`
	Points int    `json:"points"`
}

// HardFail records a safeguard breach raised by a pillar.
type HardFail struct {
	Pillar    string `json:"pillar"`
	Condition string `json:"condition"`
}

// Metric is the output of one pillar calculator.
type Metric struct {
	Name         string        `json:"name"`
	Score        int           `json:"score"`
	Weight       int           `json:"weight"`
	Description  string        `json:"description"`
	Details      []string      `json:"details"`
	Drivers      []string      `json:"drivers"`
	Improvements []Improvement `json:"improvements"`
	SourceRef    string        `json:"sourceRef"`
	ComputedAt   time.Time     `json:"computedAt"`
	HardFail     *HardFail     `json:"hardFail,omitempty"`
}

// Confidence grades how far the input data can be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// Cap returns the lower of c and limit. Confidence never improves through Cap.
func (c Confidence) Cap(limit Confidence) Confidence {
	if limit.rank() < c.rank() {
		return limit
	}
	return c
}

// Step returns the next lower confidence level (LOW stays LOW).
func (c Confidence) Step() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AtLeast reports whether c is at or above other.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.rank() >= other.rank()
}

// ValidationResult is the output of the data validator.
type ValidationResult struct {
	IsValid     bool       `json:"isValid"`
	Warnings    []string   `json:"warnings"`
	Adjustments []string   `json:"adjustments"`
	Confidence  Confidence `json:"confidence"`
}
