// Package validate sanity-checks a property's declared figures against
// market expectations before scoring.
package validate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sells-group/dqi-engine/internal/model"
)

const (
	// SpreadWarnBps is the cap-rate spread beyond which confidence drops to MEDIUM.
	SpreadWarnBps = 150.0
	// SpreadSevereBps is the cap-rate spread beyond which confidence drops to LOW.
	SpreadSevereBps = 250.0
	// StaleAfter is the age past which property data counts as stale.
	StaleAfter = 90 * 24 * time.Hour
	// MaxWarnings is the warning count at which a validation is no longer valid.
	MaxWarnings = 3
	// MinLocationLen is the shortest location string accepted as meaningful.
	MinLocationLen = 3
)

// PriceRange is an acceptable price-per-square-foot band.
type PriceRange struct {
	Min float64
	Max float64
}

// PriceRanges maps each property type to its acceptable price per square foot.
var PriceRanges = map[model.PropertyType]PriceRange{
	model.PropertyOffice:      {150, 800},
	model.PropertyIndustrial:  {50, 200},
	model.PropertyRetail:      {100, 500},
	model.PropertyMultifamily: {100, 600},
	model.PropertyMixed:       {100, 600},
}

var (
	genericAdjustments = []string{
		"Verify reported NOI against trailing-12 operating statements",
		"Reconcile property value with recent comparable sales",
	}
	severeAdjustments = []string{
		"Commission an independent third-party valuation",
		"Extend due diligence period before committing capital",
	}
)

// checker accumulates warnings; confidence only ever moves down.
type checker struct {
	warnings   []string
	confidence model.Confidence
}

func (c *checker) warn(limit model.Confidence, format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
	c.confidence = c.confidence.Cap(limit)
}

func (c *checker) warnStep(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
	c.confidence = c.confidence.Step()
}

// Validate checks p against mc. It never fails: gaps in optional fields
// become "insufficient data" warnings.
func Validate(p model.PropertyInput, mc model.MarketContext, now time.Time) model.ValidationResult {
	c := &checker{confidence: model.ConfidenceHigh}

	checkCapRate(c, p, mc)
	checkPricePerSqft(c, p)

	if len(strings.TrimSpace(p.Location)) < MinLocationLen {
		c.warn(model.ConfidenceMedium, "Location missing or too vague for market comparison")
	}

	if p.LastUpdated != nil && now.Sub(*p.LastUpdated) > StaleAfter {
		days := int(now.Sub(*p.LastUpdated).Hours() / 24)
		c.warn(model.ConfidenceMedium, "Property data last updated %d days ago", days)
	}

	if mc.Degraded() {
		c.warn(model.ConfidenceMedium, "Market data unavailable; sector defaults used")
	}

	res := model.ValidationResult{
		IsValid:     len(c.warnings) < MaxWarnings,
		Warnings:    c.warnings,
		Adjustments: []string{},
		Confidence:  c.confidence,
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	if len(c.warnings) > 0 {
		res.Adjustments = append(res.Adjustments, genericAdjustments...)
	}
	if c.confidence == model.ConfidenceLow {
		res.Adjustments = append(res.Adjustments, severeAdjustments...)
	}
	return res
}

func checkCapRate(c *checker, p model.PropertyInput, mc model.MarketContext) {
	if !p.HasNOI() || p.PropertyValue <= 0 {
		c.warn(model.ConfidenceMedium, "Insufficient data: net operating income not provided")
		return
	}
	actual := *p.NetOperatingIncome / p.PropertyValue
	spread := math.Abs(actual-mc.CapRate) * 10_000
	switch {
	case spread > SpreadSevereBps:
		c.warn(model.ConfidenceLow, "Cap rate %.2f%% deviates %.0f bps from market %.2f%%",
			actual*100, spread, mc.CapRate*100)
	case spread > SpreadWarnBps:
		c.warn(model.ConfidenceMedium, "Cap rate %.2f%% deviates %.0f bps from market %.2f%%",
			actual*100, spread, mc.CapRate*100)
	}
}

func checkPricePerSqft(c *checker, p model.PropertyInput) {
	if !p.HasSquareFeet() {
		c.warn(model.ConfidenceMedium, "Insufficient data: square footage not provided")
		return
	}
	ppsf := p.PropertyValue / *p.SquareFeet
	r, ok := PriceRanges[p.PropertyType]
	if !ok {
		r = PriceRanges[model.PropertyMixed]
	}
	if ppsf < r.Min || ppsf > r.Max {
		c.warnStep("Price per sq ft $%.0f outside %s range $%.0f-$%.0f",
			ppsf, p.PropertyType, r.Min, r.Max)
	}
}
