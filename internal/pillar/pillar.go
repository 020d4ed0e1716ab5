// Package pillar holds the seven weighted DQI pillar calculators.
//
// Every calculator is a pure function of the property and its market
// context. Scores start from a baseline and move by recorded adjustments;
// drivers and improvements are derived from those same adjustments so the
// explanation always matches the number.
package pillar

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/sells-group/dqi-engine/internal/model"
)

// Pillar names, in aggregation order.
const (
	NameLeverage       = "Leverage & Coverage"
	NameCashFlow       = "Cash-Flow Quality"
	NameLeaseRisk      = "Lease & Tenant Risk"
	NameSponsor        = "Sponsor Quality"
	NameMarket         = "Market Strength"
	NameStructure      = "Structure & Legal Complexity"
	NameDataConfidence = "Data Confidence"
)

// Calculator computes one pillar metric.
type Calculator interface {
	Name() string
	Weight() int
	Compute(p model.PropertyInput, mc model.MarketContext) model.Metric
}

// ValidatedCalculator is a Calculator whose score is a function of the data
// validator's output. Callers that already ran the validator use
// ComputeValidated to avoid running it twice.
type ValidatedCalculator interface {
	Calculator
	ComputeValidated(p model.PropertyInput, v model.ValidationResult) model.Metric
}

// Registry returns the fixed seven-pillar set in aggregation order.
func Registry() []Calculator {
	return []Calculator{
		Leverage{},
		CashFlow{},
		LeaseRisk{},
		Sponsor{},
		Market{},
		Structure{},
		DataConfidence{},
	}
}

// WeightSum totals the weights of calcs.
func WeightSum(calcs []Calculator) int {
	sum := 0
	for _, c := range calcs {
		sum += c.Weight()
	}
	return sum
}

// SizeTier buckets a deal by value: 0 (<$10M), 1 ($10-20M), 2 ($20-50M),
// 3 ($50M+).
func SizeTier(value float64) int {
	switch {
	case value >= 50_000_000:
		return 3
	case value >= 20_000_000:
		return 2
	case value >= 10_000_000:
		return 1
	default:
		return 0
	}
}

// MaxLTV is the leverage ceiling applied by LoanTerms.
const MaxLTV = 0.80

// LoanTerms sizes the acquisition loan. A requested LTV is used as given;
// otherwise LTV starts at 0.75, drops for larger deals and for Office/Retail,
// and rises for Industrial. It never exceeds MaxLTV.
func LoanTerms(p model.PropertyInput) (ltv, loan float64) {
	if p.RequestedLTV != nil && *p.RequestedLTV > 0 {
		ltv = math.Min(*p.RequestedLTV, MaxLTV)
		return ltv, p.PropertyValue * ltv
	}
	ltv = 0.75
	switch SizeTier(p.PropertyValue) {
	case 2:
		ltv -= 0.025
	case 3:
		ltv -= 0.05
	}
	switch p.PropertyType {
	case model.PropertyOffice, model.PropertyRetail:
		ltv -= 0.05
	case model.PropertyIndustrial:
		ltv += 0.05
	}
	ltv = math.Min(math.Round(ltv*10_000)/10_000, MaxLTV)
	return ltv, p.PropertyValue * ltv
}

// effectiveNOI returns the declared NOI or, when absent, NOI implied by the
// market cap rate.
func effectiveNOI(p model.PropertyInput, mc model.MarketContext) (noi float64, derived bool) {
	if p.HasNOI() {
		return *p.NetOperatingIncome, false
	}
	return p.PropertyValue * mc.CapRate, true
}

// adjustment is one signed move away from a pillar's baseline. A zero delta
// records a bonus that was available but not earned.
type adjustment struct {
	delta      int
	driver     string
	action     string
	actionGain int
}

// card accumulates the baseline, adjustments and details for one metric.
type card struct {
	base        int
	adjustments []adjustment
	details     []string
	hardFail    *model.HardFail
}

func newCard(base int) *card {
	return &card{base: base}
}

func (c *card) detail(format string, args ...any) {
	c.details = append(c.details, fmt.Sprintf(format, args...))
}

// bonus records a positive adjustment.
func (c *card) bonus(points int, driver string) {
	c.adjustments = append(c.adjustments, adjustment{delta: points, driver: driver})
}

// penalty records a negative adjustment and the action that would remove it.
func (c *card) penalty(points int, driver, action string) {
	c.adjustments = append(c.adjustments, adjustment{
		delta:      -points,
		driver:     driver,
		action:     action,
		actionGain: points,
	})
}

// missed records a bonus that was not earned.
func (c *card) missed(points int, action string) {
	c.adjustments = append(c.adjustments, adjustment{action: action, actionGain: points})
}

func (c *card) raw() int {
	s := c.base
	for _, a := range c.adjustments {
		s += a.delta
	}
	return s
}

func (c *card) annotateMarket(p model.PropertyInput, mc model.MarketContext) {
	if !p.HasNOI() {
		c.detail("NOI not provided; derived from %.2f%% market cap rate", mc.CapRate*100)
	}
	if mc.CapRateFallback {
		c.detail("Market cap rate unavailable; sector default %.2f%% used", mc.CapRate*100)
	}
	if mc.LendingRateFallback {
		c.detail("Lending rate unavailable; default %.2f%% used", mc.LendingRate*100)
	}
}

func (c *card) metric(name string, weight int, score int, description string) model.Metric {
	return model.Metric{
		Name:         name,
		Score:        clamp(score, 0, 100),
		Weight:       weight,
		Description:  description,
		Details:      nonNil(c.details),
		Drivers:      c.drivers(),
		Improvements: c.improvements(),
		SourceRef:    "dqi/" + sourceSlug(name),
		HardFail:     c.hardFail,
	}
}

// drivers lists signed adjustments, largest effect first.
func (c *card) drivers() []string {
	moved := make([]adjustment, 0, len(c.adjustments))
	for _, a := range c.adjustments {
		if a.delta != 0 {
			moved = append(moved, a)
		}
	}
	slices.SortStableFunc(moved, func(a, b adjustment) int {
		return cmp.Compare(abs(b.delta), abs(a.delta))
	})
	out := make([]string, 0, len(moved))
	for _, a := range moved {
		out = append(out, fmt.Sprintf("%+d %s", a.delta, a.driver))
	}
	return out
}

// improvements lists actions by the points they would add, largest first.
func (c *card) improvements() []model.Improvement {
	var acts []adjustment
	for _, a := range c.adjustments {
		if a.action != "" && a.actionGain > 0 {
			acts = append(acts, a)
		}
	}
	slices.SortStableFunc(acts, func(a, b adjustment) int {
		return cmp.Compare(b.actionGain, a.actionGain)
	})
	out := make([]model.Improvement, 0, len(acts))
	for _, a := range acts {
		out = append(out, model.Improvement{Action: a.action, Points: a.actionGain})
	}
	return out
}

func sourceSlug(name string) string {
	switch name {
	case NameLeverage:
		return "leverage"
	case NameCashFlow:
		return "cash-flow"
	case NameLeaseRisk:
		return "lease-risk"
	case NameSponsor:
		return "sponsor"
	case NameMarket:
		return "market"
	case NameStructure:
		return "structure"
	case NameDataConfidence:
		return "data-confidence"
	}
	return "unknown"
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func pct(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
