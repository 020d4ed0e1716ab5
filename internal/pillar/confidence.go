package pillar

import (
	"fmt"
	"time"

	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/validate"
)

const (
	confidenceFloor      = 45
	confidenceCeiling    = 95
	warningPenalty       = 5
	appraisalBonus       = 4
	environmentalBonus   = 3
	conditionReportBonus = 3
)

var confidenceBase = map[model.Confidence]int{
	model.ConfidenceHigh:   85,
	model.ConfidenceMedium: 72,
	model.ConfidenceLow:    58,
}

// DataConfidence turns the validator's verdict into a score. Now supplies the
// clock used for staleness checks when Compute runs the validator itself.
type DataConfidence struct {
	Now func() time.Time
}

func (DataConfidence) Name() string { return NameDataConfidence }
func (DataConfidence) Weight() int  { return 10 }

// Compute implements Calculator by validating p first.
func (d DataConfidence) Compute(p model.PropertyInput, mc model.MarketContext) model.Metric {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return d.ComputeValidated(p, validate.Validate(p, mc, now()))
}

// ComputeValidated implements ValidatedCalculator.
func (d DataConfidence) ComputeValidated(p model.PropertyInput, v model.ValidationResult) model.Metric {
	base, ok := confidenceBase[v.Confidence]
	if !ok {
		base = confidenceBase[model.ConfidenceLow]
	}
	c := newCard(base)

	c.detail("Validator confidence %s with %d warning(s)", v.Confidence, len(v.Warnings))
	c.details = append(c.details, v.Warnings...)

	if v.Confidence != model.ConfidenceHigh {
		c.missed(85-base, "Resolve validation warnings to restore HIGH data confidence")
	}
	if n := len(v.Warnings); n > 0 {
		c.penalty(warningPenalty*n, fmt.Sprintf("%d data validation warning(s)", n),
			"Supply missing or corrected figures to clear validation warnings")
	}

	r := p.Reports
	reportBonus(c, r.Appraisal, appraisalBonus, "Third-party appraisal on file", "Commission a third-party appraisal")
	reportBonus(c, r.Environmental, environmentalBonus, "Environmental report on file", "Obtain a Phase I environmental report")
	reportBonus(c, r.PropertyCondition, conditionReportBonus, "Property condition assessment on file", "Order a property condition assessment")

	score := clamp(c.raw(), confidenceFloor, confidenceCeiling)
	return c.metric(d.Name(), d.Weight(), score,
		"Reliability of the input data and supporting third-party reports")
}

func reportBonus(c *card, present bool, points int, driver, action string) {
	if present {
		c.bonus(points, driver)
		return
	}
	c.missed(points, action)
}
