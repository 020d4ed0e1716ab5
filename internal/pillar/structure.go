package pillar

import (
	"github.com/sells-group/dqi-engine/internal/model"
)

const (
	structureBaseline = 88
	complexityPenalty = 15
)

// IsComplex reports whether a deal is treated as structurally complex. An
// explicit flag wins; otherwise Mixed-use assets and $50M+ deals are assumed
// complex.
func IsComplex(p model.PropertyInput) (complexity, assumed bool) {
	if p.ComplexStructure != nil {
		return *p.ComplexStructure, false
	}
	return p.PropertyType == model.PropertyMixed || SizeTier(p.PropertyValue) == 3, true
}

// Structure scores ownership and legal complexity.
type Structure struct{}

func (Structure) Name() string { return NameStructure }
func (Structure) Weight() int  { return 10 }

// Compute implements Calculator.
func (s Structure) Compute(p model.PropertyInput, _ model.MarketContext) model.Metric {
	c := newCard(structureBaseline)
	complexity, assumed := IsComplex(p)

	switch {
	case complexity && assumed:
		c.detail("Complex structure assumed for %s deal of this size", p.PropertyType)
	case complexity:
		c.detail("Complex ownership structure reported")
	case assumed:
		c.detail("Simple structure assumed; no legal structure data")
	default:
		c.detail("Simple ownership structure reported")
	}

	if complexity {
		c.penalty(complexityPenalty, "Layered ownership or legal structure",
			"Simplify the ownership structure or document it for lenders")
	}

	return c.metric(s.Name(), s.Weight(), c.raw(), "Ownership and legal structure complexity")
}
