package pillar

import (
	"fmt"

	"github.com/sells-group/dqi-engine/internal/model"
)

// Stress scenario and safeguard thresholds for the leverage pillar.
const (
	StressNOIFactor    = 0.75
	StressRateShockBps = 150
	HardFailStressDSCR = 1.10
	HardFailScoreCap   = 45
	stressComfortDSCR  = 1.20
	leverageBaseline   = 70
)

// Leverage scores loan-to-value and debt service coverage, base and stressed.
type Leverage struct{}

func (Leverage) Name() string { return NameLeverage }
func (Leverage) Weight() int  { return 20 }

// Compute implements Calculator. A stressed DSCR below HardFailStressDSCR caps
// the score at HardFailScoreCap and raises a hard fail.
func (l Leverage) Compute(p model.PropertyInput, mc model.MarketContext) model.Metric {
	c := newCard(leverageBaseline)
	c.annotateMarket(p, mc)

	noi, _ := effectiveNOI(p, mc)
	ltv, loan := LoanTerms(p)
	dscr := coverage(noi, loan, mc.LendingRate)
	stressRate := mc.LendingRate + StressRateShockBps/10_000.0
	stressed := coverage(noi*StressNOIFactor, loan, stressRate)

	c.detail("LTV %s on loan of $%.0f", pct(ltv), loan)
	c.detail("Lending rate %.2f%%; annual debt service $%.0f", mc.LendingRate*100, loan*mc.LendingRate)
	c.detail("DSCR %.2fx", dscr)
	c.detail("Stressed DSCR %.2fx (NOI -25%%, rate +%d bps)", stressed, StressRateShockBps)

	switch {
	case ltv < 0.60:
		c.bonus(10, fmt.Sprintf("Conservative leverage at %s LTV", pct(ltv)))
	case ltv < 0.65:
		c.bonus(5, fmt.Sprintf("Moderate leverage at %s LTV", pct(ltv)))
		c.missed(5, "Reduce LTV below 60% with additional equity")
	case ltv > 0.75:
		c.penalty(5, fmt.Sprintf("High leverage at %s LTV", pct(ltv)), "Reduce LTV to 75% or below")
	default:
		c.missed(5, "Reduce LTV below 65% with additional equity")
	}

	switch {
	case dscr > 1.40:
		c.bonus(10, fmt.Sprintf("Strong debt coverage at %.2fx DSCR", dscr))
	case dscr > 1.25:
		c.bonus(5, fmt.Sprintf("Adequate debt coverage at %.2fx DSCR", dscr))
		c.missed(5, "Lift DSCR above 1.40x through NOI growth or lower leverage")
	case dscr < 1.00:
		c.penalty(20, fmt.Sprintf("NOI does not cover debt service (%.2fx DSCR)", dscr),
			"Restructure debt so NOI covers debt service")
	case dscr < 1.20:
		c.penalty(10, fmt.Sprintf("Thin debt coverage at %.2fx DSCR", dscr),
			"Lift DSCR above 1.20x through NOI growth or lower leverage")
	}

	if stressed >= stressComfortDSCR {
		c.bonus(5, fmt.Sprintf("Coverage holds under stress at %.2fx", stressed))
	} else {
		c.missed(5, "Secure an interest rate cap to hold stressed DSCR above 1.20x")
	}

	score := c.raw()
	if stressed < HardFailStressDSCR {
		condition := fmt.Sprintf("Stressed DSCR %.2fx below %.2fx minimum", stressed, HardFailStressDSCR)
		c.hardFail = &model.HardFail{Pillar: NameLeverage, Condition: condition}
		c.detail("Hard fail: %s; score capped at %d", condition, HardFailScoreCap)
		score = min(score, HardFailScoreCap)
	}

	return c.metric(l.Name(), l.Weight(), score,
		"Loan-to-value and debt service coverage under base and stressed conditions")
}

func coverage(noi, loan, rate float64) float64 {
	ds := loan * rate
	if ds <= 0 {
		return 0
	}
	return noi / ds
}
