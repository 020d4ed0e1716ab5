package pillar

import (
	"fmt"

	"github.com/sells-group/dqi-engine/internal/model"
)

const (
	cashFlowBaseline = 75
	cashFlowFloor    = 55
	cashFlowCeiling  = 95
)

// CashFlow scores the realized yield against the market cap rate.
type CashFlow struct{}

func (CashFlow) Name() string { return NameCashFlow }
func (CashFlow) Weight() int  { return 15 }

// Compute implements Calculator. The score stays within [55, 95] whatever
// the adjustments.
func (cf CashFlow) Compute(p model.PropertyInput, mc model.MarketContext) model.Metric {
	c := newCard(cashFlowBaseline)
	c.annotateMarket(p, mc)

	noi, _ := effectiveNOI(p, mc)
	realized := noi / p.PropertyValue
	spread := (realized - mc.CapRate) * 10_000

	c.detail("Realized cap rate %.2f%% vs market %.2f%%", realized*100, mc.CapRate*100)
	c.detail("Spread %+.0f bps", spread)

	switch {
	case spread > 50:
		c.bonus(12, fmt.Sprintf("Yield %+.0f bps above market", spread))
	case spread > 25:
		c.bonus(6, fmt.Sprintf("Yield %+.0f bps above market", spread))
		c.missed(6, "Grow NOI to a yield 50 bps above market")
	case spread < -25:
		c.penalty(8, fmt.Sprintf("Yield %.0f bps below market", -spread),
			"Grow NOI or renegotiate price to reach market yield")
	default:
		c.missed(6, "Grow NOI to a yield 25 bps above market")
	}

	switch p.PropertyType {
	case model.PropertyIndustrial, model.PropertyMultifamily:
		c.bonus(5, fmt.Sprintf("%s sector cash-flow tailwinds", p.PropertyType))
	case model.PropertyOffice, model.PropertyRetail:
		c.penalty(5, fmt.Sprintf("%s sector cash-flow headwinds", p.PropertyType),
			"Lock in long-term leases to offset sector headwinds")
	}

	score := clamp(c.raw(), cashFlowFloor, cashFlowCeiling)
	return c.metric(cf.Name(), cf.Weight(), score,
		"Realized yield relative to market cap rate and sector cycle")
}
