package pillar

import (
	"fmt"

	"github.com/sells-group/dqi-engine/internal/market"
	"github.com/sells-group/dqi-engine/internal/model"
)

// MarketFundamentals are the demographic and vacancy proxies for a location.
type MarketFundamentals struct {
	Tier             market.Tier
	PopulationGrowth float64 // percent per year
	EmploymentGrowth float64 // percent per year
	VacancyPct       float64
}

type tierProfile struct {
	baseline   int
	population float64
	employment float64
	vacancyAdj float64
}

var tierProfiles = map[market.Tier]tierProfile{
	market.TierGateway:         {80, 0.4, 1.2, -0.5},
	market.TierStrongSecondary: {72, 1.8, 2.5, 0},
	market.TierEmerging:        {65, 1.5, 2.0, 0.5},
	market.TierOther:           {58, 0.5, 0.8, 1.0},
}

var (
	baseVacancy = map[model.PropertyType]float64{
		model.PropertyOffice:      13,
		model.PropertyIndustrial:  4.5,
		model.PropertyRetail:      6,
		model.PropertyMultifamily: 5.5,
		model.PropertyMixed:       7,
	}
	cyclePremium = map[model.PropertyType]int{
		model.PropertyIndustrial:  6,
		model.PropertyMultifamily: 3,
		model.PropertyRetail:      -3,
		model.PropertyOffice:      -6,
	}
)

// DeriveFundamentals classifies the location and looks up its proxies.
func DeriveFundamentals(p model.PropertyInput) MarketFundamentals {
	tier := market.ClassifyLocation(p.Location)
	tp := tierProfiles[tier]
	vac, ok := baseVacancy[p.PropertyType]
	if !ok {
		vac = baseVacancy[model.PropertyMixed]
	}
	return MarketFundamentals{
		Tier:             tier,
		PopulationGrowth: tp.population,
		EmploymentGrowth: tp.employment,
		VacancyPct:       vac + tp.vacancyAdj,
	}
}

// Market scores location tier, sector cycle and local fundamentals.
type Market struct{}

func (Market) Name() string { return NameMarket }
func (Market) Weight() int  { return 10 }

// Compute implements Calculator.
func (m Market) Compute(p model.PropertyInput, _ model.MarketContext) model.Metric {
	f := DeriveFundamentals(p)
	c := newCard(tierProfiles[f.Tier].baseline)

	c.detail("Location classified as %s market", f.Tier)
	c.detail("Population growth %.1f%%; employment growth %.1f%%", f.PopulationGrowth, f.EmploymentGrowth)
	c.detail("Submarket %s vacancy %.1f%%", p.PropertyType, f.VacancyPct)

	switch adj := cyclePremium[p.PropertyType]; {
	case adj > 0:
		c.bonus(adj, fmt.Sprintf("%s demand cycle is favorable", p.PropertyType))
	case adj < 0:
		c.penalty(-adj, fmt.Sprintf("%s demand cycle is soft", p.PropertyType),
			"Underwrite a longer hold through the sector cycle")
	}

	if f.PopulationGrowth > 1.5 {
		c.bonus(4, fmt.Sprintf("Population growing %.1f%% a year", f.PopulationGrowth))
	}
	if f.EmploymentGrowth > 2.0 {
		c.bonus(3, fmt.Sprintf("Employment growing %.1f%% a year", f.EmploymentGrowth))
	}

	switch {
	case f.VacancyPct < 5:
		c.bonus(5, fmt.Sprintf("Tight submarket vacancy at %.1f%%", f.VacancyPct))
	case f.VacancyPct > 8:
		c.penalty(5, fmt.Sprintf("Elevated submarket vacancy at %.1f%%", f.VacancyPct),
			"Secure pre-leasing to offset submarket vacancy")
	}

	return c.metric(m.Name(), m.Weight(), c.raw(),
		"Location tier, sector cycle and submarket fundamentals")
}
