package pillar

import (
	"fmt"

	"github.com/sells-group/dqi-engine/internal/model"
)

// LeaseProfile is the tenancy profile assumed for a deal without a rent roll.
// Larger deals are assumed to carry longer, more diversified leases.
type LeaseProfile struct {
	WALTYears    float64
	TopTenantPct float64
	IGTenantPct  float64
	OccupancyPct float64
}

type leaseBase struct {
	walt, topTenant, ig, occupancy float64
}

var leaseBases = map[model.PropertyType]leaseBase{
	model.PropertyOffice:      {5.5, 25, 55, 88},
	model.PropertyIndustrial:  {6.5, 45, 60, 96},
	model.PropertyRetail:      {5.0, 30, 45, 92},
	model.PropertyMultifamily: {1.0, 2, 0, 95},
	model.PropertyMixed:       {4.5, 25, 45, 91},
}

var (
	waltTierBonus = [4]float64{0, 0.5, 1.0, 1.5}
	igTierBonus   = [4]float64{0, 5, 15, 15}
)

// DeriveLeaseProfile derives the tenancy profile from property type and
// deal size.
func DeriveLeaseProfile(p model.PropertyInput) LeaseProfile {
	b, ok := leaseBases[p.PropertyType]
	if !ok {
		b = leaseBases[model.PropertyMixed]
	}
	tier := SizeTier(p.PropertyValue)
	lp := LeaseProfile{
		WALTYears:    b.walt + waltTierBonus[tier],
		TopTenantPct: b.topTenant,
		IGTenantPct:  b.ig + igTierBonus[tier],
		OccupancyPct: b.occupancy,
	}
	if tier >= 2 {
		lp.TopTenantPct = max(lp.TopTenantPct-5, 0)
		lp.OccupancyPct = min(lp.OccupancyPct+2, 100)
	}
	if p.PropertyType == model.PropertyMultifamily {
		lp.IGTenantPct = 0
	}
	return lp
}

// LeaseRisk scores lease term, tenant concentration, tenant credit and
// occupancy.
type LeaseRisk struct{}

func (LeaseRisk) Name() string { return NameLeaseRisk }
func (LeaseRisk) Weight() int  { return 15 }

// Compute implements Calculator.
func (lr LeaseRisk) Compute(p model.PropertyInput, _ model.MarketContext) model.Metric {
	c := newCard(60)
	lp := DeriveLeaseProfile(p)

	c.detail("WALT %.1f years", lp.WALTYears)
	c.detail("Top tenant %.0f%% of rent", lp.TopTenantPct)
	c.detail("Investment-grade tenants %.0f%% of rent", lp.IGTenantPct)
	c.detail("Occupancy %.0f%%", lp.OccupancyPct)
	c.detail("Lease profile derived from property type and deal size")

	if p.PropertyType != model.PropertyMultifamily {
		switch {
		case lp.WALTYears > 6:
			c.bonus(10, fmt.Sprintf("Long lease term (%.1f year WALT)", lp.WALTYears))
		case lp.WALTYears < 3:
			c.penalty(10, fmt.Sprintf("Short lease term (%.1f year WALT)", lp.WALTYears),
				"Extend anchor leases beyond 6 years")
		default:
			c.missed(10, "Extend anchor leases beyond 6 years")
		}
	}

	switch {
	case lp.TopTenantPct < 30:
		c.bonus(10, fmt.Sprintf("Diversified rent roll (top tenant %.0f%%)", lp.TopTenantPct))
	case lp.TopTenantPct > 50:
		c.penalty(10, fmt.Sprintf("Concentrated rent roll (top tenant %.0f%%)", lp.TopTenantPct),
			"Diversify tenancy below 30% top-tenant exposure")
	default:
		c.missed(10, "Diversify tenancy below 30% top-tenant exposure")
	}

	if lp.IGTenantPct > 70 {
		c.bonus(10, fmt.Sprintf("Strong tenant credit (%.0f%% investment grade)", lp.IGTenantPct))
	} else if p.PropertyType != model.PropertyMultifamily {
		c.missed(10, "Raise investment-grade tenancy above 70%")
	}

	switch {
	case lp.OccupancyPct > 95:
		c.bonus(10, fmt.Sprintf("High occupancy at %.0f%%", lp.OccupancyPct))
	case lp.OccupancyPct < 85:
		c.penalty(10, fmt.Sprintf("Low occupancy at %.0f%%", lp.OccupancyPct),
			"Lease up vacancy to above 85% occupancy")
	default:
		c.missed(10, "Lease up to above 95% occupancy")
	}

	return c.metric(lr.Name(), lr.Weight(), c.raw(),
		"Lease term, tenant concentration, tenant credit and occupancy")
}
