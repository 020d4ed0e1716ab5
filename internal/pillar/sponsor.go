package pillar

import (
	"fmt"

	"github.com/sells-group/dqi-engine/internal/model"
)

// TrackRecord is the sponsor history assumed for a deal of a given size.
type TrackRecord struct {
	YearsActive int
	VolumeUSD   float64
	// AccuracyBps is pro-forma realization accuracy in basis points (9200 = 92%).
	AccuracyBps int
}

var (
	sponsorBaselines = [4]int{78, 75, 72, 70}
	sponsorYears     = [4]int{8, 12, 15, 20}
	sponsorTypeAdj   = map[model.PropertyType]int{
		model.PropertyRetail:      -5,
		model.PropertyOffice:      -3,
		model.PropertyMixed:       -2,
		model.PropertyMultifamily: 0,
		model.PropertyIndustrial:  3,
	}
)

// DeriveTrackRecord derives the sponsor track record from deal size. Sponsors
// of larger deals are assumed to be more established.
func DeriveTrackRecord(p model.PropertyInput) TrackRecord {
	tier := SizeTier(p.PropertyValue)
	return TrackRecord{
		YearsActive: sponsorYears[tier],
		VolumeUSD:   p.PropertyValue * 25,
		AccuracyBps: 9000 + 100*tier,
	}
}

// Sponsor scores sponsor strength against the bar a deal of this size sets.
type Sponsor struct{}

func (Sponsor) Name() string { return NameSponsor }
func (Sponsor) Weight() int  { return 20 }

// Compute implements Calculator.
func (s Sponsor) Compute(p model.PropertyInput, _ model.MarketContext) model.Metric {
	tier := SizeTier(p.PropertyValue)
	c := newCard(sponsorBaselines[tier])
	tr := DeriveTrackRecord(p)

	c.detail("Deal size tier %d sets sponsor baseline %d", tier, sponsorBaselines[tier])
	c.detail("Sponsor active %d years; $%.0fM transaction volume", tr.YearsActive, tr.VolumeUSD/1_000_000)
	c.detail("Pro-forma realization accuracy %.1f%%", float64(tr.AccuracyBps)/100)

	switch adj := sponsorTypeAdj[p.PropertyType]; {
	case adj > 0:
		c.bonus(adj, fmt.Sprintf("%s execution is straightforward for sponsors", p.PropertyType))
	case adj < 0:
		c.penalty(-adj, fmt.Sprintf("%s execution demands specialist sponsorship", p.PropertyType),
			fmt.Sprintf("Partner with a sponsor specialized in %s", p.PropertyType))
	}

	if tr.AccuracyBps > 9200 {
		c.bonus(8, fmt.Sprintf("Pro-forma realization accuracy %.1f%%", float64(tr.AccuracyBps)/100))
	} else {
		c.missed(8, "Document pro-forma realization above 92% on prior deals")
	}

	if tr.YearsActive >= 15 {
		c.bonus(4, fmt.Sprintf("Established sponsor with %d years active", tr.YearsActive))
	} else {
		c.missed(4, "Add a co-sponsor with 15+ years of operating history")
	}

	return c.metric(s.Name(), s.Weight(), c.raw(),
		"Sponsor track record relative to deal size and asset complexity")
}
