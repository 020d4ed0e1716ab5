package market

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dqi-engine/internal/model"
)

// Tables holds the rate tables behind StaticProvider. All rates are fractions.
type Tables struct {
	SectorCapRates  map[model.PropertyType]float64 `yaml:"sector_cap_rates"`
	TierAdjustments map[Tier]float64               `yaml:"tier_adjustments"`
	Lending         LendingTable                   `yaml:"lending"`
}

// LendingTable prices a commercial loan from its size and leverage.
type LendingTable struct {
	BaseRate           float64 `yaml:"base_rate"`
	HighLTVThreshold   float64 `yaml:"high_ltv_threshold"`
	HighLTVPremium     float64 `yaml:"high_ltv_premium"`
	SmallLoanThreshold float64 `yaml:"small_loan_threshold"`
	SmallLoanPremium   float64 `yaml:"small_loan_premium"`
	LargeLoanThreshold float64 `yaml:"large_loan_threshold"`
	LargeLoanDiscount  float64 `yaml:"large_loan_discount"`
}

// DefaultTables returns the built-in base-case market tables.
func DefaultTables() Tables {
	caps := make(map[model.PropertyType]float64, len(sectorCapRates))
	for k, v := range sectorCapRates {
		caps[k] = v
	}
	return Tables{
		SectorCapRates: caps,
		TierAdjustments: map[Tier]float64{
			TierGateway:         -0.0050,
			TierStrongSecondary: -0.0025,
			TierEmerging:        0.0025,
			TierOther:           0.0050,
		},
		Lending: LendingTable{
			BaseRate:           0.0375,
			HighLTVThreshold:   0.70,
			HighLTVPremium:     0.0025,
			SmallLoanThreshold: 5_000_000,
			SmallLoanPremium:   0.0050,
			LargeLoanThreshold: 50_000_000,
			LargeLoanDiscount:  0.0025,
		},
	}
}

// LoadTables reads a YAML override file on top of DefaultTables. Keys left
// out of the file keep their defaults.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, eris.Wrapf(err, "market: read tables %s", path)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return t, eris.Wrapf(err, "market: parse tables %s", path)
	}
	for k, v := range override.SectorCapRates {
		if !k.Valid() {
			return t, eris.Errorf("market: unknown property type %q in %s", k, path)
		}
		t.SectorCapRates[k] = v
	}
	for k, v := range override.TierAdjustments {
		t.TierAdjustments[k] = v
	}
	if override.Lending != (LendingTable{}) {
		t.Lending = override.Lending
	}
	return t, nil
}

// StaticProvider quotes rates from in-memory tables. It never returns an
// error and covers every type/location pair.
type StaticProvider struct {
	tables Tables
}

// NewStaticProvider creates a StaticProvider over t.
func NewStaticProvider(t Tables) *StaticProvider {
	return &StaticProvider{tables: t}
}

// MarketCapRate returns the sector cap rate shifted by the location's tier.
func (s *StaticProvider) MarketCapRate(_ context.Context, pt model.PropertyType, location string) (float64, error) {
	base, ok := s.tables.SectorCapRates[pt]
	if !ok {
		base = SectorDefaultCapRate(pt)
	}
	return base + s.tables.TierAdjustments[ClassifyLocation(location)], nil
}

// CommercialRate prices a loan: base rate plus leverage and size premiums.
func (s *StaticProvider) CommercialRate(_ context.Context, loanAmount, ltv float64) (float64, error) {
	l := s.tables.Lending
	rate := l.BaseRate
	if ltv > l.HighLTVThreshold {
		rate += l.HighLTVPremium
	}
	switch {
	case loanAmount < l.SmallLoanThreshold:
		rate += l.SmallLoanPremium
	case loanAmount > l.LargeLoanThreshold:
		rate -= l.LargeLoanDiscount
	}
	return rate, nil
}
