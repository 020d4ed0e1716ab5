// Package market supplies the market context (cap rates, lending rates)
// that every DQI pillar is scored against.
package market

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/model"
)

// Provider is the external market-data collaborator. Implementations must
// return a rate for every property type and location, falling back to a
// sector default for unknown locations.
type Provider interface {
	MarketCapRate(ctx context.Context, pt model.PropertyType, location string) (float64, error)
	CommercialRate(ctx context.Context, loanAmount, ltv float64) (float64, error)
}

// Source labels recorded on a MarketContext.
const (
	SourceStatic = "static"
	SourceHTTP   = "http"
	// SourceSectorDefault marks a figure substituted after a provider failure.
	SourceSectorDefault = "sector-default"
)

// DefaultLendingRate is the base-case commercial lending rate used when the
// provider cannot quote one.
const DefaultLendingRate = 0.04

var sectorCapRates = map[model.PropertyType]float64{
	model.PropertyOffice:      0.070,
	model.PropertyIndustrial:  0.055,
	model.PropertyRetail:      0.065,
	model.PropertyMultifamily: 0.050,
	model.PropertyMixed:       0.060,
}

// SectorDefaultCapRate returns the sector median cap rate for pt.
func SectorDefaultCapRate(pt model.PropertyType) float64 {
	if r, ok := sectorCapRates[pt]; ok {
		return r
	}
	return sectorCapRates[model.PropertyMixed]
}

// Fetch assembles the MarketContext for one analysis. It never fails: a
// provider error or an implausible rate is replaced by the sector default and
// flagged on the returned context.
func Fetch(ctx context.Context, p Provider, in model.PropertyInput, loanAmount, ltv float64, source string) model.MarketContext {
	mc := model.MarketContext{CapRateSource: source, LendingRateSource: source}
	log := zap.L().With(zap.String("property_id", in.PropertyID))

	capRate, err := p.MarketCapRate(ctx, in.PropertyType, in.Location)
	if err == nil && !plausibleRate(capRate) {
		err = errImplausible(capRate)
	}
	if err != nil {
		log.Warn("market: cap rate unavailable, using sector default",
			zap.Error(model.ErrMarketDataUnavailable),
			zap.NamedError("cause", err),
			zap.String("property_type", string(in.PropertyType)),
		)
		capRate = SectorDefaultCapRate(in.PropertyType)
		mc.CapRateSource = SourceSectorDefault
		mc.CapRateFallback = true
	}
	mc.CapRate = capRate

	lending, err := p.CommercialRate(ctx, loanAmount, ltv)
	if err == nil && !plausibleRate(lending) {
		err = errImplausible(lending)
	}
	if err != nil {
		log.Warn("market: lending rate unavailable, using default",
			zap.Error(model.ErrMarketDataUnavailable),
			zap.NamedError("cause", err),
			zap.Float64("loan_amount", loanAmount),
		)
		lending = DefaultLendingRate
		mc.LendingRateSource = SourceSectorDefault
		mc.LendingRateFallback = true
	}
	mc.LendingRate = lending

	return mc
}

func errImplausible(r float64) error {
	return eris.Errorf("market: implausible rate %.4f", r)
}

func plausibleRate(r float64) bool {
	return r > 0 && r < 0.5
}
