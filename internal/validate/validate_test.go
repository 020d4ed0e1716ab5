package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dqi-engine/internal/model"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func laOffice() model.PropertyInput {
	return model.PropertyInput{
		PropertyID:         "la-1",
		PropertyValue:      10_000_000,
		NetOperatingIncome: ptr(580_000.0),
		SquareFeet:         ptr(50_000.0),
		PropertyType:       model.PropertyOffice,
		Location:           "Los Angeles, CA",
	}
}

func laMarket() model.MarketContext {
	return model.MarketContext{CapRate: 0.065, LendingRate: 0.0375}
}

func TestValidate_Clean(t *testing.T) {
	res := Validate(laOffice(), laMarket(), now)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Adjustments)
	assert.Equal(t, model.ConfidenceHigh, res.Confidence)
}

func TestValidate_CapRateSpread(t *testing.T) {
	tests := []struct {
		name string
		noi  float64
		want model.Confidence
		warn int
	}{
		{"within tolerance", 700_000, model.ConfidenceHigh, 0},
		{"moderate spread", 850_000, model.ConfidenceMedium, 1},
		{"severe spread", 150_000, model.ConfidenceLow, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := laOffice()
			p.NetOperatingIncome = ptr(tt.noi)
			res := Validate(p, laMarket(), now)
			assert.Equal(t, tt.want, res.Confidence)
			assert.Len(t, res.Warnings, tt.warn)
		})
	}
}

func TestValidate_NonPositiveNOIIsSevereSpread(t *testing.T) {
	for _, noi := range []float64{0, -200_000} {
		p := laOffice()
		p.NetOperatingIncome = ptr(noi)
		res := Validate(p, laMarket(), now)

		assert.Equal(t, model.ConfidenceLow, res.Confidence, "noi %.0f", noi)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "deviates")
		assert.NotContains(t, res.Warnings[0], "not provided")
	}
}

func TestValidate_SevereAddsStrongRemediation(t *testing.T) {
	p := laOffice()
	p.NetOperatingIncome = ptr(150_000.0)
	res := Validate(p, laMarket(), now)
	require.Equal(t, model.ConfidenceLow, res.Confidence)
	assert.Contains(t, res.Adjustments, "Commission an independent third-party valuation")
	assert.Contains(t, res.Adjustments, "Extend due diligence period before committing capital")
}

func TestValidate_MissingOptionalFields(t *testing.T) {
	p := laOffice()
	p.NetOperatingIncome = nil
	p.SquareFeet = nil
	res := Validate(p, laMarket(), now)

	assert.True(t, res.IsValid)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "Insufficient data")
	assert.Contains(t, res.Warnings[1], "Insufficient data")
	assert.Equal(t, model.ConfidenceMedium, res.Confidence)
	assert.NotEmpty(t, res.Adjustments)
}

func TestValidate_PricePerSqftStepsDown(t *testing.T) {
	p := laOffice()
	p.SquareFeet = ptr(5_000.0) // $2,000/sf
	res := Validate(p, laMarket(), now)
	assert.Equal(t, model.ConfidenceMedium, res.Confidence)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Price per sq ft")

	p.NetOperatingIncome = ptr(850_000.0)
	res = Validate(p, laMarket(), now)
	assert.Equal(t, model.ConfidenceLow, res.Confidence)
}

func TestValidate_LocationAndStaleness(t *testing.T) {
	p := laOffice()
	p.Location = "LA"
	p.LastUpdated = ptr(now.Add(-120 * 24 * time.Hour))
	res := Validate(p, laMarket(), now)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, model.ConfidenceMedium, res.Confidence)
	assert.Contains(t, res.Warnings[1], "120 days")

	p.LastUpdated = ptr(now.Add(-30 * 24 * time.Hour))
	p.Location = "Los Angeles"
	res = Validate(p, laMarket(), now)
	assert.Empty(t, res.Warnings)
}

func TestValidate_MarketFallback(t *testing.T) {
	mc := laMarket()
	mc.CapRateFallback = true
	res := Validate(laOffice(), mc, now)
	assert.Equal(t, model.ConfidenceMedium, res.Confidence)
	assert.Len(t, res.Warnings, 1)
}

func TestValidate_ThreeWarningsInvalid(t *testing.T) {
	p := laOffice()
	p.NetOperatingIncome = nil
	p.SquareFeet = nil
	p.Location = ""
	res := Validate(p, laMarket(), now)
	assert.Len(t, res.Warnings, 3)
	assert.False(t, res.IsValid)
}

func TestValidate_ConfidenceIsMonotonic(t *testing.T) {
	faults := []func(*model.PropertyInput, *model.MarketContext){
		func(p *model.PropertyInput, _ *model.MarketContext) { p.Location = "" },
		func(p *model.PropertyInput, _ *model.MarketContext) { p.SquareFeet = ptr(1_000.0) },
		func(_ *model.PropertyInput, mc *model.MarketContext) { mc.LendingRateFallback = true },
		func(p *model.PropertyInput, _ *model.MarketContext) { p.NetOperatingIncome = ptr(100_000.0) },
		func(p *model.PropertyInput, _ *model.MarketContext) { p.LastUpdated = ptr(now.AddDate(-1, 0, 0)) },
	}

	p, mc := laOffice(), laMarket()
	prev := Validate(p, mc, now)
	for i, fault := range faults {
		fault(&p, &mc)
		res := Validate(p, mc, now)
		assert.Greater(t, len(res.Warnings), len(prev.Warnings), "fault %d", i)
		assert.True(t, prev.Confidence.AtLeast(res.Confidence), "fault %d upgraded confidence", i)
		prev = res
	}
	assert.Equal(t, model.ConfidenceLow, prev.Confidence)
	assert.False(t, prev.IsValid)
}
