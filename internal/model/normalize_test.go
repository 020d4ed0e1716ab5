package model

import (
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Precedence(t *testing.T) {
	raw := RawProperty{
		"id":            "p-1",
		"price":         9_000_000.0,
		"propertyValue": 10_000_000.0,
		"noi":           580_000.0,
		"sqft":          "50,000",
		"type":          "office",
		"city":          "Los Angeles",
		"state":         "CA",
		"propertyName":  "Wilshire Tower",
	}

	p := Normalize(raw)
	assert.Equal(t, "p-1", p.PropertyID)
	assert.Equal(t, "Wilshire Tower", p.Name)
	assert.InDelta(t, 10_000_000, p.PropertyValue, 0.01)
	require.NotNil(t, p.NetOperatingIncome)
	assert.InDelta(t, 580_000, *p.NetOperatingIncome, 0.01)
	require.NotNil(t, p.SquareFeet)
	assert.InDelta(t, 50_000, *p.SquareFeet, 0.01)
	assert.Equal(t, PropertyOffice, p.PropertyType)
	assert.Equal(t, "Los Angeles, CA", p.Location)
}

func TestNormalize_FallbackKeys(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawProperty
		value float64
	}{
		{"price", RawProperty{"price": 5_000_000.0}, 5_000_000},
		{"totalValue string", RawProperty{"totalValue": "$7,500,000"}, 7_500_000},
		{"purchasePrice millions", RawProperty{"purchasePrice": "2.5M"}, 2_500_000},
		{"askingPrice thousands", RawProperty{"askingPrice": "750k"}, 750_000},
		{"unparseable value skipped", RawProperty{"propertyValue": "n/a", "price": 1_000_000.0}, 1_000_000},
		{"none", RawProperty{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(tt.raw)
			assert.InDelta(t, tt.value, p.PropertyValue, 0.01)
		})
	}
}

func TestNormalize_OptionalFields(t *testing.T) {
	p := Normalize(RawProperty{
		"propertyValue":    1_000_000.0,
		"address":          "12 Main St, Boise, ID",
		"updatedAt":        "2026-01-15",
		"hasAppraisal":     true,
		"conditionReport":  "yes",
		"complexStructure": "false",
		"assetClass":       "warehouse",
	})

	assert.Nil(t, p.NetOperatingIncome)
	assert.Nil(t, p.SquareFeet)
	assert.Equal(t, "12 Main St, Boise, ID", p.Location)
	require.NotNil(t, p.LastUpdated)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), *p.LastUpdated)
	assert.True(t, p.Reports.Appraisal)
	assert.False(t, p.Reports.Environmental)
	assert.True(t, p.Reports.PropertyCondition)
	assert.Equal(t, 2, p.Reports.Count())
	require.NotNil(t, p.ComplexStructure)
	assert.False(t, *p.ComplexStructure)
	assert.Equal(t, PropertyIndustrial, p.PropertyType)
}

func TestNormalize_KeepsNonPositiveNOI(t *testing.T) {
	for _, noi := range []any{0.0, -200_000.0, "-200,000"} {
		p := Normalize(RawProperty{"propertyValue": 1_000_000.0, "noi": noi})
		assert.True(t, p.HasNOI(), "noi %v", noi)
		assert.LessOrEqual(t, *p.NetOperatingIncome, 0.0)
	}
	assert.False(t, Normalize(RawProperty{"propertyValue": 1_000_000.0}).HasNOI())
}

func TestNormalize_PercentIsNotAValue(t *testing.T) {
	p := Normalize(RawProperty{"propertyValue": "5.8%"})
	assert.Zero(t, p.PropertyValue)
}

func TestParseRawProperty(t *testing.T) {
	raw, err := ParseRawProperty([]byte(`{"propertyValue": 1000000, "type": "Retail"}`))
	require.NoError(t, err)
	assert.Equal(t, PropertyRetail, Normalize(raw).PropertyType)

	raw, err = ParseRawProperty([]byte(`null`))
	require.NoError(t, err)
	assert.NotNil(t, raw)

	_, err = ParseRawProperty([]byte(`{`))
	require.Error(t, err)
}

func TestParsePropertyType(t *testing.T) {
	tests := map[string]PropertyType{
		"Office":          PropertyOffice,
		" INDUSTRIAL ":    PropertyIndustrial,
		"shopping center": PropertyRetail,
		"Apartments":      PropertyMultifamily,
		"mixed-use":       PropertyMixed,
		"hotel":           PropertyMixed,
		"":                PropertyMixed,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePropertyType(in), in)
	}
	assert.True(t, PropertyRetail.Valid())
	assert.False(t, PropertyType("Hotel").Valid())
}

func TestConfidenceCapNeverUpgrades(t *testing.T) {
	assert.Equal(t, ConfidenceMedium, ConfidenceHigh.Cap(ConfidenceMedium))
	assert.Equal(t, ConfidenceLow, ConfidenceLow.Cap(ConfidenceMedium))
	assert.Equal(t, ConfidenceLow, ConfidenceMedium.Cap(ConfidenceLow))
	assert.Equal(t, ConfidenceMedium, ConfidenceMedium.Cap(ConfidenceHigh))

	assert.Equal(t, ConfidenceMedium, ConfidenceHigh.Step())
	assert.Equal(t, ConfidenceLow, ConfidenceMedium.Step())
	assert.Equal(t, ConfidenceLow, ConfidenceLow.Step())

	assert.True(t, ConfidenceHigh.AtLeast(ConfidenceMedium))
	assert.False(t, ConfidenceLow.AtLeast(ConfidenceMedium))
}

func TestMissingFieldError(t *testing.T) {
	err := eris.Wrap(&MissingFieldError{Field: "propertyValue"}, "engine: validate input")
	assert.True(t, errors.Is(err, ErrMissingRequiredField))

	var mfe *MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, "propertyValue", mfe.Field)
	assert.Contains(t, err.Error(), "propertyValue")
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Tower", PropertyInput{Name: "Tower"}.DisplayName())
	assert.Equal(t, "property p-9", PropertyInput{PropertyID: "p-9"}.DisplayName())
	assert.Equal(t, "this property", PropertyInput{}.DisplayName())
}

func TestNormalize_RequestedLTV(t *testing.T) {
	tests := []struct {
		name string
		raw  RawProperty
		want *float64
	}{
		{"fraction", RawProperty{"ltv": 0.65}, ptrF(0.65)},
		{"percent number", RawProperty{"loanToValue": 70.0}, ptrF(0.70)},
		{"percent string", RawProperty{"requestedLtv": "62.5%"}, ptrF(0.625)},
		{"zero ignored", RawProperty{"ltv": 0.0}, nil},
		{"absent", RawProperty{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(tt.raw)
			if tt.want == nil {
				assert.Nil(t, p.RequestedLTV)
				return
			}
			require.NotNil(t, p.RequestedLTV)
			assert.InDelta(t, *tt.want, *p.RequestedLTV, 1e-9)
		})
	}
}

func ptrF(v float64) *float64 { return &v }
