package model

import (
	"strings"
	"time"
)

// PropertyType classifies a commercial property by sector.
type PropertyType string

const (
	PropertyOffice      PropertyType = "Office"
	PropertyIndustrial  PropertyType = "Industrial"
	PropertyRetail      PropertyType = "Retail"
	PropertyMultifamily PropertyType = "Multifamily"
	PropertyMixed       PropertyType = "Mixed"
)

// PropertyTypes lists every supported sector in a stable order.
var PropertyTypes = []PropertyType{
	PropertyOffice,
	PropertyIndustrial,
	PropertyRetail,
	PropertyMultifamily,
	PropertyMixed,
}

var propertyTypeAliases = map[string]PropertyType{
	"office":          PropertyOffice,
	"medical office":  PropertyOffice,
	"industrial":      PropertyIndustrial,
	"warehouse":       PropertyIndustrial,
	"logistics":       PropertyIndustrial,
	"flex":            PropertyIndustrial,
	"retail":          PropertyRetail,
	"shopping center": PropertyRetail,
	"strip center":    PropertyRetail,
	"multifamily":     PropertyMultifamily,
	"multi-family":    PropertyMultifamily,
	"apartment":       PropertyMultifamily,
	"apartments":      PropertyMultifamily,
	"residential":     PropertyMultifamily,
	"mixed":           PropertyMixed,
	"mixed-use":       PropertyMixed,
	"mixed use":       PropertyMixed,
}

// ParsePropertyType maps a free-form sector label to a PropertyType.
// Unknown labels resolve to PropertyMixed.
func ParsePropertyType(s string) PropertyType {
	key := strings.ToLower(strings.TrimSpace(s))
	if pt, ok := propertyTypeAliases[key]; ok {
		return pt
	}
	return PropertyMixed
}

// Valid reports whether t is one of the supported sectors.
func (t PropertyType) Valid() bool {
	for _, pt := range PropertyTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// ThirdPartyReports records which third-party diligence reports exist for a deal.
type ThirdPartyReports struct {
	Appraisal         bool `json:"appraisal"`
	Environmental     bool `json:"environmental"`
	PropertyCondition bool `json:"propertyCondition"`
}

// Count returns the number of reports present.
func (r ThirdPartyReports) Count() int {
	n := 0
	for _, ok := range []bool{r.Appraisal, r.Environmental, r.PropertyCondition} {
		if ok {
			n++
		}
	}
	return n
}

// PropertyInput is the canonical, normalized subject of one analysis.
// Optional figures are pointers; nil means the upstream record did not carry them.
type PropertyInput struct {
	PropertyID         string       `json:"propertyId"`
	Name               string       `json:"name"`
	PropertyValue      float64      `json:"propertyValue"`
	NetOperatingIncome *float64     `json:"netOperatingIncome,omitempty"`
	SquareFeet         *float64     `json:"squareFeet,omitempty"`
	PropertyType       PropertyType `json:"propertyType"`
	Location           string       `json:"location"`
	LastUpdated        *time.Time   `json:"lastUpdated,omitempty"`
	ComplexStructure   *bool        `json:"complexStructure,omitempty"`
	// RequestedLTV is the financing the deal actually seeks, as a fraction.
	// When nil, leverage is sized from deal size and property type.
	RequestedLTV *float64          `json:"requestedLtv,omitempty"`
	Reports      ThirdPartyReports `json:"reports"`
}

// HasNOI reports whether NOI was supplied. A declared NOI of zero or below
// is a real figure and is scored as given.
func (p PropertyInput) HasNOI() bool {
	return p.NetOperatingIncome != nil
}

// HasSquareFeet reports whether a positive building area was supplied.
func (p PropertyInput) HasSquareFeet() bool {
	return p.SquareFeet != nil && *p.SquareFeet > 0
}

// DisplayName returns the property name, falling back to the ID.
func (p PropertyInput) DisplayName() string {
	if strings.TrimSpace(p.Name) != "" {
		return p.Name
	}
	if p.PropertyID != "" {
		return "property " + p.PropertyID
	}
	return "this property"
}

// MarketContext is the market truth fetched fresh for one analysis.
type MarketContext struct {
	CapRate             float64 `json:"marketCapRate"`
	LendingRate         float64 `json:"commercialLendingRate"`
	CapRateSource       string  `json:"capRateSource"`
	LendingRateSource   string  `json:"lendingRateSource"`
	CapRateFallback     bool    `json:"capRateFallback"`
	LendingRateFallback bool    `json:"lendingRateFallback"`
}

// Degraded reports whether any market figure came from a sector default.
func (m MarketContext) Degraded() bool {
	return m.CapRateFallback || m.LendingRateFallback
}
