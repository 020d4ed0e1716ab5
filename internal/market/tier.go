package market

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tier buckets a location by depth and liquidity of its investment market.
type Tier string

const (
	TierGateway         Tier = "gateway"
	TierStrongSecondary Tier = "strong-secondary"
	TierEmerging        Tier = "emerging"
	TierOther           Tier = "other"
)

// Tiers lists every tier from strongest to weakest.
var Tiers = []Tier{TierGateway, TierStrongSecondary, TierEmerging, TierOther}

var tierMarkets = []struct {
	tier    Tier
	markets []string
}{
	{TierGateway, []string{
		"new york", "manhattan", "brooklyn", "los angeles", "san francisco",
		"boston", "chicago", "washington", "seattle",
	}},
	{TierStrongSecondary, []string{
		"austin", "dallas", "denver", "nashville", "atlanta", "miami", "phoenix",
		"charlotte", "raleigh", "houston", "san diego", "tampa", "orlando", "salt lake",
	}},
	{TierEmerging, []string{
		"boise", "columbus", "indianapolis", "kansas city", "jacksonville",
		"las vegas", "richmond", "greenville", "huntsville", "tucson",
	}},
}

// ClassifyLocation matches a free-text location against the known market
// lists. Matching is case- and accent-insensitive; anything unmatched is
// TierOther.
func ClassifyLocation(location string) Tier {
	loc := foldLocation(location)
	if loc == "" {
		return TierOther
	}
	for _, tm := range tierMarkets {
		for _, m := range tm.markets {
			if strings.Contains(loc, m) {
				return tm.tier
			}
		}
	}
	return TierOther
}

// foldLocation lower-cases and strips diacritics so "San José" matches "san jose".
func foldLocation(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
