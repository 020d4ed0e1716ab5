package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// RawProperty is a loosely shaped upstream property payload. Different
// sources name the same figure differently; Normalize resolves them.
type RawProperty map[string]any

// Field precedence lists. The first key holding a usable value wins.
var (
	valueKeys        = []string{"propertyValue", "price", "totalValue", "purchasePrice", "askingPrice", "value"}
	noiKeys          = []string{"netOperatingIncome", "noi", "NOI", "annualNOI"}
	squareFeetKeys   = []string{"squareFeet", "sqft", "squareFootage", "buildingSize", "size"}
	typeKeys         = []string{"propertyType", "type", "assetClass"}
	locationKeys     = []string{"location", "address"}
	nameKeys         = []string{"name", "propertyName", "title"}
	idKeys           = []string{"propertyId", "id"}
	lastUpdatedKeys  = []string{"lastUpdated", "updatedAt"}
	appraisalKeys    = []string{"hasAppraisal", "appraisal"}
	environmentKeys  = []string{"hasEnvironmental", "environmentalReport"}
	conditionKeys    = []string{"hasPropertyCondition", "conditionReport"}
	ltvKeys          = []string{"requestedLtv", "ltv", "loanToValue"}
	complexStructKey = "complexStructure"
)

// Normalize maps a raw payload onto the canonical PropertyInput.
// It never fails: unparseable figures are treated as absent so that the
// engine, not the normalizer, decides which gaps are fatal.
func Normalize(raw RawProperty) PropertyInput {
	p := PropertyInput{
		PropertyID: raw.firstString(idKeys...),
		Name:       raw.firstString(nameKeys...),
		Location:   raw.location(),
	}

	if v, ok := raw.firstNumber(valueKeys...); ok {
		p.PropertyValue = v
	}
	if v, ok := raw.firstNumber(noiKeys...); ok {
		p.NetOperatingIncome = &v
	}
	if v, ok := raw.firstNumber(squareFeetKeys...); ok {
		p.SquareFeet = &v
	}

	p.PropertyType = ParsePropertyType(raw.firstString(typeKeys...))

	if s := raw.firstString(lastUpdatedKeys...); s != "" {
		if ts, ok := parseTimestamp(s); ok {
			p.LastUpdated = &ts
		}
	}

	p.Reports = ThirdPartyReports{
		Appraisal:         raw.firstBool(appraisalKeys...),
		Environmental:     raw.firstBool(environmentKeys...),
		PropertyCondition: raw.firstBool(conditionKeys...),
	}

	if v, ok := raw.firstRatio(ltvKeys...); ok {
		p.RequestedLTV = &v
	}

	if v, ok := raw[complexStructKey]; ok {
		if b, ok := toBool(v); ok {
			p.ComplexStructure = &b
		}
	}

	return p
}

// ParseRawProperty decodes a JSON object into a RawProperty.
func ParseRawProperty(data []byte) (RawProperty, error) {
	var raw RawProperty
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "model: decode property payload")
	}
	if raw == nil {
		raw = RawProperty{}
	}
	return raw, nil
}

func (r RawProperty) location() string {
	if s := r.firstString(locationKeys...); s != "" {
		return s
	}
	city := r.firstString("city")
	state := r.firstString("state")
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}

func (r RawProperty) firstString(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		case int64:
			s = strconv.FormatInt(t, 10)
		case json.Number:
			s = t.String()
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (r RawProperty) firstNumber(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

func (r RawProperty) firstBool(keys ...string) bool {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if b, ok := toBool(v); ok {
				return b
			}
		}
	}
	return false
}

// firstRatio reads a fraction. Values above 1 and "65%" strings are percentages.
func (r RawProperty) firstRatio(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr {
			s = strings.TrimSpace(s)
			if pct, found := strings.CutSuffix(s, "%"); found {
				f, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
				if err == nil && f > 0 {
					return f / 100, true
				}
				continue
			}
		}
		f, ok := toFloat(v)
		if !ok || f <= 0 {
			continue
		}
		if f > 1 {
			f /= 100
		}
		return f, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseMoney(t)
	default:
		return 0, false
	}
}

// parseMoney accepts "$10,000,000", "10000000", " 2.5M " and "750k".
func parseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	s = strings.NewReplacer("$", "", ",", "", "_", "", " ", "").Replace(s)
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "M") || strings.HasSuffix(s, "m"):
		mult, s = 1_000_000, s[:len(s)-1]
	case strings.HasSuffix(s, "K") || strings.HasSuffix(s, "k"):
		mult, s = 1_000, s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f * mult, true
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	}
	return false, false
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
