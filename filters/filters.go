package filters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ParraLuca/AlertMe/extract"
	"github.com/ParraLuca/AlertMe/models"
)

// Set is a subscriber's post-hoc filter configuration. All active
// predicates must hold for an item to pass. Filtering is stateless and
// re-applied identically on every run; it plays no part in seen/unseen
// identity.
type Set struct {
	PriceMin      *int     `json:"price_min,omitempty"`
	PriceMax      *int     `json:"price_max,omitempty"`
	BedroomsMin   *int     `json:"bedrooms_min,omitempty"`
	PropertyTypes []string `json:"property_types,omitempty"`
	Cities        []string `json:"cities,omitempty"`
	IncludeSold   bool     `json:"include_sold,omitempty"`
}

// Parse decodes a raw filter document from an alert definition.
func Parse(raw json.RawMessage) (Set, error) {
	var s Set
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Set{}, fmt.Errorf("decode filters: %w", err)
	}
	return s, nil
}

func (s Set) Empty() bool {
	return s.PriceMin == nil && s.PriceMax == nil && s.BedroomsMin == nil &&
		len(s.PropertyTypes) == 0 && len(s.Cities) == 0 && !s.IncludeSold
}

// Apply keeps the items matching every active predicate, preserving
// order.
func (s Set) Apply(items []models.ListingItem) []models.ListingItem {
	if s.Empty() {
		return items
	}
	out := make([]models.ListingItem, 0, len(items))
	for _, it := range items {
		if s.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

// Match reports whether one item passes the whole predicate set. An
// item missing a field an active predicate needs fails that predicate.
func (s Set) Match(it models.ListingItem) bool {
	text := strings.ToLower(it.Title + " " + it.Location)

	if len(s.Cities) > 0 && !anyContained(text, s.Cities) {
		return false
	}
	if types := lowered(s.PropertyTypes); len(types) > 0 {
		t := strings.ToLower(it.PropertyType)
		if t == "" {
			t = extract.ClassifyType(text)
		}
		if t == "" || !contains(types, t) {
			return false
		}
	}
	if s.PriceMin != nil && (it.Price == nil || *it.Price < *s.PriceMin) {
		return false
	}
	if s.PriceMax != nil && (it.Price == nil || *it.Price > *s.PriceMax) {
		return false
	}
	if s.BedroomsMin != nil {
		b := 0
		if it.Bedrooms != nil {
			b = *it.Bedrooms
		}
		if b < *s.BedroomsMin {
			return false
		}
	}
	if !s.IncludeSold && (strings.Contains(text, "vendu") ||
		strings.Contains(text, "sold") || strings.Contains(text, "option")) {
		return false
	}
	return true
}

// Fingerprint renders the set as a flat ordered map for the identity
// key: equal sets fingerprint identically regardless of list order.
func (s Set) Fingerprint() map[string]string {
	fp := map[string]string{}
	if s.PriceMin != nil {
		fp["price_min"] = fmt.Sprint(*s.PriceMin)
	}
	if s.PriceMax != nil {
		fp["price_max"] = fmt.Sprint(*s.PriceMax)
	}
	if s.BedroomsMin != nil {
		fp["bedrooms_min"] = fmt.Sprint(*s.BedroomsMin)
	}
	if len(s.PropertyTypes) > 0 {
		fp["property_types"] = joinSorted(s.PropertyTypes)
	}
	if len(s.Cities) > 0 {
		fp["cities"] = joinSorted(s.Cities)
	}
	if s.IncludeSold {
		fp["include_sold"] = "1"
	}
	return fp
}

// Describe renders the active predicates for notification bodies.
func (s Set) Describe() []string {
	var out []string
	if s.PriceMin != nil {
		out = append(out, fmt.Sprintf("price >= %d EUR", *s.PriceMin))
	}
	if s.PriceMax != nil {
		out = append(out, fmt.Sprintf("price <= %d EUR", *s.PriceMax))
	}
	if s.BedroomsMin != nil {
		out = append(out, fmt.Sprintf("at least %d bedroom(s)", *s.BedroomsMin))
	}
	if len(s.PropertyTypes) > 0 {
		out = append(out, "type: "+strings.Join(lowered(s.PropertyTypes), ", "))
	}
	if len(s.Cities) > 0 {
		out = append(out, "city: "+strings.Join(lowered(s.Cities), ", "))
	}
	if !s.IncludeSold {
		out = append(out, "sold/under-option excluded")
	}
	return out
}

func lowered(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func joinSorted(vals []string) string {
	vs := lowered(vals)
	sort.Strings(vs)
	return strings.Join(vs, ",")
}

func anyContained(text string, needles []string) bool {
	for _, n := range lowered(needles) {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
