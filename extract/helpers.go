package extract

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonDigitRe  = regexp.MustCompile(`[^\d]`)
	bedroomsRe  = regexp.MustCompile(`(?i)(\d+)\s*(?:ch|chambres?|slaapkamers?|kamers?|bedrooms?|bed)\b`)
	typeAliases = []struct {
		canonical string
		words     []string
	}{
		{"maison", []string{"maison", "villa", "house", "woning"}},
		{"appartement", []string{"appartement", "apartment", "flat", "appart"}},
		{"penthouse", []string{"penthouse"}},
		{"duplex", []string{"duplex"}},
		{"studio", []string{"studio", "kot"}},
		{"terrain", []string{"terrain", "grond", "land"}},
		{"bureau", []string{"bureau", "office"}},
		{"commerce", []string{"commerce", "rez-commercial", "retail", "shop"}},
		{"industriel", []string{"industriel", "industrie", "entrepot", "entrepôt", "warehouse"}},
		{"garage", []string{"garage", "parking", "box"}},
	}
)

// ParsePrice extracts an integer price from free text ("€ 249.000",
// "249 000 EUR"). Returns nil when no digits are present.
func ParsePrice(text string) *int {
	s := nonDigitRe.ReplaceAllString(text, "")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// ParseBedrooms finds a bedroom count in free text, matching the usual
// French/Dutch/English abbreviations.
func ParseBedrooms(text string) *int {
	m := bedroomsRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// ClassifyType maps free text to a canonical property type, first alias
// match wins. Empty string when nothing matches.
func ClassifyType(text string) string {
	t := strings.ToLower(text)
	for _, alias := range typeAliases {
		for _, w := range alias.words {
			if strings.Contains(t, w) {
				return alias.canonical
			}
		}
	}
	return ""
}

// StableID derives a stable non-numeric identity from a detail URL, for
// catalogs that expose no listing id. Such ids never take part in
// cursor arithmetic.
func StableID(href string) string {
	if href == "" {
		return ""
	}
	sum := md5.Sum([]byte(href))
	return hex.EncodeToString(sum[:])
}

var whenLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseWhen parses the publication-date shapes catalogs actually emit:
// ISO 8601 with or without zone, and epoch seconds or milliseconds.
func ParseWhen(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range whenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 10_000_000_000 {
			n /= 1000
		}
		t := time.Unix(n, 0).UTC()
		return &t
	}
	return nil
}
