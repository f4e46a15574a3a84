package extract

import (
	"github.com/ParraLuca/AlertMe/models"
	"github.com/ParraLuca/AlertMe/target"
)

// Extractor turns a raw page payload into a deduplicated, ordered set
// of listing items. Implementations are pure: no network, no state.
// Items without an extractable identity are dropped.
type Extractor interface {
	Extract(payload string) ([]models.ListingItem, error)
}

// Mode selects how a catalog is enumerated.
type Mode string

const (
	// ModeCursor walks a fragment endpoint with a decreasing id cursor.
	ModeCursor Mode = "cursor"
	// ModeScroll drives a rendered page's load-more control to exhaustion.
	ModeScroll Mode = "scroll"
	// ModeOffset walks a plain page-number parameter until an empty page.
	ModeOffset Mode = "offset"
)

// Site bundles everything the crawler needs to know about one catalog:
// canonicalization rules, the enumeration mode, the payload markers that
// distinguish a page with results from an empty one, and the extractor.
type Site struct {
	ID   string
	Host string
	// ListURL is the default search page when a definition gives none.
	ListURL string
	Mode    Mode

	SortParam   string
	SortValue   string
	StripParams []string

	// Offset mode
	PageParam string
	FirstPage int

	// Cursor mode: anchor on the list page exposing the fragment
	// endpoint, and the URL substring identifying that endpoint.
	FragmentAnchor string
	FragmentMarker string

	// Scroll mode
	LoadMoreSelector string
	CardSelector     string

	ItemMarkers      []string
	NoResultsMarkers []string

	Extractor Extractor
}

// Rules returns the canonicalization rules derived from the profile.
func (s Site) Rules() target.Rules {
	return target.Rules{
		Host:        s.Host,
		StripParams: s.StripParams,
		SortParam:   s.SortParam,
		SortValue:   s.SortValue,
	}
}

var registry = map[string]Site{}

// Register adds a site profile. Later registrations for the same ID win.
func Register(s Site) {
	registry[s.ID] = s
}

// Lookup returns the profile registered under id.
func Lookup(id string) (Site, bool) {
	s, ok := registry[id]
	return s, ok
}

// SiteIDs lists the registered profile IDs.
func SiteIDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}
