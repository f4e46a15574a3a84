package extract

import "regexp"

// Built-in catalog profiles. Each site's enumeration mode matches what
// its backend actually offers: immo-kh exposes an InfiniteScroll
// fragment endpoint (cursor over HTTP, or browser-driven load-more),
// immoweb has stable page-number pagination, immotoma renders
// everything behind lazy loading and a load-more control.
func init() {
	Register(Site{
		ID:      "immokh",
		Host:    "immo-kh.be",
		ListURL: "https://www.immo-kh.be/fr/2/chercher-bien/a-vendre",
		Mode:    ModeCursor,

		FragmentAnchor: `div.infinite-scroll a[href*="/fr/List/InfiniteScroll"]`,
		FragmentMarker: "/List/InfiniteScroll",

		LoadMoreSelector: `div.infinite-scroll a[href*='/fr/List/InfiniteScroll']`,
		CardSelector:     `a.estate-card[href*="/fr/bien/"]`,

		ItemMarkers:      []string{"/fr/bien/", `class="estate-card`},
		NoResultsMarkers: []string{"aucun résultat", "aucun bien"},

		Extractor: CardExtractor{
			BaseURL:          "https://www.immo-kh.be",
			StrictAnchor:     `a.estate-card[href*="/fr/bien/"]`,
			DetailPath:       regexp.MustCompile(`/fr/bien/`),
			IDPattern:        regexp.MustCompile(`/(\d{5,})(?:$|[/?#])`),
			TitleSelector:    ".estate-card__text, .estate-card__text-details, .entry-title",
			PriceSelector:    "span.estate-card__text-details-price",
			LocationSelector: ".estate-card__text-details-location",
			BadHrefBits:      []string{"InfiniteScroll", "javascript:", "mailto:", "tel:", "#"},
		},
	})

	Register(Site{
		ID:      "immoweb",
		Host:    "immoweb.be",
		ListURL: "https://www.immoweb.be/fr/recherche/maison-et-appartement/a-vendre",
		Mode:    ModeOffset,

		SortParam: "orderBy",
		SortValue: "newest",
		PageParam: "page",
		FirstPage: 1,

		ItemMarkers:      []string{"__NEXT_DATA__"},
		NoResultsMarkers: []string{"aucun résultat ne correspond"},

		Extractor: NextDataExtractor{Host: "immoweb.be"},
	})

	Register(Site{
		ID:      "immotoma",
		Host:    "immotoma.be",
		ListURL: "https://immotoma.be/advanced-search/",
		Mode:    ModeScroll,

		StripParams: []string{"paged"},

		LoadMoreSelector: "a.load-more, button.load-more, .btn-load-more",
		CardSelector:     `a[href*="/property/"], a[href*="/biens/"], a[href*="/bien/"]`,

		ItemMarkers:      []string{"/property/", "/biens/"},
		NoResultsMarkers: []string{"no properties found", "aucun bien trouvé"},

		Extractor: CardExtractor{
			BaseURL:      "https://immotoma.be",
			StrictAnchor: `a[href*="/property/"], a[href*="/biens/"], a[href*="/bien/"]`,
			DetailPath:   regexp.MustCompile(`(?i)/property/|/biens/|/bien/`),
			IDPattern:    regexp.MustCompile(`(?i)(?:/property/|/biens/|/bien/)([^/?#]+)`),
			BadHrefBits:  []string{"javascript:", "mailto:", "tel:", "#", "advanced-search"},
			HashIDs:      true,
			ClimbDepth:   4,
		},
	})
}
