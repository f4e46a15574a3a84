package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ParraLuca/AlertMe/models"
)

// CardExtractor pulls listings out of server-rendered card markup. It
// anchors on detail links, climbs a bounded number of parent levels to
// reach the surrounding card, and reads title/price/location from it.
type CardExtractor struct {
	BaseURL string // scheme+host used to resolve relative hrefs

	StrictAnchor string         // preferred anchor selector; generic href scan as fallback
	DetailPath   *regexp.Regexp // pattern a detail href must match
	IDPattern    *regexp.Regexp

	TitleSelector    string
	PriceSelector    string
	LocationSelector string

	BadHrefBits []string
	HashIDs     bool // derive identity from the href when IDPattern misses
	ClimbDepth  int
}

func (e CardExtractor) Extract(payload string) ([]models.ListingItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse card markup: %w", err)
	}

	anchors := doc.Find(e.StrictAnchor)
	if anchors.Length() == 0 {
		anchors = doc.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			return e.DetailPath.MatchString(href)
		})
	}

	seen := map[string]bool{}
	var items []models.ListingItem
	anchors.Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || e.badHref(href) || !e.DetailPath.MatchString(href) {
			return
		}
		detailURL := e.absURL(href)

		id := ""
		if e.IDPattern != nil {
			if m := e.IDPattern.FindStringSubmatch(href); m != nil {
				id = m[1]
			}
		}
		if id == "" && e.HashIDs {
			id = StableID(detailURL)
		}
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		card := a
		for i := 0; i < e.climbDepth(); i++ {
			parent := card.Parent()
			if parent.Length() == 0 {
				break
			}
			// Never climb out of the card into the whole page.
			if name := goquery.NodeName(parent); name == "body" || name == "html" || name == "#document" {
				break
			}
			card = parent
		}

		// The anchor usually IS the card; only fall back to the climbed
		// parent when a selector finds nothing inside it.
		find := func(sel string) *goquery.Selection {
			if s := a.Find(sel); s.Length() > 0 {
				return s.First()
			}
			return card.Find(sel).First()
		}

		title := ""
		if e.TitleSelector != "" {
			title = squeeze(find(e.TitleSelector).Text())
		}
		if title == "" {
			title = squeeze(a.Text())
		}

		var price *int
		if e.PriceSelector != "" {
			price = ParsePrice(find(e.PriceSelector).Text())
		}
		if price == nil {
			scan := func(s *goquery.Selection) {
				s.EachWithBreak(func(_ int, n *goquery.Selection) bool {
					t := squeeze(n.Text())
					if strings.Contains(t, "€") || strings.Contains(strings.ToLower(t), "eur") {
						if p := ParsePrice(t); p != nil {
							price = p
							return false
						}
					}
					return true
				})
			}
			scan(a.Find("span,div,p,strong,b"))
			if price == nil {
				scan(card.Find("span,div,p,strong,b"))
			}
		}

		location := ""
		if e.LocationSelector != "" {
			location = squeeze(find(e.LocationSelector).Text())
		}

		cardText := squeeze(a.Text())
		if cardText == "" {
			cardText = squeeze(card.Text())
		}
		items = append(items, models.ListingItem{
			ID:           id,
			URL:          detailURL,
			Title:        title,
			Price:        price,
			Location:     location,
			Bedrooms:     ParseBedrooms(cardText),
			PropertyType: ClassifyType(title + " " + cardText),
		})
	})
	return items, nil
}

func (e CardExtractor) badHref(href string) bool {
	h := strings.ToLower(href)
	for _, bit := range e.BadHrefBits {
		if strings.Contains(h, strings.ToLower(bit)) {
			return true
		}
	}
	return false
}

func (e CardExtractor) absURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (e CardExtractor) climbDepth() int {
	if e.ClimbDepth <= 0 {
		return 5
	}
	return e.ClimbDepth
}

func squeeze(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
