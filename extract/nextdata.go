package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ParraLuca/AlertMe/models"
)

// NextDataExtractor reads listings from the __NEXT_DATA__ JSON blob of
// a server-rendered Next.js search page. The blob's shape shifts across
// deployments, so the whole document is walked and any object carrying
// a listing id plus a detail URL on the expected host is registered.
type NextDataExtractor struct {
	Host string
}

func (e NextDataExtractor) Extract(payload string) ([]models.ListingItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if raw == "" {
		return nil, nil
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode __NEXT_DATA__: %w", err)
	}

	seen := map[string]bool{}
	var items []models.ListingItem
	e.walk(data, seen, &items)
	return items, nil
}

func (e NextDataExtractor) walk(node any, seen map[string]bool, items *[]models.ListingItem) {
	switch v := node.(type) {
	case map[string]any:
		if item, ok := e.register(v); ok && !seen[item.ID] {
			seen[item.ID] = true
			*items = append(*items, item)
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys) // deterministic walk order
		for _, k := range keys {
			e.walk(v[k], seen, items)
		}
	case []any:
		for _, child := range v {
			e.walk(child, seen, items)
		}
	}
}

func (e NextDataExtractor) register(obj map[string]any) (models.ListingItem, bool) {
	id := firstString(obj, "id", "propertyId", "code", "nid")
	detailURL := firstString(obj, "url", "detailUrl", "propertyUrl", "link")
	if id == "" || detailURL == "" || !strings.Contains(detailURL, e.Host) {
		return models.ListingItem{}, false
	}
	item := models.ListingItem{
		ID:       id,
		URL:      detailURL,
		Title:    squeeze(firstString(obj, "title", "propertyTitle", "heading")),
		Price:    asInt(firstValue(obj, "price", "priceValue", "salePrice")),
		Location: firstString(obj, "city", "location", "propertyLocation"),
	}
	if pub := firstString(obj, "publicationDate", "postedAt", "creationDate", "date", "updateDate"); pub != "" {
		item.PublicationDate = ParseWhen(pub)
	}
	item.PropertyType = ClassifyType(firstString(obj, "propertyType", "type") + " " + item.Title)
	item.Bedrooms = asInt(firstValue(obj, "bedroomCount", "bedrooms"))
	return item, true
}

func firstValue(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(obj map[string]any, keys ...string) string {
	switch v := firstValue(obj, keys...).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func asInt(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case string:
		return ParsePrice(n)
	default:
		return nil
	}
}
