package crawler

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ParraLuca/AlertMe/extract"
	"github.com/ParraLuca/AlertMe/models"
)

// OffsetEngine walks a catalog with honest server-side pagination: a
// plain page-number parameter incremented until a page adds nothing or
// the budget runs out. Used for the catalogs where neither a cursor
// endpoint nor a load-more control is needed.
type OffsetEngine struct {
	Client    *http.Client
	Site      extract.Site
	UserAgent string
	MaxPages  int
	Delay     func() time.Duration
	Label     string
}

func (e *OffsetEngine) Run(ctx context.Context, canonicalURL string) ([]models.ListingItem, error) {
	var all []models.ListingItem
	seen := map[string]bool{}

	for page := 0; page < e.MaxPages; page++ {
		if page > 0 && e.Delay != nil {
			time.Sleep(e.Delay())
		}
		pageURL, err := e.pageURL(canonicalURL, e.Site.FirstPage+page)
		if err != nil {
			return all, err
		}
		body, err := e.fetch(ctx, pageURL)
		if err != nil {
			log.Printf("[%s] ✗ p%d: %v", e.Label, page+1, err)
			return all, nil
		}
		if hasAnyMarker(body, e.Site.NoResultsMarkers) {
			log.Printf("[%s] ✓ p%d: no-results marker, pagination complete", e.Label, page+1)
			return all, nil
		}
		items, err := e.Site.Extractor.Extract(body)
		if err != nil {
			return all, fmt.Errorf("extract page %d: %w", page+1, err)
		}
		before := len(all)
		all = appendUnseen(all, items, seen)
		added := len(all) - before
		log.Printf("[%s] ✓ p%d → +%d (total=%d)", e.Label, page+1, added, len(all))
		if added == 0 {
			return all, nil
		}
	}

	log.Printf("[%s] ⚠ page budget (%d) exhausted, stopping with %d item(s)", e.Label, e.MaxPages, len(all))
	return all, nil
}

func (e *OffsetEngine) pageURL(canonicalURL string, page int) (string, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return "", fmt.Errorf("parse list url: %w", err)
	}
	q := u.Query()
	q.Set(e.Site.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (e *OffsetEngine) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", e.UserAgent)
	resp, err := e.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("GET %s: status %d", pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
