package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/ParraLuca/AlertMe/browser"
	"github.com/ParraLuca/AlertMe/crawler"
	"github.com/ParraLuca/AlertMe/extract"
	"github.com/ParraLuca/AlertMe/filters"
	"github.com/ParraLuca/AlertMe/models"
	"github.com/ParraLuca/AlertMe/target"
)

// crawlTarget runs one alert definition end to end: canonicalize,
// enumerate the catalog by the site's mode, filter, then diff against
// the alert state. Any failure before the diff leaves the alert state
// untouched and is reported on the result.
func (r *Runner) crawlTarget(ctx context.Context, def models.AlertDefinition) models.TargetResult {
	result := models.TargetResult{Site: def.Site, Email: def.Email}

	site, ok := extract.Lookup(def.Site)
	if !ok {
		result.Err = fmt.Errorf("unknown site %q (have %s)", def.Site, strings.Join(extract.SiteIDs(), ", "))
		return result
	}

	rawURL := def.URL
	if rawURL == "" {
		rawURL = site.ListURL
	}
	filterSet, err := filters.Parse(def.Filters)
	if err != nil {
		result.Err = err
		return result
	}

	identityKey, canonicalURL, err := target.Canonicalize(site.ID, rawURL, filterSet.Fingerprint(), site.Rules())
	if err != nil {
		result.Err = err
		return result
	}
	result.IdentityKey = identityKey
	result.CanonicalURL = canonicalURL
	label := site.ID + ":" + shortKey(identityKey)

	pages := def.Pages
	if pages <= 0 {
		pages = r.cfg.DefaultPages
	}

	mode := site.Mode
	if def.UseBrowser {
		mode = extract.ModeScroll
	}

	var items []models.ListingItem
	switch mode {
	case extract.ModeScroll:
		items, err = r.runScroll(ctx, site, canonicalURL, pages, label)
	case extract.ModeOffset:
		engine := &crawler.OffsetEngine{
			Client:    r.client,
			Site:      site,
			UserAgent: r.cfg.UserAgent,
			MaxPages:  pages,
			Delay:     r.cfg.RandomDelay,
			Label:     label,
		}
		items, err = engine.Run(ctx, canonicalURL)
	default:
		items, err = r.runCursor(ctx, site, canonicalURL, pages, label)
	}
	if err != nil {
		result.Err = err
		return result
	}
	result.Observed = len(items)

	kept := filterSet.Apply(items)
	if len(kept) != len(items) {
		log.Printf("[%s] filters kept %d/%d item(s)", label, len(kept), len(items))
	}

	if r.archive != nil {
		if n, aerr := r.archive.ArchiveListings(ctx, r.runID, site.ID, kept); aerr != nil {
			log.Printf("[%s] ⚠ archive: %v", label, aerr)
		} else if n > 0 {
			log.Printf("[%s] archived %d listing(s)", label, n)
		}
	}

	diff, err := r.store.RecordOrDiff(identityKey, def.Email, kept)
	if err != nil {
		result.Err = err
		return result
	}
	result.Seed = diff.Seed
	result.NewItems = diff.New
	result.Renotified = diff.Renotified

	if diff.Seed {
		log.Printf("[%s] ✓ seeded with %d item(s), no notification", label, len(kept))
		return result
	}
	for _, id := range diff.Renotified {
		log.Printf("[%s] ⚠ %s reported again: publication date postdates the alert", label, id)
	}
	if len(diff.New) > 0 {
		if nerr := r.notifier.Notify(ctx, result, filterSet.Describe()); nerr != nil {
			log.Printf("[%s] ✗ notify: %v", label, nerr)
		}
	}
	return result
}

// runCursor discovers the fragment endpoint advertised on the list
// page and walks it. A list page without the endpoint anchor is served
// fully rendered, so its own cards are the whole result.
func (r *Runner) runCursor(ctx context.Context, site extract.Site, canonicalURL string, pages int, label string) ([]models.ListingItem, error) {
	body, err := r.fetchPage(ctx, canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("fetch list page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse list page: %w", err)
	}
	href := strings.TrimSpace(doc.Find(site.FragmentAnchor).First().AttrOr("href", ""))
	if href == "" {
		log.Printf("[%s] ⚠ no fragment endpoint on list page, keeping its own cards", label)
		return site.Extractor.Extract(body)
	}
	if base, perr := url.Parse(canonicalURL); perr == nil {
		if ref, rerr := url.Parse(href); rerr == nil {
			href = base.ResolveReference(ref).String()
		}
	}

	endpoint, basePayload, err := crawler.DecodeFragmentURL(href)
	if err != nil {
		return nil, err
	}
	engine := &crawler.CursorEngine{
		Client:    r.client,
		Site:      site,
		UserAgent: r.cfg.UserAgent,
		PageSizes: r.cfg.PageSizes,
		SortMode:  r.cfg.SortMode,
		MaxPages:  pages,
		Delay:     r.cfg.RandomDelay,
		Label:     label,
	}
	return engine.Run(ctx, endpoint, basePayload)
}

// runScroll opens a fresh tab and lets the exhaustion detector prove
// there is nothing left to load.
func (r *Runner) runScroll(ctx context.Context, site extract.Site, canonicalURL string, pages int, label string) ([]models.ListingItem, error) {
	allocCtx, cancelAlloc := browser.NewAllocator(ctx, r.cfg)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Printf("["+label+"] "+format, args...)
		}),
	)
	defer cancelTab()

	driver, err := browser.NewChromeDriver(tabCtx, site)
	if err != nil {
		return nil, err
	}
	detector := &crawler.ScrollDetector{
		Driver:        driver,
		Site:          site,
		StableCycles:  r.cfg.StableCycles,
		ScrollRetries: r.cfg.ScrollRetries,
		SweepPasses:   r.cfg.SweepPasses,
		MaxCycles:     maxCycles(pages),
		ClickTimeout:  r.cfg.ClickTimeout,
		QuietWait:     r.cfg.QuietWait,
		Label:         label,
	}
	return detector.Run(ctx, canonicalURL)
}

func (r *Runner) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("GET %s: status %d", pageURL, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// maxCycles bounds the scroll loop: at least five cycles, more when
// the definition asks for a deeper crawl.
func maxCycles(pages int) int {
	if pages < 5 {
		return 5
	}
	return pages
}

func shortKey(identityKey string) string {
	if i := strings.Index(identityKey, ":"); i >= 0 && len(identityKey) > i+9 {
		return identityKey[i+1 : i+9]
	}
	return identityKey
}

