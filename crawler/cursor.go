package crawler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ParraLuca/AlertMe/extract"
	"github.com/ParraLuca/AlertMe/models"
)

// CursorEngine enumerates a catalog through its fragment endpoint with
// a strictly decreasing id cursor. The endpoint gives no stable offset
// pagination; each step instead asks for items older than the lowest id
// seen so far, falling through a fixed ladder of page-size and
// transport attempts until one yields progress. Running out of
// attempts, or of page budget, is normal completion.
type CursorEngine struct {
	Client    *http.Client
	Site      extract.Site
	UserAgent string
	PageSizes []int
	SortMode  int
	MaxPages  int
	Delay     func() time.Duration
	Label     string
}

// Run walks the endpoint until terminal and returns every item seen,
// deduplicated by id in discovery order.
func (e *CursorEngine) Run(ctx context.Context, endpoint string, basePayload map[string]any) ([]models.ListingItem, error) {
	var all []models.ListingItem
	seen := map[string]bool{}

	first, attempt, ok := e.step(ctx, endpoint, basePayload, WireParams{
		SortMode:    e.SortMode,
		IsFirstPage: true,
	}, func([]models.ListingItem) bool { return true })
	if !ok {
		log.Printf("[%s] ✗ first page: all attempts missed, treating catalog as empty", e.Label)
		return nil, nil
	}
	all = appendUnseen(all, first, seen)
	log.Printf("[%s] ✓ p1 sz=%d/%s → %d item(s)", e.Label, attempt.PageSize, attempt.Transport, len(first))

	cursor, ok := minNumericID(first)
	if !ok {
		log.Printf("[%s] ⚠ no numeric ids on first page, cursor walk not possible", e.Label)
		return all, nil
	}

	for page := 2; page <= e.MaxPages; page++ {
		e.politeness()

		prev := cursor
		var advancing []models.ListingItem
		items, attempt, ok := e.step(ctx, endpoint, basePayload, WireParams{
			SortMode:   e.SortMode,
			CursorID:   prev - 1,
			CanAdvance: true,
		}, func(items []models.ListingItem) bool {
			advancing = advancingItems(items, prev, seen)
			return len(advancing) > 0
		})
		if !ok {
			log.Printf("[%s] ✓ p%d: no attempt advanced past cursor %d, pagination complete", e.Label, page, prev)
			return all, nil
		}

		all = appendUnseen(all, items, seen)
		cursor, _ = minNumericID(advancing)
		log.Printf("[%s] ✓ p%d via cursor(%d) sz=%d/%s → +%d (total=%d) | new cursor=%d",
			e.Label, page, prev-1, attempt.PageSize, attempt.Transport, len(advancing), len(all), cursor)
	}

	log.Printf("[%s] ⚠ page budget (%d) exhausted, stopping with %d item(s)", e.Label, e.MaxPages, len(all))
	return all, nil
}

// step tries the attempt ladder in order until one attempt succeeds:
// the response is retrievable, carries an item marker, carries no
// no-results marker, extracts at least one item and satisfies the
// caller's progress check. Transport faults only consume the attempt.
func (e *CursorEngine) step(ctx context.Context, endpoint string, basePayload map[string]any,
	params WireParams, progressed func([]models.ListingItem) bool) ([]models.ListingItem, Attempt, bool) {

	for _, attempt := range attemptLadder(e.PageSizes) {
		if ctx.Err() != nil {
			return nil, Attempt{}, false
		}
		params.PageSize = attempt.PageSize
		payload, err := params.encode(basePayload)
		if err != nil {
			log.Printf("[%s] ✗ %v", e.Label, err)
			return nil, Attempt{}, false
		}
		body, err := fetchFragment(ctx, e.Client, endpoint, e.UserAgent, payload, attempt.Transport)
		if err != nil {
			log.Printf("[%s] ✗ attempt sz=%d/%s: %v", e.Label, attempt.PageSize, attempt.Transport, err)
			continue
		}
		if !hasAnyMarker(body, e.Site.ItemMarkers) || hasAnyMarker(body, e.Site.NoResultsMarkers) {
			continue
		}
		items, err := e.Site.Extractor.Extract(body)
		if err != nil {
			log.Printf("[%s] ✗ attempt sz=%d/%s: %v", e.Label, attempt.PageSize, attempt.Transport, err)
			continue
		}
		if len(items) == 0 || !progressed(items) {
			continue
		}
		return items, attempt, true
	}
	return nil, Attempt{}, false
}

func (e *CursorEngine) politeness() {
	if e.Delay != nil {
		time.Sleep(e.Delay())
	}
}

// advancingItems keeps the items that actually move the cursor: a
// numeric id strictly below the current cursor, not yet seen this
// crawl. Non-numeric ids never advance.
func advancingItems(items []models.ListingItem, cursor int64, seen map[string]bool) []models.ListingItem {
	var out []models.ListingItem
	for _, it := range items {
		n, numeric := it.NumericID()
		if numeric && n < cursor && !seen[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

func appendUnseen(dst, items []models.ListingItem, seen map[string]bool) []models.ListingItem {
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		dst = append(dst, it)
	}
	return dst
}

func minNumericID(items []models.ListingItem) (int64, bool) {
	var best int64
	found := false
	for _, it := range items {
		n, ok := it.NumericID()
		if !ok {
			continue
		}
		if !found || n < best {
			best = n
			found = true
		}
	}
	return best, found
}

func hasAnyMarker(body string, markers []string) bool {
	lower := strings.ToLower(body)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
