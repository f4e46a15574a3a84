package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParraLuca/AlertMe/extract"
)

func testSite(baseURL string) extract.Site {
	return extract.Site{
		ID:               "test",
		Mode:             extract.ModeCursor,
		ItemMarkers:      []string{"listing-card"},
		NoResultsMarkers: []string{"no-results"},
		Extractor: extract.CardExtractor{
			BaseURL:      baseURL,
			StrictAnchor: "a.listing-card",
			DetailPath:   regexp.MustCompile(`/item/`),
			IDPattern:    regexp.MustCompile(`/item/([0-9a-z-]+)`),
		},
	}
}

// fakeCatalog serves a fragment endpoint over a fixed set of
// descending numeric ids, honoring the first-page/cursor payload.
type fakeCatalog struct {
	ids        []int64 // descending
	slugCards  bool    // sprinkle a non-numeric card into each page
	rejectGets bool
	cursors    []int64 // BaseEstateID of every cursor request, in order
}

func (c *fakeCatalog) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.rejectGets && r.Method == http.MethodGet {
			http.Error(w, "method not supported", http.StatusInternalServerError)
			return
		}
		raw := r.URL.Query().Get("json")
		if raw == "" {
			_ = r.ParseForm()
			raw = r.PostFormValue("json")
		}
		var p struct {
			MaxItemsPerPage int   `json:"MaxItemsPerPage"`
			BaseEstateID    int64 `json:"BaseEstateID"`
			FirstPage       bool  `json:"FirstPage"`
		}
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		var page []int64
		for _, id := range c.ids {
			if !p.FirstPage {
				if p.BaseEstateID == 0 || id > p.BaseEstateID {
					continue
				}
			}
			page = append(page, id)
			if len(page) == p.MaxItemsPerPage {
				break
			}
		}
		if !p.FirstPage {
			c.cursors = append(c.cursors, p.BaseEstateID)
		}
		if len(page) == 0 {
			fmt.Fprint(w, `<div class="no-results">rien</div>`)
			return
		}
		var b strings.Builder
		for _, id := range page {
			fmt.Fprintf(&b, `<a class="listing-card" href="/item/%d/x">Item %d</a>`, id, id)
		}
		if c.slugCards {
			b.WriteString(`<a class="listing-card" href="/item/special-offer">Special</a>`)
		}
		fmt.Fprint(w, b.String())
	}
}

func newCursorEngine(serverURL string, maxPages int, sizes ...int) *CursorEngine {
	if len(sizes) == 0 {
		sizes = []int{3}
	}
	return &CursorEngine{
		Client:    http.DefaultClient,
		Site:      testSite(serverURL),
		UserAgent: "test-agent",
		PageSizes: sizes,
		SortMode:  5,
		MaxPages:  maxPages,
		Label:     "test",
	}
}

func TestCursorEngineWalksToExhaustion(t *testing.T) {
	catalog := &fakeCatalog{ids: []int64{200, 190, 180, 170, 160, 150, 140, 130, 120, 110}}
	srv := httptest.NewServer(catalog.handler())
	defer srv.Close()

	items, err := newCursorEngine(srv.URL, 20).Run(context.Background(), srv.URL+"/fragment", nil)
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, "200", items[0].ID)
	assert.Equal(t, "110", items[9].ID)

	// Each step asks strictly below the previous watermark; fallback
	// attempts within one step repeat the same cursor.
	var steps []int64
	for _, c := range catalog.cursors {
		if len(steps) == 0 || steps[len(steps)-1] != c {
			steps = append(steps, c)
		}
	}
	require.Greater(t, len(steps), 1)
	for i := 1; i < len(steps); i++ {
		assert.Less(t, steps[i], steps[i-1])
	}
}

func TestCursorEngineFallsBackToPost(t *testing.T) {
	catalog := &fakeCatalog{ids: []int64{30, 20, 10}, rejectGets: true}
	srv := httptest.NewServer(catalog.handler())
	defer srv.Close()

	items, err := newCursorEngine(srv.URL, 5).Run(context.Background(), srv.URL+"/fragment", nil)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestCursorEngineHonorsPageBudget(t *testing.T) {
	catalog := &fakeCatalog{ids: []int64{100, 90, 80, 70, 60, 50, 40, 30, 20, 10}}
	srv := httptest.NewServer(catalog.handler())
	defer srv.Close()

	items, err := newCursorEngine(srv.URL, 2).Run(context.Background(), srv.URL+"/fragment", nil)
	require.NoError(t, err)
	assert.Len(t, items, 6, "two pages of three")
}

func TestCursorEngineEmptyCatalog(t *testing.T) {
	catalog := &fakeCatalog{}
	srv := httptest.NewServer(catalog.handler())
	defer srv.Close()

	items, err := newCursorEngine(srv.URL, 5).Run(context.Background(), srv.URL+"/fragment", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCursorEngineRetainsSlugIDsWithoutAdvancingOnThem(t *testing.T) {
	catalog := &fakeCatalog{ids: []int64{30, 20, 10}, slugCards: true}
	srv := httptest.NewServer(catalog.handler())
	defer srv.Close()

	items, err := newCursorEngine(srv.URL, 5).Run(context.Background(), srv.URL+"/fragment", nil)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, it := range items {
		ids[it.ID] = true
	}
	assert.True(t, ids["special-offer"], "slug item kept in the result set")
	assert.Len(t, items, 4, "slug item deduplicated across pages")
}

func TestCursorEngineBaseEstateIDStartsUnset(t *testing.T) {
	p := WireParams{SortMode: 5, PageSize: 12, IsFirstPage: true}
	raw, err := p.encode(map[string]any{"EstateRegion": 2})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, 0, decoded["BaseEstateID"])
	assert.EqualValues(t, 0, decoded["PageNumber"])
	assert.EqualValues(t, 2, decoded["EstateRegion"], "base payload fields survive")
	assert.Equal(t, true, decoded["FirstPage"])
	assert.Equal(t, false, decoded["CanGetNextPage"])
}

func TestDecodeFragmentURL(t *testing.T) {
	endpoint, base, err := DecodeFragmentURL(
		`https://www.immo-kh.be/fr/List/InfiniteScroll?json=%7B%22EstateRegion%22%3A2%2C%22SortParameter%22%3A5%7D`)
	require.NoError(t, err)
	assert.Equal(t, "https://www.immo-kh.be/fr/List/InfiniteScroll", endpoint)
	assert.EqualValues(t, 2, base["EstateRegion"])

	endpoint, base, err = DecodeFragmentURL("https://www.immo-kh.be/fr/List/InfiniteScroll")
	require.NoError(t, err)
	assert.Equal(t, "https://www.immo-kh.be/fr/List/InfiniteScroll", endpoint)
	assert.Empty(t, base)
}
