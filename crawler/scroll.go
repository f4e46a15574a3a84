package crawler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ParraLuca/AlertMe/extract"
	"github.com/ParraLuca/AlertMe/models"
)

// BrowserDriver is the rendered-page surface the scroll detector works
// against. The chromedp implementation lives in the browser package; a
// scripted fake stands in for it in tests.
type BrowserDriver interface {
	Navigate(ctx context.Context, url string) error
	HasLoadMore(ctx context.Context) (bool, error)
	// ClickLoadMore activates the control when present and waits up to
	// timeout for the confirming network exchange. exchangeBody is
	// empty when no exchange was observed in time.
	ClickLoadMore(ctx context.Context, timeout time.Duration) (clicked bool, exchangeBody string, err error)
	ScrollToBottom(ctx context.Context, quiet time.Duration) error
	CardCount(ctx context.Context) (int, error)
	ScrollHeight(ctx context.Context) (int, error)
	Content(ctx context.Context) (string, error)
}

// ScrollDetector proves a rendered catalog page is exhausted. It
// cycles click-load-more plus forced bottom scrolls, watching rendered
// card count and document height; a run of no-progress cycles with the
// control gone ends the loop, followed by a final sweep that may still
// resurrect it. Exceeding the cycle budget also ends the loop; that is
// completion, not failure.
type ScrollDetector struct {
	Driver        BrowserDriver
	Site          extract.Site
	StableCycles  int
	ScrollRetries int
	SweepPasses   int
	MaxCycles     int
	ClickTimeout  time.Duration
	QuietWait     time.Duration
	Label         string
}

func (d *ScrollDetector) Run(ctx context.Context, listURL string) ([]models.ListingItem, error) {
	if err := d.Driver.Navigate(ctx, listURL); err != nil {
		return nil, fmt.Errorf("open list page: %w", err)
	}

	stable := 0
	backendExhausted := false
	lastCards, err := d.Driver.CardCount(ctx)
	if err != nil {
		return nil, err
	}
	lastHeight, err := d.Driver.ScrollHeight(ctx)
	if err != nil {
		return nil, err
	}

	terminal := false
	for cycle := 0; cycle < d.MaxCycles && !terminal; cycle++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		_, exchange, err := d.Driver.ClickLoadMore(ctx, d.ClickTimeout)
		if err != nil {
			log.Printf("[%s] ⚠ load-more click: %v", d.Label, err)
		}
		if exchange != "" && !hasAnyMarker(exchange, d.Site.ItemMarkers) {
			if !backendExhausted {
				log.Printf("[%s] load-more exchange carried no items, backend exhausted", d.Label)
			}
			backendExhausted = true
		}

		for i := 0; i < d.ScrollRetries; i++ {
			if err := d.Driver.ScrollToBottom(ctx, d.QuietWait); err != nil {
				log.Printf("[%s] ⚠ scroll: %v", d.Label, err)
				break
			}
		}

		cards, err := d.Driver.CardCount(ctx)
		if err != nil {
			return nil, err
		}
		height, err := d.Driver.ScrollHeight(ctx)
		if err != nil {
			return nil, err
		}
		if cards > lastCards || height > lastHeight {
			stable = 0
			lastCards = cards
			lastHeight = height
			continue
		}
		stable++

		hasMore, err := d.Driver.HasLoadMore(ctx)
		if err != nil {
			return nil, err
		}
		log.Printf("[%s] no progress (%d/%d) · cards=%d · height=%d · load_more=%v · backend_empty=%v",
			d.Label, stable, d.StableCycles, cards, height, hasMore, backendExhausted)

		threshold := d.StableCycles
		if backendExhausted && threshold > 1 {
			threshold = 1
		}
		if stable < threshold || hasMore {
			continue
		}

		// Final sweep: a last chance for content arriving just after
		// the stability threshold. Growth resumes the loop.
		grew, err := d.finalSweep(ctx, lastCards)
		if err != nil {
			return nil, err
		}
		if grew > 0 {
			log.Printf("[%s] final sweep found %d more card(s), resuming", d.Label, grew)
			stable = 0
			lastCards += grew
			continue
		}
		terminal = true
	}
	if !terminal {
		log.Printf("[%s] ⚠ cycle budget (%d) exhausted, treating as terminal", d.Label, d.MaxCycles)
	} else {
		log.Printf("[%s] ✓ scroll exhaustion confirmed · cards=%d · backend_empty=%v", d.Label, lastCards, backendExhausted)
	}

	content, err := d.Driver.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("final page snapshot: %w", err)
	}
	return d.Site.Extractor.Extract(content)
}

func (d *ScrollDetector) finalSweep(ctx context.Context, before int) (int, error) {
	for i := 0; i < d.SweepPasses; i++ {
		if err := d.Driver.ScrollToBottom(ctx, d.QuietWait); err != nil {
			return 0, err
		}
	}
	after, err := d.Driver.CardCount(ctx)
	if err != nil {
		return 0, err
	}
	if after > before {
		return after - before, nil
	}
	return 0, nil
}
