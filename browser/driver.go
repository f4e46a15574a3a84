package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ParraLuca/AlertMe/crawler"
	"github.com/ParraLuca/AlertMe/extract"
)

// ChromeDriver drives one Chrome tab for the scroll exhaustion loop.
// It watches network traffic for the catalog's load-more exchange so
// the detector can inspect the fragment the click actually fetched.
type ChromeDriver struct {
	tab      context.Context
	site     extract.Site
	exchange chan string
}

var _ crawler.BrowserDriver = (*ChromeDriver)(nil)

// NewChromeDriver attaches to a chromedp tab context and starts
// listening for responses from the site's fragment endpoint.
func NewChromeDriver(tab context.Context, site extract.Site) (*ChromeDriver, error) {
	d := &ChromeDriver{
		tab:      tab,
		site:     site,
		exchange: make(chan string, 4),
	}
	if err := chromedp.Run(tab, network.Enable()); err != nil {
		return nil, fmt.Errorf("enable network capture: %w", err)
	}
	chromedp.ListenTarget(tab, func(ev any) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || d.site.FragmentMarker == "" {
			return
		}
		if !strings.Contains(resp.Response.URL, d.site.FragmentMarker) || resp.Response.Status >= 400 {
			return
		}
		requestID := resp.RequestID
		go func() {
			c := chromedp.FromContext(d.tab)
			body, err := network.GetResponseBody(requestID).Do(cdp.WithExecutor(d.tab, c.Target))
			if err != nil {
				return
			}
			select {
			case d.exchange <- string(body):
			default:
			}
		}()
	})
	return d, nil
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := chromedp.Run(d.tab,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// A small jiggle wakes up lazy-loading frameworks.
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight/3)`, nil),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (d *ChromeDriver) HasLoadMore(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if d.site.LoadMoreSelector == "" {
		return false, nil
	}
	script := fmt.Sprintf(`(() => {
		const a = document.querySelector(%q);
		if (!a) return false;
		const r = a.getBoundingClientRect();
		const s = window.getComputedStyle(a);
		return !!(r.width || r.height) && s.display !== 'none' &&
			s.visibility !== 'hidden' && !a.classList.contains('disabled');
	})()`, d.site.LoadMoreSelector)
	var present bool
	if err := chromedp.Run(d.tab, chromedp.Evaluate(script, &present)); err != nil {
		return false, fmt.Errorf("probe load-more control: %w", err)
	}
	return present, nil
}

// ClickLoadMore activates the control and waits up to timeout for the
// confirming fragment response. A timeout is not an error: the click
// happened, the exchange just was not observed.
func (d *ChromeDriver) ClickLoadMore(ctx context.Context, timeout time.Duration) (bool, string, error) {
	present, err := d.HasLoadMore(ctx)
	if err != nil || !present {
		return false, "", err
	}

	// Drop stale exchanges so the wait below sees only this click's.
	for {
		select {
		case <-d.exchange:
			continue
		default:
		}
		break
	}

	clickCtx, cancel := context.WithTimeout(d.tab, timeout)
	defer cancel()
	if err := chromedp.Run(clickCtx,
		chromedp.Click(d.site.LoadMoreSelector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return false, "", fmt.Errorf("click load-more: %w", err)
	}

	select {
	case body := <-d.exchange:
		return true, body, nil
	case <-time.After(timeout):
		return true, "", nil
	case <-ctx.Done():
		return true, "", ctx.Err()
	}
}

func (d *ChromeDriver) ScrollToBottom(ctx context.Context, quiet time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := chromedp.Run(d.tab,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(quiet),
	)
	if err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

func (d *ChromeDriver) CardCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, d.site.CardSelector)
	var count int
	if err := chromedp.Run(d.tab, chromedp.Evaluate(script, &count)); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return count, nil
}

func (d *ChromeDriver) ScrollHeight(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var height int
	if err := chromedp.Run(d.tab, chromedp.Evaluate(`document.body.scrollHeight`, &height)); err != nil {
		return 0, fmt.Errorf("read scroll height: %w", err)
	}
	return height, nil
}

func (d *ChromeDriver) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var html string
	if err := chromedp.Run(d.tab, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("snapshot page: %w", err)
	}
	return html, nil
}
