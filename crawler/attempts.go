package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Transport selects where the fragment payload travels: in the request
// target or in the request body. GET is primary, POST the fallback.
type Transport string

const (
	TransportGet  Transport = "GET"
	TransportPost Transport = "POST"
)

// Attempt is one page-size/transport combination tried during a single
// pagination step.
type Attempt struct {
	PageSize  int
	Transport Transport
}

// attemptLadder builds the fixed attempt order for one step: every
// page size, GET before POST.
func attemptLadder(pageSizes []int) []Attempt {
	out := make([]Attempt, 0, len(pageSizes)*2)
	for _, size := range pageSizes {
		out = append(out, Attempt{PageSize: size, Transport: TransportGet})
		out = append(out, Attempt{PageSize: size, Transport: TransportPost})
	}
	return out
}

// WireParams are the fragment endpoint's pagination controls for one
// attempt. Field names follow the endpoint's own contract.
type WireParams struct {
	SortMode    int
	PageSize    int
	CursorID    int64
	IsFirstPage bool
	CanAdvance  bool
}

// encode merges the controls into the endpoint's base payload. The
// first page is requested by page number zero with no cursor; every
// later page carries only the decreasing cursor.
func (p WireParams) encode(base map[string]any) ([]byte, error) {
	payload := make(map[string]any, len(base)+6)
	for k, v := range base {
		payload[k] = v
	}
	payload["SortParameter"] = p.SortMode
	payload["MaxItemsPerPage"] = p.PageSize
	payload["FirstPage"] = p.IsFirstPage
	payload["CanGetNextPage"] = p.CanAdvance
	if p.IsFirstPage {
		payload["PageNumber"] = 0
		if _, ok := payload["BaseEstateID"]; !ok {
			payload["BaseEstateID"] = 0
		}
	} else {
		delete(payload, "PageNumber")
		payload["BaseEstateID"] = p.CursorID
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode wire payload: %w", err)
	}
	return b, nil
}

// fetchFragment performs one attempt against the fragment endpoint and
// returns the raw response body. Errors here are transport misses: the
// caller moves on to the next attempt.
func fetchFragment(ctx context.Context, client *http.Client, endpoint, userAgent string,
	payload []byte, transport Transport) (string, error) {

	var req *http.Request
	var err error
	switch transport {
	case TransportPost:
		form := url.Values{"json": {string(payload)}}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
			strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
		}
	default:
		q := url.Values{"json": {string(payload)}}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	}
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", transport, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "text/html, */*; q=0.01")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", transport, endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s %s: status %d", transport, endpoint, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read fragment body: %w", err)
	}
	return string(body), nil
}

// DecodeFragmentURL splits a discovered fragment href into its bare
// endpoint and the base payload embedded in its json parameter.
func DecodeFragmentURL(href string) (endpoint string, base map[string]any, err error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", nil, fmt.Errorf("parse fragment href: %w", err)
	}
	raw := u.Query().Get("json")
	base = map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &base); err != nil {
			if unq, uerr := url.QueryUnescape(raw); uerr == nil {
				if err2 := json.Unmarshal([]byte(unq), &base); err2 != nil {
					return "", nil, fmt.Errorf("decode fragment payload: %w", err2)
				}
			} else {
				return "", nil, fmt.Errorf("decode fragment payload: %w", err)
			}
		}
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), base, nil
}
