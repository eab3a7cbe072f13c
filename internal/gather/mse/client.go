// Package mse implements data acquisition from the Macedonian Stock
// Exchange website: security discovery, currency checking, windowed history
// fetching, and the concurrent batch update pipeline.
package mse

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"berza/internal/domain"
	"berza/internal/util"
)

const dateParamFormat = "2006-01-02"

// Client issues rate-limited HTTP requests against the exchange website and
// parses the HTML responses. The site is a plain web frontend, not an API,
// so every request carries a browser User-Agent and is paced to stay polite.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *util.RateLimiter
}

// NewClient creates a Client for the given base URL (e.g.
// "https://www.mse.mk/en").
func NewClient(baseURL string, timeout time.Duration, ratePerMin int) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: util.NewRateLimiter(ratePerMin),
	}
}

// FetchWindow requests one security's history for a single bounded date
// range and returns the complete rows it contains. found is false when the
// page has no results table, which means zero trading days in the window
// rather than a failure.
func (c *Client) FetchWindow(ctx context.Context, code string, from, to time.Time) (points []domain.PricePoint, found bool, err error) {
	u := fmt.Sprintf("%s/stats/symbolhistory/%s?FromDate=%s&ToDate=%s",
		c.baseURL,
		url.PathEscape(code),
		from.Format(dateParamFormat),
		to.Format(dateParamFormat),
	)

	resp, err := c.get(ctx, u)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	return parseHistoryTable(resp.Body)
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("requesting %s: status %d", u, resp.StatusCode)
	}
	return resp, nil
}
