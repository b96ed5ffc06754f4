// internal/adapters/nhs/client.go
package nhs

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"

	"gp_reviews/internal/adapters/observability"
	"gp_reviews/internal/domain"
)

const maxBody = 8 << 20

type Options struct {
	RPS     float64
	Timeout time.Duration
	Retries int // extra attempts on 429/5xx; 0 fails fast
}

// Client fetches and parses NHS pages. It implements domain.DocumentFetcher.
type Client struct {
	hc      *http.Client
	rl      *rate.Limiter
	retries int
}

func New(o Options) *Client {
	if o.RPS <= 0 {
		o.RPS = 2
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	return &Client{
		hc:      &http.Client{Timeout: o.Timeout},
		rl:      rate.NewLimiter(rate.Limit(o.RPS), max(1, int(o.RPS))),
		retries: o.Retries,
	}
}

func (c *Client) Fetch(ctx context.Context, u string) (*goquery.Document, error) {
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	doc, err := goquery.NewDocumentFromReader(decode(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}
	return doc, nil
}

// get performs a GET with client-side rate limiting and returns the body.
// Retries (when enabled) cover 429 and transient 5xx, honoring Retry-After.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	endpoint := endpointOf(u)

	var lastErr error
	for i := 0; i <= c.retries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		req.Header.Set("User-Agent", "gp-reviews/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("nhs", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < c.retries && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return nil, lastErr
		}
		observability.ObserveExternal("nhs", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			resp.Body.Close()
			return b, err

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return nil, domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return nil, domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < c.retries && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no attempt made")
	}
	return nil, lastErr
}

// decode passes UTF-8 through and treats anything else as Windows-1252,
// which is what the legacy .aspx pages are served in.
func decode(b []byte) io.Reader {
	if utf8.Valid(b) {
		return bytes.NewReader(b)
	}
	return charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(b))
}

// endpointOf labels metrics by page kind rather than full URL.
func endpointOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "unknown"
	}
	p := strings.ToLower(u.Path)
	switch {
	case strings.Contains(p, "/reviewsandratings/"):
		return "reviews"
	case strings.Contains(p, "/overview/"):
		return "overview"
	case strings.Contains(p, "hospitallist"):
		return "directory"
	default:
		return "other"
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
