// internal/adapters/reviewsapi/client.go
package reviewsapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

// Client talks to a running review analyzer over HTTP.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", base)
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) Query(ctx context.Context, f domain.FilterSpec) ([]domain.ScoredReview, error) {
	q := url.Values{}
	if f.Location != "" {
		q.Set("location", f.Location)
	}
	if f.StartDate != "" {
		q.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("end_date", f.EndDate)
	}
	u := c.base + "/reviews"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var out []domain.ScoredReview
	err := c.do(ctx, http.MethodGet, u, nil, &out)
	return out, err
}

func (c *Client) Submit(ctx context.Context, location, body string) (domain.ScoredReview, error) {
	payload, err := json.Marshal(map[string]string{"location": location, "body": body})
	if err != nil {
		return domain.ScoredReview{}, err
	}
	var out domain.ScoredReview
	err = c.do(ctx, http.MethodPost, c.base+"/reviews", payload, &out)
	return out, err
}

// ---- Internals ----

// ErrRemote wraps non-retryable server failures.
var ErrRemote = errors.New("reviews api: remote error")

type problem struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// problemErr maps a 4xx problem body back onto the domain errors.
func problemErr(status int, b []byte) error {
	var p problem
	_ = json.Unmarshal(b, &p)
	switch p.Code {
	case "InvalidInput":
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, p.Detail)
	case "InvalidFilter":
		return fmt.Errorf("%w: %s", domain.ErrInvalidFilter, p.Detail)
	case "UnsupportedOperation":
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedOperation, p.Detail)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRemote, status, strings.TrimSpace(string(b)))
}

// do performs one call with client-side rate limiting, retries, and JSON
// decode into out. Retries on 429 and transient 5xx, honoring Retry-After.
// A POST may already be stored when a 5xx or a broken connection comes back,
// so writes only retry on 429 and on failures to connect.
func (c *Client) do(ctx context.Context, method, u string, body []byte, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	endpoint := method + " /reviews"
	idempotent := method != http.MethodPost

	var lastErr error
	for i := 0; i < 4; i++ {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, rd)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "reviewctl/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("reviews", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if !idempotent && !notSent(err) {
				return err
			}
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("reviews", endpoint, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
			if !idempotent && resp.StatusCode != http.StatusTooManyRequests {
				return lastErr
			}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return problemErr(resp.StatusCode, b)
		}
	}
	return lastErr
}

// notSent reports whether err came from dialing, before the request left.
func notSent(err error) bool {
	var op *net.OpError
	return errors.As(err, &op) && op.Op == "dial"
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

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
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

// backoff: 100ms, 200ms, 400ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 100 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
