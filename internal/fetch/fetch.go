// Package fetch retrieves raw observations from monitoring targets.
//
// Two collaborator fetchers ship with the engine: an RSS/Atom fetcher for
// community feeds and an HTML fetcher for individual author pages. Both
// share an outbound rate limiter on top of the scheduler's jitter, honor
// context cancellation, and convert everything into card.RawObservation.
// A failed fetch is reported as an error and treated upstream exactly like
// zero observations.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/glitchymagic/cardpulse/internal/card"
)

const userAgent = "cardpulse/1.0 (+https://github.com/glitchymagic/cardpulse)"

// Fetcher retrieves observations for one monitoring target.
type Fetcher interface {
	Fetch(ctx context.Context, target *card.MonitoringTarget) ([]card.RawObservation, error)
}

// Client is the shared HTTP client plus outbound rate limiter used by all
// fetchers. One Client serves every polling loop so the request budget is
// global, not per source kind.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client allowing requestsPerMinute outbound requests.
func NewClient(timeout time.Duration, requestsPerMinute int) *Client {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// get performs a rate-limited GET. The caller owns the response body.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}
	return resp, nil
}

// observationID creates a stable id for a post so the same post fetched in
// different cycles deduplicates.
func observationID(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:8])
}
