package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/glitchymagic/cardpulse/internal/card"
)

// PageFetcher retrieves author observations from lightweight HTML mirrors
// of author timelines. It parses static markup only - no browser automation.
type PageFetcher struct {
	client *Client
	clock  func() time.Time
}

// NewPageFetcher creates a PageFetcher sharing the given client.
func NewPageFetcher(client *Client, clock func() time.Time) *PageFetcher {
	if clock == nil {
		clock = time.Now
	}
	return &PageFetcher{client: client, clock: clock}
}

// Fetch downloads the author page and extracts posts with their engagement
// counters. Posts that fail to parse individually are skipped; a page that
// yields no posts at all is not an error - the author may simply be quiet.
func (f *PageFetcher) Fetch(ctx context.Context, target *card.MonitoringTarget) ([]card.RawObservation, error) {
	resp, err := f.client.get(ctx, target.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", target.URL, err)
	}

	now := f.clock()
	var obs []card.RawObservation

	doc.Find(".timeline-item").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Find(".tweet-content").Text())
		if text == "" {
			return
		}

		link, _ := sel.Find(".tweet-date a").Attr("href")
		if link == "" {
			// No permalink means no stable identity; skip rather than risk
			// double counting under a synthetic id.
			return
		}

		posted := now
		if title, ok := sel.Find(".tweet-date a").Attr("title"); ok {
			if t, err := parsePostTime(title); err == nil {
				posted = t
			}
		}

		obs = append(obs, card.RawObservation{
			ObservationID: observationID(link),
			Kind:          target.Kind,
			Target:        target.Handle,
			Author:        target.Handle,
			Text:          text,
			PostedAt:      posted,
			DetectedAt:    now,
			Engagement: card.Engagement{
				Replies:   statCount(sel, ".icon-comment"),
				Shares:    statCount(sel, ".icon-retweet"),
				Approvals: statCount(sel, ".icon-heart"),
			},
		})
	})

	return obs, nil
}

// statCount reads the numeric counter next to a stat icon, tolerating
// thousands separators and missing values.
func statCount(sel *goquery.Selection, iconClass string) int {
	raw := strings.TrimSpace(sel.Find(".tweet-stat").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(iconClass).Length() > 0
	}).Text())
	raw = strings.ReplaceAll(raw, ",", "")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// parsePostTime handles the timestamp formats the mirrors use.
func parsePostTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"Jan 2, 2006 · 3:04 PM UTC",
		"Jan 2, 2006 · 15:04 UTC",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
