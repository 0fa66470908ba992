package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/glitchymagic/cardpulse/internal/card"
)

// RSSFetcher retrieves community-feed observations from RSS/Atom feeds.
type RSSFetcher struct {
	client *Client
	clock  func() time.Time
}

// NewRSSFetcher creates an RSSFetcher sharing the given client.
func NewRSSFetcher(client *Client, clock func() time.Time) *RSSFetcher {
	if clock == nil {
		clock = time.Now
	}
	return &RSSFetcher{client: client, clock: clock}
}

// Fetch downloads and parses the target's feed. Feed entries carry no
// engagement counters, so those stay zero; the scoring pipeline treats a
// zero engagement rate as a neutral multiplier.
func (f *RSSFetcher) Fetch(ctx context.Context, target *card.MonitoringTarget) ([]card.RawObservation, error) {
	resp, err := f.client.get(ctx, target.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", target.URL, err)
	}

	now := f.clock()
	obs := make([]card.RawObservation, 0, len(feed.Items))
	for _, entry := range feed.Items {
		posted := now
		if entry.PublishedParsed != nil {
			posted = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			posted = *entry.UpdatedParsed
		}

		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}

		key := entry.GUID
		if key == "" {
			key = entry.Link
		}
		if key == "" {
			key = entry.Title + posted.String()
		}

		obs = append(obs, card.RawObservation{
			ObservationID: observationID(key),
			Kind:          target.Kind,
			Target:        target.Handle,
			Author:        author,
			Text:          strings.TrimSpace(entry.Title + " " + entry.Description),
			PostedAt:      posted,
			DetectedAt:    now,
		})
	}

	return obs, nil
}
