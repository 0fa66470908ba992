package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glitchymagic/cardpulse/internal/card"
)

func testClient() *Client {
	// A high budget keeps the limiter out of the way in tests.
	return NewClient(5*time.Second, 6000)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Pokemon TCG</title>
  <item>
    <title>Moonbreon is undervalued</title>
    <description>Picked up three copies, market feels below market value</description>
    <guid>post-1</guid>
    <author>collector1</author>
    <pubDate>Tue, 10 Mar 2026 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Mail day</title>
    <description>Look at this binder</description>
    <link>https://example.com/post-2</link>
    <pubDate>Tue, 10 Mar 2026 08:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func rssTarget(url string) *card.MonitoringTarget {
	return &card.MonitoringTarget{Kind: card.KindCommunity, Handle: "r/test", URL: url, Weight: 0.9}
}

func TestRSSFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := NewRSSFetcher(testClient(), fixedClock(now))

	obs, err := f.Fetch(context.Background(), rssTarget(srv.URL))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}

	first := obs[0]
	if first.Kind != card.KindCommunity || first.Target != "r/test" {
		t.Errorf("target fields mismatch: %+v", first)
	}
	if first.Text != "Moonbreon is undervalued Picked up three copies, market feels below market value" {
		t.Errorf("unexpected text %q", first.Text)
	}
	if !first.DetectedAt.Equal(now) {
		t.Errorf("detected at should be the fetch time, got %v", first.DetectedAt)
	}
	if first.PostedAt.UTC().Hour() != 9 {
		t.Errorf("posted at should come from pubDate, got %v", first.PostedAt)
	}
	if first.Engagement != (card.Engagement{}) {
		t.Errorf("feed entries carry no engagement, got %+v", first.Engagement)
	}
}

func TestRSSFetchStableIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	f := NewRSSFetcher(testClient(), nil)

	first, err := f.Fetch(context.Background(), rssTarget(srv.URL))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	second, err := f.Fetch(context.Background(), rssTarget(srv.URL))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Same posts across cycles keep the same ids so dedup can work.
	for i := range first {
		if first[i].ObservationID != second[i].ObservationID {
			t.Errorf("observation id not stable: %s vs %s", first[i].ObservationID, second[i].ObservationID)
		}
	}
	if first[0].ObservationID == first[1].ObservationID {
		t.Error("distinct posts must get distinct ids")
	}
}

func TestRSSFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewRSSFetcher(testClient(), nil)
	if _, err := f.Fetch(context.Background(), rssTarget(srv.URL)); err == nil {
		t.Error("expected error on non-200 response")
	}
}

const pageFixture = `<html><body>
<div class="timeline-item">
  <div class="tweet-content">moonbreon quietly buying opportunity, this card is undervalued</div>
  <span class="tweet-date"><a href="/poketrendz/status/1" title="Mar 10, 2026 · 9:00 AM UTC">9h</a></span>
  <span class="tweet-stat"><span class="icon-comment"></span> 12</span>
  <span class="tweet-stat"><span class="icon-retweet"></span> 1,204</span>
  <span class="tweet-stat"><span class="icon-heart"></span> 98</span>
</div>
<div class="timeline-item">
  <div class="tweet-content">no permalink on this one</div>
  <span class="tweet-date"></span>
</div>
<div class="timeline-item">
  <div class="tweet-content"></div>
  <span class="tweet-date"><a href="/poketrendz/status/3">1h</a></span>
</div>
</body></html>`

func TestPageFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageFixture))
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := NewPageFetcher(testClient(), fixedClock(now))
	target := &card.MonitoringTarget{Kind: card.KindAuthor, Handle: "@poketrendz", URL: srv.URL, Weight: 1.0}

	obs, err := f.Fetch(context.Background(), target)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// Posts without permalink or text are skipped.
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}

	got := obs[0]
	if got.Author != "@poketrendz" || got.Kind != card.KindAuthor {
		t.Errorf("author fields mismatch: %+v", got)
	}
	want := card.Engagement{Replies: 12, Shares: 1204, Approvals: 98}
	if got.Engagement != want {
		t.Errorf("engagement mismatch: got %+v, want %+v", got.Engagement, want)
	}
	if got.PostedAt.Hour() != 9 {
		t.Errorf("posted at should parse the title timestamp, got %v", got.PostedAt)
	}
	if !got.DetectedAt.Equal(now) {
		t.Errorf("detected at should be the fetch time, got %v", got.DetectedAt)
	}
}

func TestParsePostTime(t *testing.T) {
	got, err := parsePostTime("Mar 10, 2026 · 9:00 AM UTC")
	if err != nil {
		t.Fatalf("parsePostTime: %v", err)
	}
	if got.Hour() != 9 || got.Day() != 10 {
		t.Errorf("unexpected time %v", got)
	}

	if _, err := parsePostTime("yesterday-ish"); err == nil {
		t.Error("expected error for unrecognized format")
	}
}

func TestFetchRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewRSSFetcher(testClient(), nil)
	if _, err := f.Fetch(ctx, rssTarget(srv.URL)); err == nil {
		t.Error("expected error when context expires mid-fetch")
	}
}
