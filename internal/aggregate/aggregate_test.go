package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/glitchymagic/cardpulse/internal/card"
)

const window = 72 * time.Hour

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDecayMonotonic(t *testing.T) {
	prev := Decay(0, window)
	if prev != 1.0 {
		t.Fatalf("decay at age zero should be 1, got %f", prev)
	}
	for h := 1; h <= 72; h++ {
		d := Decay(time.Duration(h)*time.Hour, window)
		if d >= prev {
			t.Errorf("decay not strictly decreasing at %dh: %f >= %f", h, d, prev)
		}
		prev = d
	}
}

func TestDecayBoundary(t *testing.T) {
	if d := Decay(window, window); d != 0 {
		t.Errorf("decay at window boundary should be exactly 0, got %f", d)
	}
	if d := Decay(window+time.Hour, window); d != 0 {
		t.Errorf("decay past window should be exactly 0, got %f", d)
	}
	if d := Decay(24*time.Hour, window); !almostEqual(d, 2.0/3.0) {
		t.Errorf("decay at 24h of 72h should be 2/3, got %f", d)
	}
	if d := Decay(-time.Hour, window); d != 1.0 {
		t.Errorf("future-dated signals should not exceed factor 1, got %f", d)
	}
}

func sig(kind card.SourceKind, entity, author string, strength float64, at time.Time, hits ...card.PatternHit) card.Signal {
	return card.Signal{
		ID:            entity + at.String(),
		Kind:          kind,
		ObservationID: entity + "-" + at.Format(time.RFC3339) + "-" + author,
		Author:        author,
		EntityID:      entity,
		Strength:      strength,
		Patterns:      hits,
		DetectedAt:    at,
	}
}

func TestBySourceDecayedTotals(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	hit := card.PatternHit{Pattern: "undervalued", Strength: 1.5, Matches: 1}

	signals := []card.Signal{
		sig(card.KindCommunity, "umbreon-vmax-alt", "u1", 1.0, now.Add(-1*time.Hour), hit),
		sig(card.KindCommunity, "umbreon-vmax-alt", "u2", 1.0, now.Add(-2*time.Hour), hit),
		sig(card.KindCommunity, "umbreon-vmax-alt", "u3", 1.0, now.Add(-3*time.Hour), hit),
	}

	bySource := BySource(signals, now, window)
	agg := bySource[card.KindCommunity]["umbreon-vmax-alt"]
	if agg == nil {
		t.Fatal("expected community aggregate for umbreon-vmax-alt")
	}

	// (1-1/72) + (1-2/72) + (1-3/72) = 3 - 6/72
	want := 3.0 - 6.0/72.0
	if !almostEqual(agg.Total, want) {
		t.Errorf("expected decayed total %f, got %f", want, agg.Total)
	}
	if agg.Mentions != 3 {
		t.Errorf("expected 3 mentions, got %d", agg.Mentions)
	}
	if agg.DistinctAuthors != 3 {
		t.Errorf("expected 3 distinct authors, got %d", agg.DistinctAuthors)
	}
	if agg.DominantPattern != "undervalued" {
		t.Errorf("expected dominant undervalued, got %s", agg.DominantPattern)
	}
	if !agg.LastSignal.Equal(now.Add(-1 * time.Hour)) {
		t.Errorf("expected last signal at -1h, got %v", agg.LastSignal)
	}
}

func TestBySourceSkipsExpired(t *testing.T) {
	now := time.Now()
	signals := []card.Signal{
		sig(card.KindCommunity, "charizard-base", "u1", 1.0, now.Add(-73*time.Hour),
			card.PatternHit{Pattern: "hype-surge", Strength: 1.4, Matches: 1}),
	}
	bySource := BySource(signals, now, window)
	if len(bySource) != 0 {
		t.Errorf("expired signals should produce no aggregates, got %v", bySource)
	}
}

func TestBySourceSeparatesKinds(t *testing.T) {
	now := time.Now()
	hit := card.PatternHit{Pattern: "supply-shock", Strength: 1.6, Matches: 1}
	signals := []card.Signal{
		sig(card.KindCommunity, "lugia-neo-genesis", "u1", 0.5, now.Add(-time.Hour), hit),
		sig(card.KindAuthor, "lugia-neo-genesis", "a1", 0.6, now.Add(-time.Hour), hit),
	}

	bySource := BySource(signals, now, window)
	if bySource[card.KindCommunity]["lugia-neo-genesis"] == nil {
		t.Error("missing community aggregate")
	}
	if bySource[card.KindAuthor]["lugia-neo-genesis"] == nil {
		t.Error("missing author aggregate")
	}
}

func TestDominantPatternTieBreak(t *testing.T) {
	got := dominant(map[string]float64{"hype-surge": 2.0, "grading-focus": 2.0})
	if got != "grading-focus" {
		t.Errorf("ties should break lexicographically, got %s", got)
	}
}

func TestSignalLogDedup(t *testing.T) {
	l := NewSignalLog(window)
	now := time.Now()
	s := sig(card.KindCommunity, "gengar-vmax-alt", "u1", 0.4, now)

	if !l.Append(s) {
		t.Fatal("first append should be accepted")
	}
	if l.Append(s) {
		t.Error("duplicate observation should be rejected")
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 signal, got %d", l.Len())
	}

	// Same observation id on a different source is a distinct signal.
	other := s
	other.Kind = card.KindAuthor
	if !l.Append(other) {
		t.Error("same observation id on another source kind should be accepted")
	}
}

func TestSignalLogMarkSeen(t *testing.T) {
	l := NewSignalLog(window)
	l.MarkSeen(card.KindCommunity, "obs-1")

	if !l.Seen(card.KindCommunity, "obs-1") {
		t.Error("marked observation should be seen")
	}
	if l.Seen(card.KindAuthor, "obs-1") {
		t.Error("seen is scoped per source kind")
	}
	if l.Len() != 0 {
		t.Error("MarkSeen must not add signals")
	}
}

func TestSignalLogSnapshotExcludesExpired(t *testing.T) {
	l := NewSignalLog(window)
	now := time.Now()
	l.Append(sig(card.KindCommunity, "e1", "u1", 0.5, now.Add(-time.Hour)))
	l.Append(sig(card.KindCommunity, "e2", "u2", 0.5, now.Add(-80*time.Hour)))

	snap := l.Snapshot(now)
	if len(snap) != 1 {
		t.Fatalf("expected 1 live signal in snapshot, got %d", len(snap))
	}
	if snap[0].EntityID != "e1" {
		t.Errorf("expected e1, got %s", snap[0].EntityID)
	}
}

func TestSignalLogPrune(t *testing.T) {
	l := NewSignalLog(window)
	now := time.Now()
	old := sig(card.KindCommunity, "e1", "u1", 0.5, now.Add(-80*time.Hour))
	l.Append(old)
	l.Append(sig(card.KindCommunity, "e2", "u2", 0.5, now.Add(-time.Hour)))

	if pruned := l.Prune(now); pruned != 1 {
		t.Errorf("expected 1 pruned, got %d", pruned)
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 remaining, got %d", l.Len())
	}
	// Pruning frees the dedup key so the same post could signal again later.
	if !l.Append(old) {
		t.Error("pruned observation id should be appendable again")
	}
}

func TestSignalLogLoad(t *testing.T) {
	l := NewSignalLog(window)
	now := time.Now()
	persisted := []card.Signal{
		sig(card.KindCommunity, "e1", "u1", 0.5, now.Add(-time.Hour)),
		sig(card.KindCommunity, "e2", "u2", 0.5, now.Add(-80*time.Hour)),
		sig(card.KindCommunity, "e1", "u1", 0.5, now.Add(-time.Hour)),
	}

	if loaded := l.Load(persisted, now); loaded != 1 {
		t.Errorf("expected 1 loaded (expired and duplicate skipped), got %d", loaded)
	}
}
