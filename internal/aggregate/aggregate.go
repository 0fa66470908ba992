package aggregate

import (
	"time"

	"github.com/glitchymagic/cardpulse/internal/card"
)

// Decay returns the age-decay factor for a signal: linear from 1 at age zero
// to exactly 0 at the window boundary and beyond.
func Decay(age, window time.Duration) float64 {
	if age >= window {
		return 0
	}
	if age < 0 {
		age = 0
	}
	return 1 - float64(age)/float64(window)
}

// BySource groups signals by (source kind, entity) and sums their decayed
// strengths relative to now. The result is rebuilt from scratch every
// analysis cycle; nothing carries over, so decay is always correct relative
// to a single "now".
func BySource(signals []card.Signal, now time.Time, window time.Duration) map[card.SourceKind]map[string]*card.SourceAggregate {
	out := make(map[card.SourceKind]map[string]*card.SourceAggregate)
	authors := make(map[*card.SourceAggregate]map[string]struct{})
	engagement := make(map[*card.SourceAggregate]float64)

	for _, sig := range signals {
		w := Decay(now.Sub(sig.DetectedAt), window)
		if w == 0 {
			continue
		}

		byEntity := out[sig.Kind]
		if byEntity == nil {
			byEntity = make(map[string]*card.SourceAggregate)
			out[sig.Kind] = byEntity
		}
		agg := byEntity[sig.EntityID]
		if agg == nil {
			agg = &card.SourceAggregate{
				Kind:     sig.Kind,
				EntityID: sig.EntityID,
				Patterns: make(map[string]float64),
			}
			byEntity[sig.EntityID] = agg
			authors[agg] = make(map[string]struct{})
		}

		agg.Total += sig.Strength * w
		agg.Mentions++
		for _, h := range sig.Patterns {
			agg.Patterns[h.Pattern] += h.Strength * float64(h.Matches) * w
		}
		if sig.Author != "" {
			authors[agg][sig.Author] = struct{}{}
		}
		engagement[agg] += sig.Engagement
		if sig.DetectedAt.After(agg.LastSignal) {
			agg.LastSignal = sig.DetectedAt
		}
	}

	for _, byEntity := range out {
		for _, agg := range byEntity {
			agg.DominantPattern = dominant(agg.Patterns)
			agg.DistinctAuthors = len(authors[agg])
			if agg.Mentions > 0 {
				agg.Momentum = engagement[agg] / float64(agg.Mentions)
			}
		}
	}

	return out
}

// dominant picks the pattern with the highest accumulated strength. Ties
// break toward the lexicographically smaller name for determinism.
func dominant(patterns map[string]float64) string {
	best := ""
	bestVal := 0.0
	for name, v := range patterns {
		if v > bestVal || (v == bestVal && (best == "" || name < best)) {
			best = name
			bestVal = v
		}
	}
	return best
}
