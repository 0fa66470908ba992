// Package narrative merges per-source aggregates into cross-source
// narratives, classifies them against the archetype catalog, and assigns
// actionability tiers.
package narrative

import (
	"sort"
	"time"

	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/config"
)

// Correlator merges the current cycle's source aggregates by entity.
type Correlator struct {
	single       map[card.SourceKind]float64
	both         float64
	timingBonus  float64
	timingWindow time.Duration
}

// NewCorrelator builds a Correlator from the configured correlation weights.
func NewCorrelator(w config.CorrelationWeights) *Correlator {
	single := make(map[card.SourceKind]float64, len(w.Single))
	for kind, v := range w.Single {
		single[card.SourceKind(kind)] = v
	}
	return &Correlator{
		single:       single,
		both:         w.Both,
		timingBonus:  w.TimingBonus,
		timingWindow: time.Duration(w.TimingWindowHours) * time.Hour,
	}
}

// Correlate produces one narrative skeleton per entity seen this cycle.
//
// An entity seen by a single source kind is discounted by that kind's
// weight. Agreement across kinds is materially stronger evidence than either
// source alone: contributions are summed and multiplied by the both-weight,
// plus a timing bonus when the agreeing sources' latest signals land within
// the timing window of each other. Strength is clamped to 1.
func (c *Correlator) Correlate(bySource map[card.SourceKind]map[string]*card.SourceAggregate, now time.Time) []card.Narrative {
	byEntity := make(map[string][]*card.SourceAggregate)
	for _, aggs := range bySource {
		for entityID, agg := range aggs {
			byEntity[entityID] = append(byEntity[entityID], agg)
		}
	}

	narratives := make([]card.Narrative, 0, len(byEntity))
	for entityID, aggs := range byEntity {
		// Deterministic evidence order regardless of map iteration.
		sort.Slice(aggs, func(i, j int) bool { return aggs[i].Kind < aggs[j].Kind })

		n := card.Narrative{
			EntityID:    entityID,
			Patterns:    make(map[string]float64),
			GeneratedAt: now,
		}

		var total float64
		for _, agg := range aggs {
			total += agg.Total
			n.Platforms = append(n.Platforms, agg.Kind)
			for p, v := range agg.Patterns {
				n.Patterns[p] += v
			}
			n.Evidence = append(n.Evidence, card.SourceEvidence{
				Kind:            agg.Kind,
				Contribution:    agg.Total,
				Mentions:        agg.Mentions,
				DominantPattern: agg.DominantPattern,
				DistinctAuthors: agg.DistinctAuthors,
				Momentum:        agg.Momentum,
				LastSignal:      agg.LastSignal,
			})
		}

		if len(aggs) == 1 {
			total *= c.singleWeight(aggs[0].Kind)
		} else {
			total *= c.both
			if c.coincident(aggs) {
				total *= 1 + c.timingBonus
			}
		}

		n.TotalStrength = clamp01(total)
		narratives = append(narratives, n)
	}

	// Stable output order for downstream consumers and tests.
	sort.Slice(narratives, func(i, j int) bool { return narratives[i].EntityID < narratives[j].EntityID })
	return narratives
}

func (c *Correlator) singleWeight(kind card.SourceKind) float64 {
	if w, ok := c.single[kind]; ok {
		return w
	}
	return 1
}

// coincident reports whether the most recent signals of all contributing
// sources fall within the timing window of each other.
func (c *Correlator) coincident(aggs []*card.SourceAggregate) bool {
	var earliest, latest time.Time
	for i, agg := range aggs {
		if i == 0 || agg.LastSignal.Before(earliest) {
			earliest = agg.LastSignal
		}
		if i == 0 || agg.LastSignal.After(latest) {
			latest = agg.LastSignal
		}
	}
	return latest.Sub(earliest) <= c.timingWindow
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
