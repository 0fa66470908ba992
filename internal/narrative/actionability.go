package narrative

import (
	"math"

	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/config"
)

// Tier thresholds. Fixed: actionability must be a pure deterministic
// function of strength, platform count, and evidence quality.
const (
	thresholdWeak     = 0.30
	thresholdModerate = 0.50
	thresholdStrong   = 0.70
	thresholdCritical = 0.85
)

// Scorer assigns actionability tiers.
type Scorer struct {
	w config.ActionabilityWeights
}

// NewScorer builds a Scorer from the configured actionability weights.
func NewScorer(w config.ActionabilityWeights) *Scorer {
	return &Scorer{w: w}
}

// Tier computes the discrete actionability tier for a classified narrative.
// Unclassified narratives are always weak: with no archetype there is
// nothing to act on.
func (s *Scorer) Tier(n *card.Narrative) card.ActionTier {
	if n.Classification == nil {
		return card.TierWeak
	}

	adjusted := n.TotalStrength
	if len(n.Platforms) >= 2 {
		adjusted *= s.w.MultiPlatformBonus
	}
	adjusted *= s.evidenceBonus(n)
	adjusted *= n.Classification.Confidence

	switch {
	case adjusted >= thresholdCritical:
		return card.TierCritical
	case adjusted >= thresholdStrong:
		return card.TierStrong
	case adjusted >= thresholdModerate:
		return card.TierModerate
	default:
		// Below thresholdWeak is still weak; the 0.30 boundary only marks
		// where the tier formally begins.
		return card.TierWeak
	}
}

// evidenceBonus multiplies in per-source quality signals, each capped so no
// single evidence dimension can dominate.
func (s *Scorer) evidenceBonus(n *card.Narrative) float64 {
	bonus := 1.0
	for _, ev := range n.Evidence {
		if ev.Momentum >= s.w.MomentumThreshold {
			bonus *= math.Min(s.w.MomentumBonus, 1.15)
			break
		}
	}
	for _, ev := range n.Evidence {
		if ev.DistinctAuthors >= s.w.AuthorThreshold {
			bonus *= math.Min(s.w.AuthorBonus, 1.15)
			break
		}
	}
	return bonus
}
