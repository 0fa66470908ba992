// Package score computes engagement-normalized signal strengths.
package score

import (
	"math"
	"time"

	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/config"
)

// Engagement converts raw counters into an age-normalized score. The rate of
// engagement drives the score, not raw totals: counts are divided by post
// age in hours (floored at one hour). Shares carry the heaviest weight since
// amplification indicates the narrative is spreading, not just being liked.
// The result is clamped to the configured ceiling so one viral post cannot
// dominate every aggregate it touches.
func Engagement(e card.Engagement, age time.Duration, w config.EngagementWeights) float64 {
	hours := age.Hours()
	if hours < 1 {
		hours = 1
	}

	weighted := float64(e.Approvals)*w.Approval +
		float64(e.Shares)*w.Share +
		float64(e.Replies)*w.Reply

	s := (weighted / hours) / w.HourlyNorm
	return math.Min(s, w.Ceiling)
}

// Calculator combines target weight, entity weight, pattern evidence, and
// engagement into a single bounded strength per observation.
type Calculator struct {
	damping       float64
	engagementCap float64
}

// NewCalculator builds a Calculator from the configured strength weights.
func NewCalculator(w config.StrengthWeights) *Calculator {
	return &Calculator{
		damping:       w.PatternDamping,
		engagementCap: w.EngagementCap,
	}
}

// Strength returns the signal strength in [0,1] for one (target, entity)
// observation. Age decay is deliberately absent here: a single observation's
// raw strength is time-invariant, only its contribution to a live aggregate
// decays (see the aggregate package).
func (c *Calculator) Strength(targetWeight, entityWeight float64, hits []card.PatternHit, engagement float64) float64 {
	if len(hits) == 0 {
		return 0 // nothing to classify, no signal
	}

	bonus := 0.0
	for _, h := range hits {
		bonus += (h.Strength - 1) * float64(h.Matches)
	}
	bonus *= c.damping
	if bonus < 0 {
		bonus = 0
	}

	s := targetWeight * entityWeight
	s *= 1 + bonus
	s *= 1 + math.Min(engagement, c.engagementCap)

	return clamp01(s)
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
