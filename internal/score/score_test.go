package score

import (
	"math"
	"testing"
	"time"

	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/config"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEngagementRateNormalization(t *testing.T) {
	w := config.Default().Engagement

	e := card.Engagement{Approvals: 100, Shares: 20, Replies: 10}
	// weighted = 100*1.0 + 20*2.5 + 10*1.5 = 165
	// at 2h: 165/2/50 = 1.65
	got := Engagement(e, 2*time.Hour, w)
	if !almostEqual(got, 1.65) {
		t.Errorf("expected 1.65, got %f", got)
	}

	// Same counts twice as old score half as much.
	older := Engagement(e, 4*time.Hour, w)
	if !almostEqual(older, got/2) {
		t.Errorf("expected %f at double age, got %f", got/2, older)
	}
}

func TestEngagementFloorsAgeAtOneHour(t *testing.T) {
	w := config.Default().Engagement
	e := card.Engagement{Approvals: 50}

	fresh := Engagement(e, 5*time.Minute, w)
	hour := Engagement(e, time.Hour, w)
	if !almostEqual(fresh, hour) {
		t.Errorf("sub-hour age should floor at 1h: %f vs %f", fresh, hour)
	}
	if !almostEqual(hour, 1.0) {
		t.Errorf("50 approvals over 1h at norm 50 should score 1.0, got %f", hour)
	}
}

func TestEngagementSharesOutweighApprovals(t *testing.T) {
	w := config.Default().Engagement

	shares := Engagement(card.Engagement{Shares: 10}, time.Hour, w)
	approvals := Engagement(card.Engagement{Approvals: 10}, time.Hour, w)
	if shares <= approvals {
		t.Errorf("shares should outweigh approvals: %f vs %f", shares, approvals)
	}
}

func TestEngagementCeiling(t *testing.T) {
	w := config.Default().Engagement

	got := Engagement(card.Engagement{Approvals: 100000}, time.Hour, w)
	if got != w.Ceiling {
		t.Errorf("expected ceiling %f, got %f", w.Ceiling, got)
	}
}

func TestStrengthNoHits(t *testing.T) {
	c := NewCalculator(config.Default().Strength)

	if got := c.Strength(1.0, 1.0, nil, 2.0); got != 0 {
		t.Errorf("no hits should yield 0, got %f", got)
	}
}

func TestStrengthKnownValue(t *testing.T) {
	c := NewCalculator(config.Default().Strength)

	hits := []card.PatternHit{{Pattern: "undervalued", Strength: 1.5, Matches: 2}}
	// bonus = (1.5-1)*2*0.3 = 0.3
	// s = 0.8*0.7 * 1.3 * 1.0 = 0.728
	got := c.Strength(0.8, 0.7, hits, 0)
	if !almostEqual(got, 0.728) {
		t.Errorf("expected 0.728, got %f", got)
	}
}

func TestStrengthEngagementCapped(t *testing.T) {
	c := NewCalculator(config.Default().Strength)
	hits := []card.PatternHit{{Pattern: "undervalued", Strength: 1.5, Matches: 1}}

	capped := c.Strength(0.5, 0.5, hits, 1.0)
	over := c.Strength(0.5, 0.5, hits, 5.0)
	if !almostEqual(capped, over) {
		t.Errorf("engagement above cap should not raise strength: %f vs %f", capped, over)
	}
}

func TestStrengthClampedToUnit(t *testing.T) {
	c := NewCalculator(config.Default().Strength)

	hits := []card.PatternHit{
		{Pattern: "supply-shock", Strength: 1.6, Matches: 10},
		{Pattern: "hype-surge", Strength: 1.4, Matches: 10},
	}
	got := c.Strength(1.0, 1.0, hits, 2.0)
	if got != 1.0 {
		t.Errorf("expected clamp to 1.0, got %f", got)
	}

	if got := c.Strength(0, 0, hits, 0); got != 0 {
		t.Errorf("zero weights should yield 0, got %f", got)
	}
}

func TestStrengthDeterminism(t *testing.T) {
	c := NewCalculator(config.Default().Strength)
	hits := []card.PatternHit{{Pattern: "grading-focus", Strength: 1.3, Matches: 3}}

	a := c.Strength(0.9, 0.85, hits, 0.4)
	b := c.Strength(0.9, 0.85, hits, 0.4)
	if a != b {
		t.Errorf("identical inputs must score identically: %f vs %f", a, b)
	}
	if a <= 0 || a > 1 {
		t.Errorf("strength out of range: %f", a)
	}
}
