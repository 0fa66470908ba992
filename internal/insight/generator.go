// Package insight turns eligible narratives into human-readable summaries,
// suggested downstream actions, and trackable predictions.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glitchymagic/cardpulse/internal/card"
)

// PriceContext is optional market data used only to enrich summaries.
type PriceContext struct {
	Market  float64 // current market price, USD
	Volume  int     // recent sales volume
	Change7 float64 // 7-day change, percent
}

// PriceProvider supplies price context for an entity. The generator works
// fine with a nil provider; summaries simply omit price context.
type PriceProvider interface {
	Price(ctx context.Context, entityID string) (*PriceContext, error)
}

// Generator emits insights for strong and critical narratives.
type Generator struct {
	prices PriceProvider
	newID  func() string
}

// NewGenerator creates a Generator. prices may be nil.
func NewGenerator(prices PriceProvider) *Generator {
	return &Generator{
		prices: prices,
		newID:  uuid.NewString,
	}
}

// Generate produces one insight per eligible narrative. Weak and moderate
// narratives are skipped: they stay in the snapshot as trend history only.
func (g *Generator) Generate(ctx context.Context, narratives []card.Narrative, now time.Time) []card.Insight {
	var out []card.Insight
	for i := range narratives {
		n := &narratives[i]
		if !n.Eligible() {
			continue
		}
		out = append(out, card.Insight{
			EntityID:   n.EntityID,
			Summary:    g.summary(ctx, n),
			Action:     g.action(n),
			Prediction: g.prediction(n, now),
		})
	}
	return out
}

// summary builds the templated natural-language description, with price
// context when a provider is available and answers.
func (g *Generator) summary(ctx context.Context, n *card.Narrative) string {
	platforms := make([]string, len(n.Platforms))
	for i, p := range n.Platforms {
		platforms[i] = string(p)
	}

	s := fmt.Sprintf("%s: %s narrative (%s) across %s at %.0f%% strength",
		n.EntityID,
		n.Classification.Archetype,
		n.Classification.Action,
		strings.Join(platforms, "+"),
		n.TotalStrength*100,
	)

	if g.prices != nil {
		if pc, err := g.prices.Price(ctx, n.EntityID); err == nil && pc != nil {
			s += fmt.Sprintf("; market $%.2f (%+.1f%% 7d, %d sales)", pc.Market, pc.Change7, pc.Volume)
		}
	}
	return s
}

// action maps the tier to a downstream action with per-platform hints.
// Critical narratives alert; strong cross-platform narratives are worth
// engaging; a strong narrative that only one platform has seen is watch-only.
func (g *Generator) action(n *card.Narrative) card.SuggestedAction {
	actionType := "monitor"
	switch {
	case n.Tier == card.TierCritical:
		actionType = "alert"
	case len(n.Platforms) >= 2:
		actionType = "engage"
	}

	targets := make(map[card.SourceKind]string, len(n.Evidence))
	for _, ev := range n.Evidence {
		hint := fmt.Sprintf("dominant pattern %q, %d mentions", ev.DominantPattern, ev.Mentions)
		targets[ev.Kind] = hint
	}

	return card.SuggestedAction{
		ID:      g.newID(),
		Type:    actionType,
		Targets: targets,
	}
}

// prediction derives a trackable claim from the archetype's action label.
// Magnitude ranges scale with strength; horizons are fixed per action.
// Predictions are append-only and get a fresh id every cycle - history is
// kept in full, never reconciled.
func (g *Generator) prediction(n *card.Narrative, now time.Time) card.Prediction {
	p := card.Prediction{
		ID:         g.newID(),
		EntityID:   n.EntityID,
		Archetype:  n.Classification.Archetype,
		Confidence: n.Classification.Confidence * n.TotalStrength,
		CreatedAt:  now,
	}

	s := n.TotalStrength
	switch n.Classification.Action {
	case "bullish":
		p.Direction = "up"
		p.MagnitudeLow = 5 * s
		p.MagnitudeHigh = 20 * s
		p.Horizon = 7 * 24 * time.Hour
	case "urgent":
		// Supply narratives claim sellout, not a price range.
		p.Direction = "sellout"
		p.Horizon = 72 * time.Hour
	case "volatile":
		p.Direction = "swing"
		p.MagnitudeLow = -15 * s
		p.MagnitudeHigh = 15 * s
		p.Horizon = 48 * time.Hour
	case "premium":
		p.Direction = "graded-premium-up"
		p.MagnitudeLow = 3 * s
		p.MagnitudeHigh = 12 * s
		p.Horizon = 14 * 24 * time.Hour
	case "gameplay":
		p.Direction = "demand-up"
		p.MagnitudeLow = 2 * s
		p.MagnitudeHigh = 10 * s
		p.Horizon = 7 * 24 * time.Hour
	case "caution":
		p.Direction = "down"
		p.MagnitudeLow = -18 * s
		p.MagnitudeHigh = -4 * s
		p.Horizon = 7 * 24 * time.Hour
	default:
		p.Direction = "unspecified"
		p.Horizon = 7 * 24 * time.Hour
	}

	return p
}
