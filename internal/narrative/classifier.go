package narrative

import (
	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/config"
)

// Classifier scores a narrative's merged pattern distribution against the
// fixed archetype catalog.
type Classifier struct {
	archetypes []config.Archetype
}

// NewClassifier keeps the catalog in declaration order; that order is the
// tie-breaker, so classification stays deterministic.
func NewClassifier(archetypes []config.Archetype) *Classifier {
	return &Classifier{archetypes: archetypes}
}

// Classify selects the best-matching archetype, or nil when no archetype
// scores above zero. Unclassified narratives stay in the snapshot for
// observability but are excluded from insight generation.
func (c *Classifier) Classify(n *card.Narrative) *card.Classification {
	var best *card.Classification
	for _, a := range c.archetypes {
		var sum float64
		for _, p := range a.Patterns {
			sum += n.Patterns[p]
		}
		score := sum * a.Confidence
		if score <= 0 {
			continue
		}
		// Strictly-higher wins; on a tie the earlier catalog entry stands.
		if best == nil || score > best.Score {
			best = &card.Classification{
				Archetype:  a.Name,
				Action:     a.Action,
				Confidence: a.Confidence,
				Score:      score,
			}
		}
	}
	return best
}
