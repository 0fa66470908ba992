// Package card defines the data types that flow through the narrative
// engine: monitored sources, raw observations, scored signals, per-source
// aggregates, cross-source narratives, and predictions.
package card

import "time"

// SourceKind identifies the class of a monitored source.
type SourceKind string

const (
	KindCommunity SourceKind = "community" // community feeds (subreddits, forums)
	KindAuthor    SourceKind = "author"    // individual influential authors
)

// MonitoringTarget is one pollable source identity. Targets are created at
// configuration load and never removed during a run; only LastChecked moves.
type MonitoringTarget struct {
	Kind   SourceKind
	Handle string // stable identity, e.g. "r/PokemonTCG" or "@poketrendz"
	Name   string // display name
	URL    string // feed or page URL
	Weight float64 // influence weight in (0,1]
	Tier   int     // priority bucket, 0 is highest

	// LastChecked is mutated only by the scheduler, after every sample
	// attempt, successful or not.
	LastChecked time.Time
}

// Engagement holds the raw per-post counters reported by a source.
type Engagement struct {
	Approvals int // likes, upvotes
	Shares    int // reposts, crossposts - amplification
	Replies   int // comments
}

// RawObservation is one fetched post or message. Observations are ephemeral:
// consumed by extraction immediately after fetch, never stored whole.
type RawObservation struct {
	ObservationID string // stable per post, used for dedup
	Kind          SourceKind
	Target        string // target handle this came from
	Author        string
	Text          string
	PostedAt      time.Time
	DetectedAt    time.Time
	Engagement    Engagement
}

// EntityMention is one canonical entity found in an observation's text.
type EntityMention struct {
	EntityID string
	Name     string
	Weight   float64 // static market-significance weight in (0,1]
}

// PatternHit is one narrative pattern found in an observation's text.
type PatternHit struct {
	Pattern  string
	Strength float64 // static pattern strength, >= 1.0 for meaningful patterns
	Matches  int     // keyword matches found, >= 1
}

// Signal is the atomic scored unit: one entity observed with pattern
// evidence from one target at one point in time. Immutable once created.
type Signal struct {
	ID            string
	Kind          SourceKind
	Target        string
	ObservationID string
	Author        string
	EntityID      string
	Strength      float64 // in [0,1]
	Engagement    float64 // normalized engagement rate at detection time
	Patterns      []PatternHit
	DetectedAt    time.Time
}

// SourceAggregate is the per (source kind, entity) rollup for one analysis
// cycle. Rebuilt from the live signal set every cycle so decay stays
// consistent relative to a single "now".
type SourceAggregate struct {
	Kind            SourceKind
	EntityID        string
	Total           float64            // decayed sum of signal strengths
	Patterns        map[string]float64 // pattern name -> accumulated strength
	Mentions        int
	DominantPattern string
	DistinctAuthors int
	Momentum        float64 // mean normalized engagement across signals
	LastSignal      time.Time
}

// Classification is the archetype match for a narrative.
type Classification struct {
	Archetype  string
	Action     string // bullish, urgent, volatile, premium, gameplay, caution
	Confidence float64
	Score      float64
}

// ActionTier buckets how actionable a narrative is.
type ActionTier string

const (
	TierWeak     ActionTier = "weak"
	TierModerate ActionTier = "moderate"
	TierStrong   ActionTier = "strong"
	TierCritical ActionTier = "critical"
)

// Eligible reports whether this tier qualifies for insight and prediction
// generation. Weak and moderate narratives are kept for trend history only.
func (t ActionTier) Eligible() bool {
	return t == TierStrong || t == TierCritical
}

// SourceEvidence summarizes one source's contribution to a narrative.
type SourceEvidence struct {
	Kind            SourceKind
	Contribution    float64
	Mentions        int
	DominantPattern string
	DistinctAuthors int
	Momentum        float64
	LastSignal      time.Time
}

// Narrative is the cross-source correlated belief about one entity. Replaced
// wholesale every analysis cycle, never mutated in place.
type Narrative struct {
	EntityID       string
	Platforms      []SourceKind
	TotalStrength  float64 // in [0,1]
	Patterns       map[string]float64
	Classification *Classification // nil when no archetype matched
	Tier           ActionTier
	Evidence       []SourceEvidence
	GeneratedAt    time.Time
}

// Eligible reports whether the narrative qualifies for insight generation:
// it must be classified and at least strong.
func (n *Narrative) Eligible() bool {
	return n.Classification != nil && n.Tier.Eligible()
}

// Prediction is a trackable, timestamped claim derived from a narrative.
// Append-only: never reconciled against prior predictions for the entity.
type Prediction struct {
	ID            string
	EntityID      string
	Archetype     string
	Direction     string
	MagnitudeLow  float64 // expected move, percent
	MagnitudeHigh float64
	Horizon       time.Duration
	Confidence    float64
	CreatedAt     time.Time
}

// SuggestedAction is the downstream action hint for an eligible narrative.
type SuggestedAction struct {
	ID      string
	Type    string // alert, engage, monitor
	Targets map[SourceKind]string
}

// Insight is the full downstream package for one eligible narrative.
type Insight struct {
	EntityID   string
	Summary    string
	Action     SuggestedAction
	Prediction Prediction
}
