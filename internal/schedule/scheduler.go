// Package schedule decides which monitoring target to sample next.
//
// Targets live in priority tiers with per-tier polling intervals. Selection
// walks tiers from highest priority down, taking eligible targets in
// declaration order. When every target is on cooldown the single target with
// the globally oldest last-checked time is selected anyway, so no target can
// be starved indefinitely. Between samples the engine sleeps a randomized
// jitter delay - a deliberately non-uniform cadence.
package schedule

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/glitchymagic/cardpulse/internal/card"
)

// Scheduler rotates over a fixed set of monitoring targets.
// Not safe for concurrent use; the engine runs one Scheduler per polling loop.
type Scheduler struct {
	targets   []*card.MonitoringTarget // declaration order, never mutated as a set
	tiers     []time.Duration
	jitterMin time.Duration
	jitterMax time.Duration
	rng       *rand.Rand
}

// New creates a Scheduler. tierIntervals maps tier index to polling
// interval; targets with a tier beyond the table use the last interval.
// seed makes the jitter sequence reproducible in tests.
func New(targets []*card.MonitoringTarget, tierIntervals []time.Duration, jitterMin, jitterMax time.Duration, seed int64) (*Scheduler, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("scheduler needs at least one target")
	}
	if len(tierIntervals) == 0 {
		return nil, fmt.Errorf("scheduler needs at least one tier interval")
	}
	if jitterMin < 0 || jitterMax < jitterMin {
		return nil, fmt.Errorf("invalid jitter range [%s, %s]", jitterMin, jitterMax)
	}
	return &Scheduler{
		targets:   targets,
		tiers:     tierIntervals,
		jitterMin: jitterMin,
		jitterMax: jitterMax,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Interval returns the polling interval for a tier.
func (s *Scheduler) Interval(tier int) time.Duration {
	if tier < 0 {
		tier = 0
	}
	if tier >= len(s.tiers) {
		tier = len(s.tiers) - 1
	}
	return s.tiers[tier]
}

// eligible reports whether a target's tier interval has elapsed.
func (s *Scheduler) eligible(t *card.MonitoringTarget, now time.Time) bool {
	if t.LastChecked.IsZero() {
		return true
	}
	return now.Sub(t.LastChecked) > s.Interval(t.Tier)
}

// Next selects up to n targets to sample, highest-priority tier first and
// declaration order within a tier. If nothing is eligible it falls back to
// the single target with the oldest last-checked time.
func (s *Scheduler) Next(now time.Time, n int) []*card.MonitoringTarget {
	if n < 1 {
		return nil
	}

	maxTier := 0
	for _, t := range s.targets {
		if t.Tier > maxTier {
			maxTier = t.Tier
		}
	}

	var picked []*card.MonitoringTarget
	for tier := 0; tier <= maxTier && len(picked) < n; tier++ {
		for _, t := range s.targets {
			if t.Tier != tier || !s.eligible(t, now) {
				continue
			}
			picked = append(picked, t)
			if len(picked) == n {
				break
			}
		}
	}
	if len(picked) > 0 {
		return picked
	}

	// Everything is on cooldown: take the most-starved target anyway.
	oldest := s.targets[0]
	for _, t := range s.targets[1:] {
		if t.LastChecked.Before(oldest.LastChecked) {
			oldest = t
		}
	}
	return []*card.MonitoringTarget{oldest}
}

// MarkChecked advances a target's last-checked time. Called after every
// sample attempt, success or failure, so an unreachable target is not
// hammered.
func (s *Scheduler) MarkChecked(t *card.MonitoringTarget, now time.Time) {
	t.LastChecked = now
}

// Jitter returns a random delay within the configured range.
func (s *Scheduler) Jitter() time.Duration {
	span := s.jitterMax - s.jitterMin
	if span <= 0 {
		return s.jitterMin
	}
	return s.jitterMin + time.Duration(s.rng.Int63n(int64(span)))
}

// Targets returns the scheduler's target set in declaration order.
func (s *Scheduler) Targets() []*card.MonitoringTarget {
	return s.targets
}
