// Package aggregate maintains the live signal log and rebuilds per-source
// aggregates from it each analysis cycle.
package aggregate

import (
	"sync"
	"time"

	"github.com/glitchymagic/cardpulse/internal/card"
)

// SignalLog is the append-only set of live signals.
//
// Multiple polling loops (one per source kind) append concurrently; the
// analysis cycle reads a closed snapshot. Entries are immutable once
// written. Dedup is by (source kind, observation id) so re-fetching the same
// post across scheduler cycles cannot double count.
type SignalLog struct {
	mu      sync.Mutex
	signals []card.Signal
	seen    map[string]struct{}
	window  time.Duration
}

// NewSignalLog creates a log whose signals expire after window.
func NewSignalLog(window time.Duration) *SignalLog {
	return &SignalLog{
		seen:   make(map[string]struct{}),
		window: window,
	}
}

func seenKey(kind card.SourceKind, observationID string) string {
	return string(kind) + "|" + observationID
}

// Append adds a signal unless its observation was already recorded.
// Returns true if the signal was accepted.
func (l *SignalLog) Append(sig card.Signal) bool {
	key := seenKey(sig.Kind, sig.ObservationID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[key]; dup {
		return false
	}
	l.seen[key] = struct{}{}
	l.signals = append(l.signals, sig)
	return true
}

// Seen reports whether an observation has already produced a signal. Used to
// skip extraction work for posts the engine has already consumed.
func (l *SignalLog) Seen(kind card.SourceKind, observationID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[seenKey(kind, observationID)]
	return ok
}

// MarkSeen records an observation id without a signal, so observations that
// matched nothing are not re-extracted every poll.
func (l *SignalLog) MarkSeen(kind card.SourceKind, observationID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[seenKey(kind, observationID)] = struct{}{}
}

// Snapshot returns a copy of all signals still inside the decay window as of
// now. Aggregation runs over this closed snapshot so signals arriving
// mid-cycle never skew the decay math.
func (l *SignalLog) Snapshot(now time.Time) []card.Signal {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]card.Signal, 0, len(l.signals))
	for _, s := range l.signals {
		if now.Sub(s.DetectedAt) < l.window {
			out = append(out, s)
		}
	}
	return out
}

// Prune drops expired signals and their dedup keys. Returns the number of
// signals removed.
func (l *SignalLog) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.signals[:0]
	pruned := 0
	for _, s := range l.signals {
		if now.Sub(s.DetectedAt) < l.window {
			kept = append(kept, s)
		} else {
			delete(l.seen, seenKey(s.Kind, s.ObservationID))
			pruned++
		}
	}
	l.signals = kept
	return pruned
}

// Load seeds the log from persisted signals, skipping expired entries and
// duplicates. Used at startup to resume without re-fetching.
func (l *SignalLog) Load(signals []card.Signal, now time.Time) int {
	loaded := 0
	for _, s := range signals {
		if now.Sub(s.DetectedAt) >= l.window {
			continue
		}
		if l.Append(s) {
			loaded++
		}
	}
	return loaded
}

// Len returns the number of live signals.
func (l *SignalLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.signals)
}
