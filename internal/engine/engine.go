// Package engine wires the polling, scoring, and analysis pipeline together.
//
// One polling loop runs per source kind, each with its own scheduler; the
// loops share a concurrent-safe signal log. Analysis is synchronous: once
// per interval a closed snapshot of the log is aggregated, correlated,
// classified, tiered, and handed to the consumer, then snapshotted to the
// store. Context cancellation is the only stop mechanism.
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glitchymagic/cardpulse/internal/aggregate"
	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/config"
	"github.com/glitchymagic/cardpulse/internal/extract"
	"github.com/glitchymagic/cardpulse/internal/fetch"
	"github.com/glitchymagic/cardpulse/internal/insight"
	"github.com/glitchymagic/cardpulse/internal/logging"
	"github.com/glitchymagic/cardpulse/internal/narrative"
	"github.com/glitchymagic/cardpulse/internal/schedule"
	"github.com/glitchymagic/cardpulse/internal/score"
	"github.com/glitchymagic/cardpulse/internal/store"

	"github.com/google/uuid"
)

// CycleStats counts what one analysis cycle saw.
type CycleStats struct {
	LiveSignals int
	Narratives  int
	Eligible    int
	ByTier      map[card.ActionTier]int
}

// CycleResult is the per-cycle output handed to the consumer and, when the
// dashboard is running, to the UI.
type CycleResult struct {
	At         time.Time
	Narratives []card.Narrative
	Insights   []card.Insight
	Stats      CycleStats
}

// Consumer receives each cycle's eligible narratives with their insights
// and predictions. External posting, alerting, and reply generation live
// behind this boundary.
type Consumer interface {
	Publish(ctx context.Context, result CycleResult) error
}

// Snapshotter is the subset of the store the engine needs. Nil-able for
// tests that run without persistence.
type Snapshotter interface {
	SaveSignals([]card.Signal) error
	MarkSeen(card.SourceKind, string, time.Time) error
	LoadSignals(time.Time) ([]card.Signal, error)
	LoadSeen(time.Time) (map[card.SourceKind][]string, error)
	ReplaceNarratives([]card.Narrative) error
	SavePredictions([]card.Prediction) error
	PruneExpired(time.Time) error
}

var _ Snapshotter = (*store.Store)(nil)

// Engine runs the full pipeline.
type Engine struct {
	cfg      *config.Config
	window   time.Duration
	matcher  *extract.Matcher
	calc     *score.Calculator
	log      *aggregate.SignalLog
	corr     *narrative.Correlator
	classify *narrative.Classifier
	tiers    *narrative.Scorer
	gen      *insight.Generator

	schedulers map[card.SourceKind]*schedule.Scheduler
	fetchers   map[card.SourceKind]fetch.Fetcher

	snap     Snapshotter
	consumer Consumer

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	// Events receives one CycleResult per analysis cycle. Sends are
	// non-blocking; a slow reader just misses cycles.
	Events chan CycleResult
}

// Options bundles the engine's collaborators.
type Options struct {
	Fetchers map[card.SourceKind]fetch.Fetcher
	Store    Snapshotter          // optional
	Consumer Consumer             // optional, defaults to the logging consumer
	Prices   insight.PriceProvider // optional
	Clock    func() time.Time     // optional, defaults to time.Now
	Seed     int64                // scheduler jitter seed
}

// New builds an Engine from validated configuration.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	matcher, err := extract.NewMatcher(cfg.Entities, cfg.Patterns, cfg.MinTextLength)
	if err != nil {
		return nil, err
	}

	window := time.Duration(cfg.DecayWindowHours) * time.Hour

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	consumer := opts.Consumer
	if consumer == nil {
		consumer = &LogConsumer{}
	}

	tierIntervals := make([]time.Duration, len(cfg.TierIntervalsMinutes))
	for i, m := range cfg.TierIntervalsMinutes {
		tierIntervals[i] = time.Duration(m) * time.Minute
	}

	// Group targets by kind, preserving declaration order within each kind.
	targetsByKind := make(map[card.SourceKind][]*card.MonitoringTarget)
	for _, t := range cfg.Targets {
		kind := card.SourceKind(t.Kind)
		targetsByKind[kind] = append(targetsByKind[kind], &card.MonitoringTarget{
			Kind:   kind,
			Handle: t.Handle,
			Name:   t.Name,
			URL:    t.URL,
			Weight: t.Weight,
			Tier:   t.Tier,
		})
	}

	schedulers := make(map[card.SourceKind]*schedule.Scheduler, len(targetsByKind))
	seed := opts.Seed
	for kind, targets := range targetsByKind {
		s, err := schedule.New(targets, tierIntervals,
			time.Duration(cfg.JitterMinSeconds)*time.Second,
			time.Duration(cfg.JitterMaxSeconds)*time.Second,
			seed)
		if err != nil {
			return nil, err
		}
		schedulers[kind] = s
		seed++
	}

	e := &Engine{
		cfg:        cfg,
		window:     window,
		matcher:    matcher,
		calc:       score.NewCalculator(cfg.Strength),
		log:        aggregate.NewSignalLog(window),
		corr:       narrative.NewCorrelator(cfg.Correlation),
		classify:   narrative.NewClassifier(cfg.Archetypes),
		tiers:      narrative.NewScorer(cfg.Actionability),
		gen:        insight.NewGenerator(opts.Prices),
		schedulers: schedulers,
		fetchers:   opts.Fetchers,
		snap:       opts.Store,
		consumer:   consumer,
		clock:      clock,
		sleep:      sleepCtx,
		Events:     make(chan CycleResult, 4),
	}
	return e, nil
}

// Run resumes state from the snapshot, then runs one polling loop per
// source kind plus the analysis loop until ctx is cancelled. Fetch and
// persistence errors never stop the loops.
func (e *Engine) Run(ctx context.Context) error {
	e.resume()

	g, ctx := errgroup.WithContext(ctx)
	for kind := range e.schedulers {
		g.Go(func() error {
			e.pollLoop(ctx, kind)
			return nil
		})
	}
	g.Go(func() error {
		e.analysisLoop(ctx)
		return nil
	})
	return g.Wait()
}

// resume reloads live signals and seen-observation ids from the snapshot so
// a restart inside the decay window does not re-consume old posts.
func (e *Engine) resume() {
	if e.snap == nil {
		return
	}
	now := e.clock()
	cutoff := now.Add(-e.window)

	signals, err := e.snap.LoadSignals(cutoff)
	if err != nil {
		logging.Warn("failed to reload signals", "error", err)
	} else if n := e.log.Load(signals, now); n > 0 {
		logging.Info("resumed signal log", "signals", n)
	}

	seen, err := e.snap.LoadSeen(cutoff)
	if err != nil {
		logging.Warn("failed to reload seen observations", "error", err)
		return
	}
	for kind, ids := range seen {
		for _, id := range ids {
			e.log.MarkSeen(kind, id)
		}
	}
}

// pollLoop samples targets of one source kind forever: pick the next due
// targets, fetch each, fold observations into signals, and sleep a jittered
// delay between samples.
func (e *Engine) pollLoop(ctx context.Context, kind card.SourceKind) {
	sched := e.schedulers[kind]
	fetcher := e.fetchers[kind]
	if fetcher == nil {
		logging.Warn("no fetcher for source kind, loop idle", "kind", kind)
		return
	}

	for ctx.Err() == nil {
		targets := sched.Next(e.clock(), e.cfg.SamplesPerCycle)
		for _, target := range targets {
			if ctx.Err() != nil {
				return
			}
			e.sampleTarget(ctx, sched, fetcher, target)
			e.sleep(ctx, sched.Jitter())
		}
	}
}

// sampleTarget fetches one target and processes its observations. The
// target's lastChecked advances whether or not the fetch succeeded; a dead
// target must not be hammered.
func (e *Engine) sampleTarget(ctx context.Context, sched *schedule.Scheduler, fetcher fetch.Fetcher, target *card.MonitoringTarget) {
	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.FetchTimeoutSeconds)*time.Second)
	defer cancel()

	observations, err := fetcher.Fetch(fetchCtx, target)
	sched.MarkChecked(target, e.clock())

	if err != nil {
		// Recoverable by definition: same as zero observations this cycle.
		logging.Warn("fetch failed", "target", target.Handle, "error", err)
		return
	}

	accepted := 0
	for _, obs := range observations {
		if e.processObservation(obs, target) {
			accepted++
		}
	}
	if accepted > 0 {
		logging.Info("sampled target", "target", target.Handle, "observations", len(observations), "signals", accepted)
	} else {
		logging.Debug("sampled target", "target", target.Handle, "observations", len(observations))
	}
}

// processObservation extracts, scores, and appends signals for one
// observation. Returns true if at least one signal was produced.
func (e *Engine) processObservation(obs card.RawObservation, target *card.MonitoringTarget) bool {
	if e.log.Seen(obs.Kind, obs.ObservationID) {
		return false
	}

	mentions, hits := e.matcher.Match(obs.Text)
	if len(mentions) == 0 || len(hits) == 0 {
		// Nothing to classify. Remember the id anyway so the same post is
		// not re-extracted every poll.
		e.log.MarkSeen(obs.Kind, obs.ObservationID)
		e.persistSeen(obs)
		return false
	}

	engagement := score.Engagement(obs.Engagement, obs.DetectedAt.Sub(obs.PostedAt), e.cfg.Engagement)

	var saved []card.Signal
	for _, mention := range mentions {
		strength := e.calc.Strength(target.Weight, mention.Weight, hits, engagement)
		if strength == 0 {
			continue
		}
		sig := card.Signal{
			ID:            uuid.NewString(),
			Kind:          obs.Kind,
			Target:        obs.Target,
			ObservationID: obs.ObservationID,
			Author:        obs.Author,
			EntityID:      mention.EntityID,
			Strength:      strength,
			Engagement:    engagement,
			Patterns:      hits,
			DetectedAt:    obs.DetectedAt,
		}
		if e.log.Append(sig) {
			saved = append(saved, sig)
		}
	}
	if len(saved) == 0 {
		return false
	}

	if e.snap != nil {
		if err := e.snap.SaveSignals(saved); err != nil {
			logging.Warn("failed to persist signals", "error", err)
		}
	}
	e.persistSeen(obs)
	return true
}

func (e *Engine) persistSeen(obs card.RawObservation) {
	if e.snap == nil {
		return
	}
	if err := e.snap.MarkSeen(obs.Kind, obs.ObservationID, obs.DetectedAt); err != nil {
		logging.Warn("failed to persist seen observation", "error", err)
	}
}

// analysisLoop runs one cycle immediately, then on every tick.
func (e *Engine) analysisLoop(ctx context.Context) {
	e.RunCycle(ctx)

	ticker := time.NewTicker(time.Duration(e.cfg.AnalysisIntervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full analysis pass over a closed snapshot of the
// signal log: aggregate, correlate, classify, tier, generate insights,
// publish, snapshot. Persistence failures are logged and retried next
// cycle; they never block the in-memory pipeline.
func (e *Engine) RunCycle(ctx context.Context) CycleResult {
	now := e.clock()
	signals := e.log.Snapshot(now)

	bySource := aggregate.BySource(signals, now, e.window)
	narratives := e.corr.Correlate(bySource, now)

	stats := CycleStats{
		LiveSignals: len(signals),
		Narratives:  len(narratives),
		ByTier:      make(map[card.ActionTier]int),
	}

	for i := range narratives {
		n := &narratives[i]
		n.Classification = e.classify.Classify(n)
		n.Tier = e.tiers.Tier(n)
		stats.ByTier[n.Tier]++
	}

	insights := e.gen.Generate(ctx, narratives, now)
	stats.Eligible = len(insights)

	result := CycleResult{At: now, Narratives: narratives, Insights: insights, Stats: stats}

	if err := e.consumer.Publish(ctx, result); err != nil {
		logging.Warn("consumer publish failed", "error", err)
	}

	e.snapshot(result, now)
	e.log.Prune(now)

	select {
	case e.Events <- result:
	default:
		// Drop - the dashboard will catch up on the next cycle.
	}

	logging.Info("analysis cycle complete",
		"signals", stats.LiveSignals,
		"narratives", stats.Narratives,
		"eligible", stats.Eligible)
	return result
}

// snapshot persists the cycle's output, best effort.
func (e *Engine) snapshot(result CycleResult, now time.Time) {
	if e.snap == nil {
		return
	}
	if err := e.snap.ReplaceNarratives(result.Narratives); err != nil {
		logging.Warn("failed to snapshot narratives", "error", err)
	}
	predictions := make([]card.Prediction, 0, len(result.Insights))
	for _, in := range result.Insights {
		predictions = append(predictions, in.Prediction)
	}
	if err := e.snap.SavePredictions(predictions); err != nil {
		logging.Warn("failed to snapshot predictions", "error", err)
	}
	if err := e.snap.PruneExpired(now.Add(-e.window)); err != nil {
		logging.Warn("failed to prune snapshot", "error", err)
	}
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
