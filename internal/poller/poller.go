package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/internradar/internradar/internal/dedup"
	"github.com/internradar/internradar/internal/model"
	"github.com/internradar/internradar/internal/notifier"
	"github.com/internradar/internradar/internal/workpool"
)

// Phase names the step a cycle (or the loop around it) is in.
type Phase string

const (
	PhaseIdle                Phase = "Idle"
	PhaseFetchingSources     Phase = "FetchingSources"
	PhaseDeduplicating       Phase = "Deduplicating"
	PhaseEnriching           Phase = "Enriching"
	PhasePersisting          Phase = "Persisting"
	PhaseNotifying           Phase = "Notifying"
	PhaseSleeping            Phase = "Sleeping"
	PhaseRecoveringFromError Phase = "RecoveringFromError"
)

// Enricher completes an accepted candidate. It must not fail.
type Enricher interface {
	Enrich(ctx context.Context, p model.Posting) model.Posting
}

// Registration pairs an enabled source with the query it runs.
type Registration struct {
	Source model.Source
	Query  model.Query
}

// Options tunes a Cycle.
type Options struct {
	// SourceTimeout bounds each source's Fetch. Zero means no bound.
	SourceTimeout time.Duration
	// MaxBlockingWorkers caps concurrent browser-driven sources. Default 3.
	MaxBlockingWorkers int
	// OnPhase, when set, is called on every phase transition.
	OnPhase func(Phase)
}

// Report summarises one cycle.
type Report struct {
	ID             string
	Fetched        int
	SourceFailures int
	New            int
	Suspected      int
	Total          int
	Elapsed        time.Duration
}

// Cycle owns one pass of the pipeline: fetch → dedupe → enrich → persist →
// notify. The Store snapshot is owned by Run for the whole pass; enrichment
// goroutines only ever see their own posting.
type Cycle struct {
	sources  []Registration
	pool     *workpool.Pool
	store    model.Store
	enricher Enricher
	notifier model.Notifier
	opts     Options
	logger   *slog.Logger
}

// NewCycle wires a cycle. The worker pool is sized to the number of blocking
// sources, capped at opts.MaxBlockingWorkers.
func NewCycle(
	sources []Registration,
	store model.Store,
	enricher Enricher,
	n model.Notifier,
	opts Options,
	logger *slog.Logger,
) *Cycle {
	if opts.MaxBlockingWorkers <= 0 {
		opts.MaxBlockingWorkers = 3
	}
	blocking := 0
	for _, r := range sources {
		if isBlocking(r.Source) {
			blocking++
		}
	}
	return &Cycle{
		sources:  sources,
		pool:     workpool.New(min(blocking, opts.MaxBlockingWorkers)),
		store:    store,
		enricher: enricher,
		notifier: n,
		opts:     opts,
		logger:   logger,
	}
}

// Run executes one cycle. Source and scam-check failures are absorbed; a
// failed Load or Save, or cancellation before persisting, fails the cycle
// with a *model.CycleError and leaves the Store untouched.
func (c *Cycle) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{ID: uuid.NewString()}
	logger := c.logger.With("cycle", report.ID)
	defer c.setPhase(PhaseIdle)

	c.setPhase(PhaseFetchingSources)
	snapshot, err := c.store.Load(ctx)
	if err != nil {
		return report, &model.CycleError{
			Phase: string(PhaseFetchingSources),
			Err:   &model.PersistenceError{Op: "load", Err: err},
		}
	}

	logger.Debug("fetching sources", "sources", len(c.sources), "blocking_workers", c.pool.Size())
	batches, failures := c.fetchAll(ctx, logger)
	report.SourceFailures = failures
	for _, b := range batches {
		report.Fetched += len(b)
	}
	if err := ctx.Err(); err != nil {
		return report, &model.CycleError{Phase: string(PhaseFetchingSources), Err: err}
	}

	c.setPhase(PhaseDeduplicating)
	index := dedup.NewIndex(snapshot)
	var accepted []model.Posting
	for _, batch := range batches {
		for _, p := range batch {
			if index.Accept(p) {
				accepted = append(accepted, p)
			}
		}
	}

	c.setPhase(PhaseEnriching)
	enriched := c.enrichAll(ctx, accepted)
	if err := ctx.Err(); err != nil {
		return report, &model.CycleError{Phase: string(PhaseEnriching), Err: err}
	}

	c.setPhase(PhasePersisting)
	report.Total = len(snapshot)
	if len(enriched) > 0 {
		next := make([]model.Posting, 0, len(snapshot)+len(enriched))
		next = append(next, snapshot...)
		next = append(next, enriched...)
		// Once started, Save runs to completion even if ctx is cancelled.
		if err := c.store.Save(context.WithoutCancel(ctx), next); err != nil {
			return report, &model.CycleError{
				Phase: string(PhasePersisting),
				Err:   &model.PersistenceError{Op: "save", Err: err},
			}
		}
		report.Total = len(next)
	}
	report.New = len(enriched)

	c.setPhase(PhaseNotifying)
	for _, p := range enriched {
		if p.ScamStatus == model.ScamSuspected {
			report.Suspected++
		}
		c.notify(ctx, logger, p)
	}

	report.Elapsed = time.Since(start)
	logger.Info("cycle complete",
		"fetched", report.Fetched,
		"source_failures", report.SourceFailures,
		"new", report.New,
		"suspected", report.Suspected,
		"total", report.Total,
		"elapsed", report.Elapsed.Round(time.Millisecond).String(),
	)
	return report, nil
}

// fetchAll runs every source concurrently and returns their results in
// registration order. A failing source yields an empty batch.
func (c *Cycle) fetchAll(ctx context.Context, logger *slog.Logger) ([][]model.Posting, int) {
	batches := make([][]model.Posting, len(c.sources))
	errs := make([]error, len(c.sources))

	var g errgroup.Group
	for i, reg := range c.sources {
		i, reg := i, reg
		g.Go(func() error {
			batches[i], errs[i] = c.fetchOne(ctx, reg)
			return nil
		})
	}
	_ = g.Wait()

	failures := 0
	for i, err := range errs {
		name := c.sources[i].Source.Name()
		if err != nil {
			failures++
			batches[i] = nil
			logger.Error("source failed", "error", &model.SourceError{Source: name, Err: err})
			continue
		}
		logger.Info("source fetched", "source", name, "postings", len(batches[i]))
	}
	return batches, failures
}

func (c *Cycle) fetchOne(ctx context.Context, reg Registration) (postings []model.Posting, err error) {
	if c.opts.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.SourceTimeout)
		defer cancel()
	}

	if isBlocking(reg.Source) {
		f := workpool.Submit(ctx, c.pool, func(ctx context.Context) ([]model.Posting, error) {
			return reg.Source.Fetch(ctx, reg.Query)
		})
		return f.Wait(ctx)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	return reg.Source.Fetch(ctx, reg.Query)
}

// enrichAll enriches every candidate in parallel. Results keep input order.
func (c *Cycle) enrichAll(ctx context.Context, accepted []model.Posting) []model.Posting {
	out := make([]model.Posting, len(accepted))
	var g errgroup.Group
	for i, p := range accepted {
		i, p := i, p
		g.Go(func() error {
			out[i] = c.enricher.Enrich(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Cycle) notify(ctx context.Context, logger *slog.Logger, p model.Posting) {
	if c.notifier == nil {
		return
	}
	title, message := notifier.FormatPosting(p)
	if err := c.notifier.Notify(ctx, title, message); err != nil {
		logger.Warn("notification failed", "company", p.Company, "link", p.Link, "error", err)
	}
}

func (c *Cycle) setPhase(p Phase) {
	if c.opts.OnPhase != nil {
		c.opts.OnPhase(p)
	}
}

func isBlocking(s model.Source) bool {
	b, ok := s.(model.BlockingSource)
	return ok && b.Blocking()
}
