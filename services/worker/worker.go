package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/listingscout/helpers"
	"sjsage522/listingscout/internal/crawler"
	"sjsage522/listingscout/internal/dedup"
	"sjsage522/listingscout/internal/listing"
	"sjsage522/listingscout/internal/scoring"
	"sjsage522/listingscout/logger"
	apperrors "sjsage522/listingscout/pkg/errors"
	"sjsage522/listingscout/services/exporter"
	"sjsage522/listingscout/services/metrics"
	"sjsage522/listingscout/services/publisher"
)

// SourceCrawler crawls one source
type SourceCrawler interface {
	Source() listing.Source
	Kind() listing.Kind
	Crawl(ctx context.Context) (crawler.Result, error)
	FirstPage(ctx context.Context) (crawler.Result, error)
}

// RunResult is the outcome of one pass over every enabled source
type RunResult struct {
	// New holds the listings no earlier run has seen
	New []listing.Listing
	// All holds every scored listing of the run, in source then first-seen order
	All []listing.Listing
	// Skipped maps each skipped source to the reason
	Skipped  map[listing.Source]error
	Duration time.Duration
}

// SmokeResult describes the first page of one source
type SmokeResult struct {
	Source   listing.Source
	Strategy string
	Cards    int
	Err      error
}

// Worker runs the pipeline: crawl, filter, score, dedup, then hand off
type Worker struct {
	crawlers  []SourceCrawler
	engine    *scoring.Engine
	store     *dedup.Store
	filter    listing.Filter
	publisher publisher.Publisher
	exporter  exporter.Exporter
	metrics   *metrics.Metrics
	logger    helpers.LoggerInterface
	log       *logger.Logger
	now       func() time.Time
}

// Option configures optional collaborators
type Option func(*Worker)

// WithFilter drops job listings that do not match f
func WithFilter(f listing.Filter) Option {
	return func(w *Worker) { w.filter = f }
}

// WithPublisher streams new listings after each commit
func WithPublisher(p publisher.Publisher) Option {
	return func(w *Worker) { w.publisher = p }
}

// WithExporter writes each run's listings
func WithExporter(e exporter.Exporter) Option {
	return func(w *Worker) { w.exporter = e }
}

// WithMetrics records per-source counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker creates a new worker
func NewWorker(
	crawlers []SourceCrawler,
	engine *scoring.Engine,
	store *dedup.Store,
	journal helpers.LoggerInterface,
	opts ...Option,
) *Worker {
	w := &Worker{
		crawlers: crawlers,
		engine:   engine,
		store:    store,
		logger:   journal,
		log:      logger.ForWorker(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunOnce crawls every source in order, then commits the dedup state.
//
// A source that fails its first page or its feasibility probe is skipped and
// journaled. Cancellation and fatal errors (persistence, configuration) abort
// the run without a commit. Export and publish happen after the commit and only log failures.
func (w *Worker) RunOnce(ctx context.Context) (RunResult, error) {
	start := w.now()
	result := RunResult{Skipped: make(map[listing.Source]error)}

	state, err := w.store.Load(ctx)
	if err != nil {
		if !apperrors.IsFatal(err) && ctx.Err() == nil {
			err = apperrors.NewPersistence("dedup", "load state", err)
		}
		return result, err
	}

	perSource := make(map[listing.Source][]listing.Listing)
	for _, c := range w.crawlers {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		source := c.Source()
		res, err := c.Crawl(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			w.log.Warn().Str("source", string(source)).Int("partial", len(res.Listings)).Msg("run interrupted, nothing committed")
			return RunResult{}, ctxErr
		}
		if apperrors.IsFatal(err) {
			w.log.Error().Str("source", string(source)).Err(err).Msg("run aborted, nothing committed")
			return RunResult{}, err
		}
		if err != nil {
			w.skip(source, err)
			result.Skipped[source] = err
			continue
		}

		scored := w.build(res)
		perSource[source] = scored
		result.All = append(result.All, scored...)
		w.log.Info().
			Str("source", string(source)).
			Int("pages", res.Pages).
			Str("strategy", res.Strategy).
			Str("stop", string(res.StopReason)).
			Int("detail_failures", res.DetailFailures).
			Int("listings", len(scored)).
			Msg("source crawled")
	}

	fresh, _ := w.store.Diff(result.All, state)
	if err := w.store.Commit(ctx, w.store.Observe(state, result.All, w.now())); err != nil {
		if !apperrors.IsFatal(err) && ctx.Err() == nil {
			err = apperrors.NewPersistence("dedup", "commit state", err)
		}
		return RunResult{}, fmt.Errorf("commit dedup state: %w", err)
	}
	result.New = fresh
	result.Duration = w.now().Sub(start)

	w.record(perSource, fresh, result.Duration)
	w.export(result)
	w.publish(fresh)

	w.log.Info().
		Int("all", len(result.All)).
		Int("new", len(result.New)).
		Int("skipped", len(result.Skipped)).
		Dur("elapsed", result.Duration).
		Msg("run finished")
	return result, nil
}

// build turns a crawl result into filtered, scored listings
func (w *Worker) build(res crawler.Result) []listing.Listing {
	out := make([]listing.Listing, 0, len(res.Listings))
	for _, p := range res.Listings {
		l := listing.New(res.Source, res.Kind, p)
		if w.filter.Active() && !w.filter.Match(l) {
			continue
		}
		out = append(out, l)
	}
	return w.engine.ScoreAll(out)
}

func (w *Worker) skip(source listing.Source, err error) {
	reason := string(apperrors.TypeOf(err))
	if reason == "" {
		reason = "unknown"
	}
	if apperrors.IsType(err, apperrors.ErrorTypeInfeasible) {
		w.log.Warn().Str("source", string(source)).Err(err).Msg("source infeasible this run, skipping")
	} else {
		w.log.Error().Str("source", string(source)).Err(err).Msg("source failed, skipping")
	}
	w.journal(string(source), err)
	if w.metrics != nil {
		w.metrics.SourceSkipped(string(source), reason)
	}
}

// journal appends to the error journal when one is configured
func (w *Worker) journal(source string, err error) {
	if w.logger != nil {
		w.logger.LogError(source, err)
	}
}

func (w *Worker) record(perSource map[listing.Source][]listing.Listing, fresh []listing.Listing, elapsed time.Duration) {
	if w.metrics == nil {
		return
	}
	freshBySource := make(map[listing.Source]int)
	for _, l := range fresh {
		freshBySource[l.Source]++
	}
	for source, all := range perSource {
		w.metrics.SourceCollected(string(source), len(all), freshBySource[source])
	}
	w.metrics.RunFinished(elapsed)
}

func (w *Worker) export(result RunResult) {
	if w.exporter == nil {
		return
	}
	if err := w.exporter.Export(result.All, result.New); err != nil {
		w.journal("Export", err)
	}
}

// publish streams new listings; the state is already committed, so failures only log
func (w *Worker) publish(fresh []listing.Listing) {
	if w.publisher == nil || len(fresh) == 0 {
		return
	}
	for i, l := range fresh {
		data, err := json.Marshal(l)
		if err != nil {
			w.journal(string(l.Source), err)
			continue
		}
		if err := w.publisher.Publish(string(l.Source), data); err != nil {
			w.journal(string(l.Source), err)
			continue
		}
		if i == 0 && w.logger != nil && os.Getenv("LISTINGSCOUT_ENVIRONMENT") != "production" {
			w.logger.LogInfo("published listing: %s", l.Title)
		}
	}

	// Trim the stream after publishing
	if err := w.publisher.TrimStreams(); err != nil {
		w.journal("StreamTrimming", err)
	}
}

// SmokeTest fetches page 1 of every source and reports what it found.
// Nothing is scored or committed.
func (w *Worker) SmokeTest(ctx context.Context) []SmokeResult {
	out := make([]SmokeResult, 0, len(w.crawlers))
	for _, c := range w.crawlers {
		if ctx.Err() != nil {
			break
		}
		res, err := c.FirstPage(ctx)
		out = append(out, SmokeResult{
			Source:   c.Source(),
			Strategy: res.Strategy,
			Cards:    len(res.Listings),
			Err:      err,
		})
	}
	return out
}

// Start runs once right away, then on every tick of spec until ctx is done.
// A tick that fires while a run is still going is skipped.
func (w *Worker) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, func() { w.runLogged(ctx) }); err != nil {
		return apperrors.NewConfiguration("invalid schedule "+spec, err)
	}

	w.runLogged(ctx)
	c.Start()
	w.log.Info().Str("spec", spec).Msg("scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	w.log.Info().Msg("scheduler stopped")
	return nil
}

func (w *Worker) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := w.RunOnce(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		w.log.Warn().Msg("run cancelled")
	case err != nil:
		w.log.Error().Err(err).Msg("run failed")
	default:
		w.log.Info().Int("new", len(result.New)).Msg("scheduled run complete")
	}
}
