// Package harvest wires the notice pipeline together: source adapters
// feed normalized notices through the dedup gate and classifier into
// the append-only store, and the corpus analyzer periodically reads the
// store back to detect vocabulary drift.
package harvest

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/analyze"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/classify"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/dedup"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/keyterms"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/store"
)

// Source produces a batch of normalized notices. Implementations own
// all network and parsing concerns; the pipeline only sees the record
// contract.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]notice.Notice, error)
}

// Options configures an Engine instance.
type Options struct {
	Store      store.Store
	Gate       *dedup.Gate
	Classifier *classify.Classifier
	Extractor  *keyterms.Extractor
	Analyzer   *analyze.Analyzer
	Logger     *slog.Logger
}

// Engine is the pipeline facade.
type Engine struct {
	store      store.Store
	gate       *dedup.Gate
	classifier *classify.Classifier
	extractor  *keyterms.Extractor
	analyzer   *analyze.Analyzer
	log        *slog.Logger

	idMu      sync.Mutex
	idEntropy *ulid.MonotonicEntropy
}

// New creates an Engine with the given dependencies. Nil Classifier,
// Extractor, and Logger fall back to defaults; Store and Gate are
// required by Ingest, Analyzer by Analyze.
func New(opts Options) *Engine {
	e := &Engine{
		store:      opts.Store,
		gate:       opts.Gate,
		classifier: opts.Classifier,
		extractor:  opts.Extractor,
		analyzer:   opts.Analyzer,
		log:        opts.Logger,
		idEntropy:  ulid.Monotonic(rand.Reader, 0),
	}
	if e.classifier == nil {
		e.classifier = classify.Default()
	}
	if e.extractor == nil {
		e.extractor = keyterms.Default()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Close releases the store and the seen-set lock.
func (e *Engine) Close() error {
	var first error
	if e.gate != nil {
		if err := e.gate.Close(); err != nil {
			first = err
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Collect fetches from all sources concurrently. A failing source is
// logged and skipped; its absence only shrinks the batch. The combined
// result preserves source order, not completion order.
func (e *Engine) Collect(ctx context.Context, sources []Source) []notice.Notice {
	batches := make([][]notice.Notice, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			notices, err := src.Fetch(ctx)
			if err != nil {
				e.log.Warn("source failed, skipping", "source", src.Name(), "error", err)
				return nil
			}
			e.log.Info("source collected", "source", src.Name(), "notices", len(notices))
			batches[i] = notices
			return nil
		})
	}
	// Fetch errors are logged and absorbed inside the goroutines.
	_ = g.Wait()

	var all []notice.Notice
	for _, b := range batches {
		all = append(all, b...)
	}
	return all
}

// IngestResult summarizes one pipeline run.
type IngestResult struct {
	Scraped  int // notices offered by the sources
	Accepted int // notices past the dedup gate, appended to the store
	Matched  int // accepted notices matching the keyword vocabulary
}

// Ingest runs the batch through the dedup gate and classifier and
// appends the accepted rows to the store. The seen set is saved before
// the append: if the append then fails, the run fails and the notices
// stay deduplicated, which at-least-once reprocessing tolerates.
func (e *Engine) Ingest(ctx context.Context, batch []notice.Notice, now time.Time) (IngestResult, error) {
	res := IngestResult{Scraped: len(batch)}
	scrapeDate := now.Format("2006-01-02")

	var rows []notice.Row
	for _, n := range batch {
		if !e.gate.ShouldAccept(n, now) {
			continue
		}
		res.Accepted++

		matched, keywords := e.classifier.ClassifyNotice(n)
		if matched {
			res.Matched++
		}

		rows = append(rows, notice.Row{
			RFPID:           e.rowID(n),
			Hash:            n.Hash(),
			Source:          n.Source,
			State:           n.State,
			Title:           n.Title,
			Agency:          n.Agency,
			Status:          n.Status,
			PostedDate:      n.PostedDate,
			CloseDate:       n.CloseDate,
			URL:             n.URL,
			Description:     n.Description,
			Amount:          n.Amount,
			Recipient:       n.Recipient,
			RecipientState:  n.RecipientState,
			PIName:          n.PIName,
			KeywordMatch:    matched,
			MatchedKeywords: keywords,
			KeyTerms:        e.extractor.Extract(n),
			ScrapeDate:      scrapeDate,
			ScrapeTimestamp: now,
		})
	}

	pruned := e.gate.Prune(now)
	if pruned > 0 {
		e.log.Info("pruned stale seen entries", "count", pruned)
	}
	if err := e.gate.Save(); err != nil {
		return res, fmt.Errorf("save seen set: %w", err)
	}

	if err := e.store.Append(ctx, rows); err != nil {
		return res, fmt.Errorf("append notices: %w", err)
	}
	e.log.Info("ingest complete",
		"scraped", res.Scraped, "accepted", res.Accepted, "matched", res.Matched)
	return res, nil
}

// rowID prefers the jurisdiction-scoped external ID and falls back to a
// generated ULID for sources that never assign one.
func (e *Engine) rowID(n notice.Notice) string {
	if n.ExternalID != "" {
		return n.ExternalID
	}
	e.idMu.Lock()
	defer e.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), e.idEntropy).String()
}

// AnalyzeResult summarizes one analyzer pass.
type AnalyzeResult struct {
	Report   string
	Notices  int
	Baseline bool
}

// Analyze loads the full corpus, diffs against the previous snapshot at
// snapshotPath, writes the new snapshot, and returns the report.
func (e *Engine) Analyze(ctx context.Context, snapshotPath string, now time.Time) (AnalyzeResult, error) {
	rows, err := e.store.All(ctx)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("load corpus: %w", err)
	}

	prev, hasPrev := analyze.LoadSnapshot(snapshotPath)
	if !hasPrev {
		e.log.Info("no usable previous snapshot, baseline run")
	}

	report, snap := e.analyzer.Analyze(rows, prev, hasPrev, now)
	if err := analyze.SaveSnapshot(snapshotPath, snap); err != nil {
		return AnalyzeResult{}, fmt.Errorf("save snapshot: %w", err)
	}
	e.log.Info("analysis complete",
		"notices", len(rows), "top_terms", len(snap.TopTfidf), "baseline", !hasPrev)
	return AnalyzeResult{Report: report, Notices: len(rows), Baseline: !hasPrev}, nil
}
