// Command rfpharvest runs one pipeline pass: load pre-scraped notice
// batches, deduplicate, classify, extract key terms, append to the
// store, and optionally run the corpus analyzer afterwards.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lookout-analytics/rfpharvest/internal/feed"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/analyze"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/config"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/dedup"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/store/sqlite"
)

func main() {
	var (
		dataDir      = flag.String("data", "data", "Data directory for the store, seen set, and snapshot")
		inputs       = flag.String("input", "", "Comma-separated JSONL notice batches (required)")
		configPath   = flag.String("config", "", "Optional vocabulary overrides file (YAML)")
		historical   = flag.Bool("historical", false, "Backfill mode: never expire seen hashes")
		skipAnalysis = flag.Bool("skip-analysis", false, "Skip the corpus analysis pass")
		logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	if *inputs == "" {
		logger.Error("-input required")
		os.Exit(2)
	}
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Error("create data directory", "error", err)
		os.Exit(1)
	}

	components, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load configuration", "error", err)
		os.Exit(1)
	}

	ttl := dedup.DefaultTTL
	if *historical {
		ttl = dedup.HistoricalTTL
	}
	gate, err := dedup.Open(filepath.Join(*dataDir, "seen_hashes.json"), ttl)
	if err != nil {
		logger.Error("open seen set", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(*dataDir, "rfps.db"))
	if err != nil {
		gate.Close()
		logger.Error("open store", "error", err)
		os.Exit(1)
	}

	analyzer := analyze.New(components.Classifier.Vocabulary(), components.Stopwords)
	engine := harvest.New(harvest.Options{
		Store:      st,
		Gate:       gate,
		Classifier: components.Classifier,
		Extractor:  components.Extractor,
		Analyzer:   analyzer,
		Logger:     logger,
	})
	defer engine.Close()

	var sources []harvest.Source
	for _, path := range strings.Split(*inputs, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		sources = append(sources, feed.NewFileSource("", path))
	}

	now := time.Now().UTC()
	batch := engine.Collect(ctx, sources)
	res, err := engine.Ingest(ctx, batch, now)
	if err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Scraped %d notices: %d new, %d matched\n", res.Scraped, res.Accepted, res.Matched)

	if *skipAnalysis {
		return
	}
	ar, err := engine.Analyze(ctx, filepath.Join(*dataDir, "corpus_snapshot.json"), now)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}
	reportPath := filepath.Join(*dataDir, "corpus_report.txt")
	if err := os.WriteFile(reportPath, []byte(ar.Report), 0o644); err != nil {
		logger.Error("write report", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Analysis over %d notices written to %s\n", ar.Notices, reportPath)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
