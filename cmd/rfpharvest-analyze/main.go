// Command rfpharvest-analyze runs the corpus analyzer on its own
// schedule, reading the store and the previous snapshot and writing a
// fresh snapshot plus a drift report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/analyze"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/config"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/store/sqlite"
)

func main() {
	var (
		dataDir    = flag.String("data", "data", "Data directory for the store and snapshot")
		configPath = flag.String("config", "", "Optional vocabulary overrides file (YAML)")
		reportPath = flag.String("report", "", "Report output path (default <data>/corpus_report.txt)")
		toStdout   = flag.Bool("print", false, "Also print the report to stdout")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	components, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := sqlite.Open(ctx, filepath.Join(*dataDir, "rfps.db"))
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}

	engine := harvest.New(harvest.Options{
		Store:    st,
		Analyzer: analyze.New(components.Classifier.Vocabulary(), components.Stopwords),
		Logger:   logger,
	})
	defer engine.Close()

	res, err := engine.Analyze(ctx, filepath.Join(*dataDir, "corpus_snapshot.json"), time.Now().UTC())
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	out := *reportPath
	if out == "" {
		out = filepath.Join(*dataDir, "corpus_report.txt")
	}
	if err := os.WriteFile(out, []byte(res.Report), 0o644); err != nil {
		logger.Error("write report", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Analyzed %d notices, report written to %s\n", res.Notices, out)
	if *toStdout {
		fmt.Println(res.Report)
	}
}
