package harvest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/analyze"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/dedup"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/store"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/store/memstore"
)

type fakeSource struct {
	name    string
	notices []notice.Notice
	err     error
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) Fetch(ctx context.Context) ([]notice.Notice, error) {
	return f.notices, f.err
}

func newTestEngine(t *testing.T, s store.Store) *Engine {
	t.Helper()
	gate, err := dedup.Open(filepath.Join(t.TempDir(), "seen.json"), dedup.DefaultTTL)
	if err != nil {
		t.Fatal(err)
	}
	e := New(Options{
		Store:    s,
		Gate:     gate,
		Analyzer: analyze.New(nil, nil),
	})
	t.Cleanup(func() { e.Close() })
	return e
}

func TestCollectIsolatesFailingSource(t *testing.T) {
	e := newTestEngine(t, memstore.New())
	sources := []Source{
		fakeSource{name: "tx", notices: []notice.Notice{{State: "TX", ExternalID: "1", Title: "Transit Study"}}},
		fakeSource{name: "broken", err: errors.New("connection refused")},
		fakeSource{name: "nc", notices: []notice.Notice{{State: "NC", ExternalID: "2", Title: "Broadband Plan"}}},
	}
	batch := e.Collect(context.Background(), sources)
	if len(batch) != 2 {
		t.Fatalf("Collect returned %d notices, want 2", len(batch))
	}
	// Source order is preserved regardless of completion order.
	if batch[0].State != "TX" || batch[1].State != "NC" {
		t.Errorf("batch order = %v", batch)
	}
}

func TestIngestClassifiesAndStores(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	e := newTestEngine(t, s)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	batch := []notice.Notice{
		{State: "TX", ExternalID: "1", Title: "Economic development strategic plan", Agency: "Commerce"},
		{State: "TX", ExternalID: "2", Title: "Janitorial services contract"},
	}
	res, err := e.Ingest(ctx, batch, now)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Scraped != 2 || res.Accepted != 2 || res.Matched != 1 {
		t.Errorf("result = %+v, want 2/2/1", res)
	}

	rows, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("stored %d rows, want 2", len(rows))
	}
	if !rows[0].KeywordMatch || len(rows[0].MatchedKeywords) == 0 {
		t.Errorf("matched row not flagged: %+v", rows[0])
	}
	if rows[1].KeywordMatch {
		t.Errorf("unmatched row flagged: %+v", rows[1])
	}
	if rows[0].ScrapeDate != "2026-03-01" {
		t.Errorf("scrape date = %q", rows[0].ScrapeDate)
	}
	if rows[0].RFPID != "1" {
		t.Errorf("external ID not used as row ID: %q", rows[0].RFPID)
	}
}

func TestIngestReplayAppendsNothing(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	e := newTestEngine(t, s)

	now := time.Now()
	batch := []notice.Notice{
		{State: "TX", ExternalID: "1", Title: "Transit Study"},
		{State: "NC", ExternalID: "2", Title: "Broadband Plan"},
	}
	if _, err := e.Ingest(ctx, batch, now); err != nil {
		t.Fatal(err)
	}
	res, err := e.Ingest(ctx, batch, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if res.Accepted != 0 {
		t.Errorf("replay accepted %d notices", res.Accepted)
	}
	n, _ := s.Count(ctx)
	if n != 2 {
		t.Errorf("store has %d rows after replay, want 2", n)
	}
}

func TestIngestGeneratesIDWhenMissing(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	e := newTestEngine(t, s)

	batch := []notice.Notice{{State: "TX", Title: "Untitled posting"}}
	if _, err := e.Ingest(ctx, batch, time.Now()); err != nil {
		t.Fatal(err)
	}
	rows, _ := s.All(ctx)
	if len(rows) != 1 || len(rows[0].RFPID) != 26 {
		t.Errorf("expected generated 26-char ULID, got %q", rows[0].RFPID)
	}
}

type failStore struct {
	store.Store
}

func (f failStore) Append(ctx context.Context, rows []notice.Row) error {
	return errors.New("disk full")
}

func TestIngestStoreFailureIsFatal(t *testing.T) {
	e := newTestEngine(t, failStore{memstore.New()})
	batch := []notice.Notice{{State: "TX", ExternalID: "1", Title: "Transit Study"}}
	if _, err := e.Ingest(context.Background(), batch, time.Now()); err == nil {
		t.Fatal("store append failure should fail the run")
	}
}

func TestAnalyzeWritesSnapshotAndDiffs(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	e := newTestEngine(t, s)

	var batch []notice.Notice
	for i := 0; i < 10; i++ {
		batch = append(batch, notice.Notice{
			State:       "TX",
			ExternalID:  string(rune('a' + i)),
			Title:       "Regional transit corridor study",
			Description: "Consultant services for regional transit corridor planning and analysis work",
		})
	}
	if _, err := e.Ingest(ctx, batch, time.Now()); err != nil {
		t.Fatal(err)
	}

	snapPath := filepath.Join(t.TempDir(), "snapshot.json")
	first, err := e.Analyze(ctx, snapPath, time.Now())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !first.Baseline {
		t.Error("first run should be a baseline")
	}
	if _, ok := analyze.LoadSnapshot(snapPath); !ok {
		t.Fatal("snapshot file not written")
	}

	second, err := e.Analyze(ctx, snapPath, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if second.Baseline {
		t.Error("second run should diff against the saved snapshot")
	}
}
