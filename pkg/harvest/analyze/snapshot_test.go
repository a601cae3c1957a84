package analyze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	s := Snapshot{
		Timestamp:   "2026-03-01T09:00:00Z",
		TopTfidf:    map[string]float64{"transit corridor": 0.04, "broadband": 0.02},
		GapTerms:    map[string]float64{"hydrogen hub": 0.003},
		RakePhrases: []string{"regional transit corridor", "fiber network deployment"},
	}
	if err := SaveSnapshot(path, s); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, ok := LoadSnapshot(path)
	if !ok {
		t.Fatal("saved snapshot failed to load")
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	if _, ok := LoadSnapshot(filepath.Join(t.TempDir(), "nope.json")); ok {
		t.Error("missing snapshot should report ok=false")
	}
}

func TestLoadCorruptSnapshotIsBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := LoadSnapshot(path); ok {
		t.Error("corrupt snapshot should report ok=false, not fail the run")
	}
}

func TestDiffNewDroppedDisjoint(t *testing.T) {
	prev := Snapshot{TopTfidf: map[string]float64{"alpha": 0.01, "beta": 0.02, "gamma": 0.03}}
	cur := Snapshot{TopTfidf: map[string]float64{"beta": 0.02, "gamma": 0.05, "delta": 0.01}}

	d := DiffSnapshots(prev, cur, 0.10)
	if diff := cmp.Diff([]string{"delta"}, d.NewTerms); diff != "" {
		t.Errorf("NewTerms (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"alpha"}, d.DroppedTerms); diff != "" {
		t.Errorf("DroppedTerms (-want +got):\n%s", diff)
	}
	dropped := make(map[string]struct{})
	for _, term := range d.DroppedTerms {
		dropped[term] = struct{}{}
	}
	for _, term := range d.NewTerms {
		if _, both := dropped[term]; both {
			t.Errorf("term %q both new and dropped", term)
		}
	}
}

func TestDiffRisingThreshold(t *testing.T) {
	prev := Snapshot{TopTfidf: map[string]float64{"steady": 0.0100, "rising": 0.0100, "slight": 0.0100}}
	cur := Snapshot{TopTfidf: map[string]float64{"steady": 0.0100, "rising": 0.0160, "slight": 0.0105}}

	d := DiffSnapshots(prev, cur, 0.10)
	if len(d.Rising) != 1 || d.Rising[0].Term != "rising" {
		t.Fatalf("Rising = %v, want exactly [rising]", d.Rising)
	}
	if d.Rising[0].Previous != 0.0100 || d.Rising[0].Current != 0.0160 {
		t.Errorf("rising scores = %+v", d.Rising[0])
	}
}

func TestDiffGapAndRakeSets(t *testing.T) {
	prev := Snapshot{
		GapTerms:    map[string]float64{"old gap": 0.002},
		RakePhrases: []string{"known phrase"},
	}
	cur := Snapshot{
		GapTerms:    map[string]float64{"old gap": 0.002, "new gap": 0.004},
		RakePhrases: []string{"known phrase", "fresh phrase"},
	}
	d := DiffSnapshots(prev, cur, 0.10)
	if diff := cmp.Diff([]string{"new gap"}, d.NewGapTerms); diff != "" {
		t.Errorf("NewGapTerms (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"fresh phrase"}, d.NewRakePhrases); diff != "" {
		t.Errorf("NewRakePhrases (-want +got):\n%s", diff)
	}
}
