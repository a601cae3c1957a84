package analyze

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
)

// Snapshot captures one analysis run's view of the corpus, persisted
// between runs so the next one can diff against it.
type Snapshot struct {
	Timestamp   string             `json:"timestamp"`
	TopTfidf    map[string]float64 `json:"top_tfidf"`
	GapTerms    map[string]float64 `json:"gap_terms"`
	RakePhrases []string           `json:"rake_phrases"`
}

// LoadSnapshot reads the previous snapshot. A missing or unreadable file
// reports ok=false: unlike the dedup seen set, losing a snapshot only
// costs one diff, so the run degrades to a baseline instead of failing.
func LoadSnapshot(path string) (Snapshot, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, false
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false
	}
	return s, true
}

// SaveSnapshot writes the snapshot atomically under a file lock, so an
// ingest run and a standalone analysis run cannot interleave writes.
func SaveSnapshot(path string, s Snapshot) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock snapshot: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// RisingTerm is a term whose prominence grew beyond the rising threshold
// between two snapshots.
type RisingTerm struct {
	Term     string
	Previous float64
	Current  float64
}

// Drift is the difference between two snapshots. NewTerms and
// DroppedTerms are disjoint by construction.
type Drift struct {
	Baseline       bool
	NewTerms       []string
	DroppedTerms   []string
	Rising         []RisingTerm
	NewGapTerms    []string
	NewRakePhrases []string
}

// DiffSnapshots compares the current snapshot against the previous one.
// threshold is the relative score increase (e.g. 0.10 for 10%) above
// which a shared term counts as rising.
func DiffSnapshots(prev, cur Snapshot, threshold float64) Drift {
	var d Drift

	for term := range cur.TopTfidf {
		if _, ok := prev.TopTfidf[term]; !ok {
			d.NewTerms = append(d.NewTerms, term)
		}
	}
	for term := range prev.TopTfidf {
		if _, ok := cur.TopTfidf[term]; !ok {
			d.DroppedTerms = append(d.DroppedTerms, term)
		}
	}
	sort.Strings(d.NewTerms)
	sort.Strings(d.DroppedTerms)

	for term, score := range cur.TopTfidf {
		prevScore, ok := prev.TopTfidf[term]
		if !ok || prevScore <= 0 {
			continue
		}
		if (score-prevScore)/prevScore > threshold {
			d.Rising = append(d.Rising, RisingTerm{Term: term, Previous: prevScore, Current: score})
		}
	}
	sort.Slice(d.Rising, func(i, j int) bool {
		ri := (d.Rising[i].Current - d.Rising[i].Previous) / d.Rising[i].Previous
		rj := (d.Rising[j].Current - d.Rising[j].Previous) / d.Rising[j].Previous
		if ri != rj {
			return ri > rj
		}
		return d.Rising[i].Term < d.Rising[j].Term
	})

	for term := range cur.GapTerms {
		if _, ok := prev.GapTerms[term]; !ok {
			d.NewGapTerms = append(d.NewGapTerms, term)
		}
	}
	sort.Strings(d.NewGapTerms)

	prevPhrases := make(map[string]struct{}, len(prev.RakePhrases))
	for _, p := range prev.RakePhrases {
		prevPhrases[p] = struct{}{}
	}
	for _, p := range cur.RakePhrases {
		if _, ok := prevPhrases[p]; !ok {
			d.NewRakePhrases = append(d.NewRakePhrases, p)
		}
	}
	sort.Strings(d.NewRakePhrases)

	return d
}
