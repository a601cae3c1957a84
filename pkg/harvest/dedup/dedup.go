// Package dedup implements the cross-run deduplication gate. The seen
// set lives in a JSON file mapping content hash to first-sighting
// metadata; the gate loads it once per run, mutates it in memory, and
// persists it atomically under a file lock.
package dedup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/internalerr"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
)

const (
	// DefaultTTL prunes seen entries after 90 days, allowing very old
	// recurring postings to resurface across runs.
	DefaultTTL = 90 * 24 * time.Hour

	// HistoricalTTL is effectively unbounded, for backfill runs that must
	// never re-accept anything.
	HistoricalTTL = 36500 * 24 * time.Hour
)

// Entry records the first sighting of a content hash. Entries are never
// mutated; they are deleted once older than the TTL.
type Entry struct {
	FirstSeen time.Time `json:"first_seen"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
}

// Gate is the dedup gate over one seen-set file. It holds the file lock
// for its lifetime; a second Open on the same path fails until Close.
type Gate struct {
	path string
	ttl  time.Duration
	lock *flock.Flock

	mu   sync.Mutex
	seen map[string]Entry
}

// Open acquires the lock for the seen-set file and loads it. A missing
// file yields an empty set; a corrupt file is an error, since silently
// resetting the set would re-accept the entire corpus.
func Open(path string, ttl time.Duration) (*Gate, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock seen set: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, internalerr.ErrLocked)
	}

	g := &Gate{
		path: path,
		ttl:  ttl,
		lock: lock,
		seen: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return g, nil
	}
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("read seen set: %w", err)
	}
	if err := json.Unmarshal(data, &g.seen); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("parse seen set %s: %w", path, err)
	}
	return g, nil
}

// ShouldAccept reports whether the notice's content hash is new. On
// accept it registers the hash with firstSeen = now, so a replay of the
// same batch accepts nothing.
func (g *Gate) ShouldAccept(n notice.Notice, now time.Time) bool {
	h := n.Hash()

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.seen[h]; dup {
		return false
	}
	g.seen[h] = Entry{FirstSeen: now, Title: n.Title, State: n.State}
	return true
}

// Contains reports whether a hash is in the seen set.
func (g *Gate) Contains(hash string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[hash]
	return ok
}

// Len returns the number of tracked hashes.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// Prune removes entries older than the TTL and returns how many were
// dropped. Pruning never un-rejects a hash within the current run.
func (g *Gate) Prune(now time.Time) int {
	cutoff := now.Add(-g.ttl)

	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for hash, entry := range g.seen {
		if entry.FirstSeen.Before(cutoff) {
			delete(g.seen, hash)
			removed++
		}
	}
	return removed
}

// Save persists the seen set atomically: write a temp file in the same
// directory, then rename over the target.
func (g *Gate) Save() error {
	g.mu.Lock()
	data, err := json.MarshalIndent(g.seen, "", "  ")
	g.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode seen set: %w", err)
	}

	dir := filepath.Dir(g.path)
	tmp, err := os.CreateTemp(dir, ".seen-*.json")
	if err != nil {
		return fmt.Errorf("write seen set: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write seen set: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write seen set: %w", err)
	}
	if err := os.Rename(tmp.Name(), g.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace seen set: %w", err)
	}
	return nil
}

// Close releases the file lock. It does not save.
func (g *Gate) Close() error {
	return g.lock.Unlock()
}
