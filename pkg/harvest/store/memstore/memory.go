// Package memstore provides an in-memory Store for tests and dry runs.
package memstore

import (
	"context"
	"sync"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/store"
)

type memStore struct {
	mu   sync.RWMutex
	rows []notice.Row
}

// New returns an empty in-memory store.
func New() store.Store {
	return &memStore{}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) Append(ctx context.Context, rows []notice.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memStore) All(ctx context.Context) ([]notice.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]notice.Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.rows)), nil
}
