// Package store defines the append-only persistence interface for
// accepted notices.
package store

import (
	"context"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
)

// Store persists accepted notice rows. The log is append-only: rows are
// never updated or deleted by the pipeline, and the corpus analyzer only
// reads. Append must either persist every row in the batch or none.
type Store interface {
	Close() error

	Append(ctx context.Context, rows []notice.Row) error
	All(ctx context.Context) ([]notice.Row, error)
	Count(ctx context.Context) (int64, error)
}
