// Package feed loads pre-scraped notice batches from JSONL files, the
// handoff format between the out-of-process source adapters and the
// pipeline.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
)

// LoadFromJSONL reads one notice per line. Malformed lines are logged
// and skipped; a file with no valid notice at all is an error.
func LoadFromJSONL(path string) ([]notice.Notice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var notices []notice.Notice
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var n notice.Notice
		if err := json.Unmarshal([]byte(line), &n); err != nil {
			slog.Warn("skipping malformed notice line", "file", path, "line", i+1, "error", err)
			continue
		}
		notices = append(notices, n)
	}

	if len(notices) == 0 {
		return nil, fmt.Errorf("no valid notices found in %s", path)
	}
	return notices, nil
}

// FileSource adapts a JSONL file to the pipeline's Source interface.
type FileSource struct {
	name string
	path string
}

// NewFileSource names the source after the file unless a name is given.
func NewFileSource(name, path string) *FileSource {
	if name == "" {
		name = path
	}
	return &FileSource{name: name, path: path}
}

func (f *FileSource) Name() string { return f.name }

func (f *FileSource) Fetch(ctx context.Context) ([]notice.Notice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFromJSONL(f.path)
}
