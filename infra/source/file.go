package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kilianp07/octoslots/core/model"
)

// FileSource reads the snapshot from a JSON document on disk on every fetch.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource { return &FileSource{path: path} }

func (s *FileSource) Fetch(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(b)
}

// Decode parses a snapshot document.
func Decode(b []byte) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
