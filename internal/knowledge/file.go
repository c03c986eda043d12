package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileStore persists the knowledge base as a human-readable JSON object of
// question to answer. Every write replaces the whole file atomically.
type FileStore struct {
	path  string
	retry RetryPolicy
}

// NewFileStore creates a JSON file backend at path.
func NewFileStore(path string, policy RetryPolicy) *FileStore {
	return &FileStore{path: path, retry: policy}
}

// Name identifies the backend in logs.
func (f *FileStore) Name() string { return "json" }

// Read loads the knowledge file. A missing or empty file yields an empty base.
func (f *FileStore) Read(ctx context.Context) (*KnowledgeBase, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", f.path).Msg("knowledge file not found, starting empty")
			return NewKnowledgeBase(), nil
		}
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return NewKnowledgeBase(), nil
	}

	kb := NewKnowledgeBase()
	if err := json.Unmarshal(data, kb); err != nil {
		return nil, fmt.Errorf("parse knowledge file %s: %w", f.path, err)
	}
	return kb, nil
}

// Write overwrites the knowledge file with kb.
func (f *FileStore) Write(ctx context.Context, kb *KnowledgeBase) error {
	data, err := json.MarshalIndent(kb, "", "  ")
	if err != nil {
		return fmt.Errorf("encode knowledge base: %w", err)
	}
	data = append(data, '\n')

	return f.retry.Do(ctx, "write "+f.path, func(ctx context.Context) error {
		return writeFileAtomic(f.path, data, 0644)
	})
}

// Close is a no-op for the file backend.
func (f *FileStore) Close() error { return nil }

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it, then renames it over path so readers never see a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create knowledge directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace knowledge file: %w", err)
	}
	return nil
}
