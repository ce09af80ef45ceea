package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store manages persistent storage of the registration record
type Store interface {
	// Load returns the stored record, or nil if nothing valid is stored. A corrupt record is purged and reported as nil
	Load(ctx context.Context) (*Record, error)
	// Save validates and persists a record, replacing any previous one, and returns the record as stored
	Save(ctx context.Context, r Record) (Record, error)
	// Clear deletes the stored record, if any
	Clear(ctx context.Context) error
}

// decode parses a persisted record. ok is false if the content is malformed or incomplete
func decode(b []byte) (Record, bool) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, false
	}
	if !r.complete() {
		return Record{}, false
	}
	return r, true
}

// prepare validates a record and serializes its normalized form
func prepare(r Record) (Record, []byte, error) {
	if err := Validate(r); err != nil {
		return Record{}, nil, err
	}
	r = r.Normalize()
	b, err := json.Marshal(r)
	if err != nil {
		return Record{}, nil, fmt.Errorf("failed to marshal registration: %w", err)
	}
	return r, b, nil
}

// FileStore implements Store using a single JSON file on the OS file system
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a store that keeps the record in dir, under the storage key
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		path:   filepath.Join(dir, StorageKey+".json"),
		logger: logger,
	}
}

func (fs *FileStore) Load(_ context.Context) (*Record, error) {
	b, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	r, ok := decode(b)
	if !ok {
		fs.logger.Warn("discarding invalid stored registration", zap.String("path", fs.path))
		if err := fs.remove(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &r, nil
}

func (fs *FileStore) Save(_ context.Context, r Record) (Record, error) {
	r, b, err := prepare(r)
	if err != nil {
		return Record{}, err
	}

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Record{}, fmt.Errorf("failed to create data directory: %w", err)
	}
	// Write to a sibling temp file and rename over the target so readers never see a partial record
	tmp, err := os.CreateTemp(dir, StorageKey+"-*.tmp")
	if err != nil {
		return Record{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return Record{}, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Record{}, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.path); err != nil {
		return Record{}, fmt.Errorf("failed to replace registration file: %w", err)
	}
	return r, nil
}

func (fs *FileStore) Clear(_ context.Context) error {
	return fs.remove()
}

func (fs *FileStore) remove() error {
	err := os.Remove(fs.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
