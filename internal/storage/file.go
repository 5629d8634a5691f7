package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IshaanNene/compscout/internal/types"
)

// fileDocument is the on-disk layout of a FileStore.
type fileDocument struct {
	Products map[string]*types.Product `json:"products"`
}

// FileStore keeps all records in one JSON document that is rewritten
// atomically (temp file + rename) after every mutation.
type FileStore struct {
	*MemoryStore
	path string
}

// NewFileStore opens or creates the JSON document at path.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, &types.ConfigurationError{Key: "storage.path", Reason: "is required for file storage"}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Op: "open", Err: fmt.Errorf("create data dir: %w", err)}
	}

	s := &FileStore{path: path}
	s.MemoryStore = newMemoryStore("file", s.write, logger)

	records, err := readDocument(path)
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Op: "open", Err: err}
	}
	for id, p := range records {
		if p == nil {
			continue
		}
		p.ID = id
		s.records[id] = p
		if p.UpdatedAt.After(s.stamp.last) {
			s.stamp.last = p.UpdatedAt
		}
	}

	s.logger.Info("file store opened", "path", path, "records", len(s.records))
	return s, nil
}

func readDocument(path string) (map[string]*types.Product, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc.Products, nil
}

// write replaces the document with records. Called with the store mutex held.
func (s *FileStore) write(records map[string]*types.Product) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fileDocument{Products: records}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode JSON: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
