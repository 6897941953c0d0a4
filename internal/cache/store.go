package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store holds raw page content by key. Entries are never invalidated;
// deleting the backing file is the only way to force a re-fetch.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, content []byte) error
}

// FileStore keeps one file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore хранит страницы в dir, каталог создаётся при первой записи
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached page %s: %w", key, err)
	}
	return data, true, nil
}

func (s *FileStore) Put(key string, content []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(s.Path(key), content, 0o644); err != nil {
		return fmt.Errorf("failed to write cached page %s: %w", key, err)
	}
	return nil
}
