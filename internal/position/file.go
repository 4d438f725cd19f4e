package position

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileStore keeps the position in a single-line text file. Writes go to a
// temporary file that is renamed over the target, so readers and interrupted
// runs only ever see a complete line.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a store for path. The lock file lives next to it.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the position file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the saved position.
func (s *FileStore) Load() (Position, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Position{}, ErrNoPosition
	}
	if err != nil {
		return Position{}, fmt.Errorf("read position file: %w", err)
	}

	p, err := Parse(string(data))
	if err != nil {
		return Position{}, err
	}
	return p, nil
}

// Save atomically replaces the position file.
func (s *FileStore) Save(p Position) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create position directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp position file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(p.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write position: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync position: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close position: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace position file: %w", err)
	}
	return nil
}

// Lock takes an exclusive, non-blocking lock so that only one bot drives this
// position file. The returned function releases it.
func (s *FileStore) Lock() (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("create position directory: %w", err)
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire position lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another scriptbot instance is already using %s", s.path)
	}
	return s.lock.Unlock, nil
}
