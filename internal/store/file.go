package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/morfseg/internal/baseline"
	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
)

// FileExt is the extension of snapshot files in a FileStore directory.
const FileExt = ".mfsm"

// FileStore keeps one snapshot file per model in a directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating model directory: %w", err)
	}
	return &FileStore{dir: dir, logger: slog.Default().With("component", "file-store", "dir", dir)}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+FileExt)
}

// Save writes to a temporary file, syncs it and renames it over the
// previous snapshot.
func (f *FileStore) Save(ctx context.Context, name string, s *baseline.State) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	return writeAtomic(f.path(name), data)
}

// SaveFile writes a snapshot to an explicit path.
func SaveFile(path string, s *baseline.State) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating model directory: %w", err)
		}
	}
	return writeAtomic(path, data)
}

// LoadFile reads a snapshot from an explicit path.
func LoadFile(path string) (*baseline.State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrModelNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp model file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}
	if err := file.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing model file: %w", err)
	}
	file.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming model file: %w", err)
	}
	return nil
}

func (f *FileStore) Load(ctx context.Context, name string) (*baseline.State, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(f.path(name))
}

func (f *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("listing model directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), FileExt))
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileStore) Close() error { return nil }
