package savegame

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/park285/echecs/internal/obslog"
	"go.uber.org/zap"
)

// Store keeps named snapshots.
type Store interface {
	Save(ctx context.Context, name string, s Snapshot) error
	Load(ctx context.Context, name string) (Snapshot, error)
	List(ctx context.Context) ([]string, error)
}

// PathProvider resolves a save name to a file path. The terminal front end
// supplies one; DirPaths is the plain directory mapping.
type PathProvider interface {
	Path(name string) (string, error)
}

// DirPaths keeps saves in Dir. Names without an extension get Ext, which
// defaults to ".json".
type DirPaths struct {
	Dir string
	Ext string
}

func (d DirPaths) Path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid save name %q", name)
	}
	if filepath.Ext(name) == "" {
		ext := d.Ext
		if ext == "" {
			ext = ".json"
		}
		name += ext
	}
	return filepath.Join(d.Dir, name), nil
}

// FileStore writes one file per save, encoded by extension.
type FileStore struct {
	paths PathProvider
	dir   string
}

// NewFileStore stores saves under dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{paths: DirPaths{Dir: dir}, dir: dir}
}

// NewFileStoreWithPaths uses p to resolve names. List only sees files in dir.
func NewFileStoreWithPaths(dir string, p PathProvider) *FileStore {
	return &FileStore{paths: p, dir: dir}
}

func (s *FileStore) Save(_ context.Context, name string, snap Snapshot) error {
	path, err := s.paths.Path(name)
	if err != nil {
		return err
	}
	data, err := CodecFor(path).Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create save dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	obslog.L().Info("save_write", zap.String("path", path), zap.Int("pieces", len(snap.Pieces)))
	return nil
}

func (s *FileStore) Load(_ context.Context, name string) (Snapshot, error) {
	path, err := s.paths.Path(name)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read save: %w", err)
	}
	snap, err := CodecFor(path).Unmarshal(data)
	if err != nil {
		obslog.L().Warn("save_read_malformed", zap.String("path", path), zap.Error(err))
		return Snapshot{}, err
	}
	return snap, nil
}

// List returns the save names in the directory, without extension.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch ext := strings.ToLower(filepath.Ext(e.Name())); ext {
		case ".json", ".yaml", ".yml":
			names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		}
	}
	sort.Strings(names)
	return names, nil
}
