package backend

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS stores cassettes as plain files under a base directory.
type LocalFS struct {
	baseDir string
}

// NewLocalFS creates a LocalFS backend rooted at baseDir, creating the
// directory if needed.
func NewLocalFS(baseDir string) (*LocalFS, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cassette directory: %w", err)
	}
	return &LocalFS{baseDir: baseDir}, nil
}

func (l *LocalFS) path(name string) string {
	return filepath.Join(l.baseDir, name)
}

func (l *LocalFS) Write(ctx context.Context, name string, data []byte) error {
	p := l.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	return os.WriteFile(p, data, 0o644)
}

func (l *LocalFS) Read(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(l.path(name))
}

func (l *LocalFS) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(l.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (l *LocalFS) Delete(ctx context.Context, name string) error {
	return os.Remove(l.path(name))
}

func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(l.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	return names, err
}
