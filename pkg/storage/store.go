package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportStore keeps rendered export files on local disk under one root
// directory. Names are always relative; path traversal is rejected.
type ExportStore struct {
	root string
}

// NewExportStore creates the root directory if needed.
func NewExportStore(root string) (*ExportStore, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create export root: %w", err)
	}
	return &ExportStore{root: root}, nil
}

// Save writes data under the given relative name and returns the name.
func (s *ExportStore) Save(name string, data []byte) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare export dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return name, nil
}

// Exists reports whether a stored file is still present.
func (s *ExportStore) Exists(name string) bool {
	path, err := s.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Path returns the absolute path of a stored file.
func (s *ExportStore) Path(name string) (string, error) {
	return s.resolve(name)
}

// Remove deletes a stored file; a missing file is not an error.
func (s *ExportStore) Remove(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove export: %w", err)
	}
	return nil
}

// Sweep deletes files whose modification time is older than maxAge and
// returns their relative names.
func (s *ExportStore) Sweep(maxAge time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-maxAge)
	var removed []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		if rel, err := filepath.Rel(s.root, path); err == nil {
			removed = append(removed, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sweep exports: %w", err)
	}
	return removed, nil
}

func (s *ExportStore) resolve(name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == "." || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	return filepath.Join(s.root, cleaned), nil
}
