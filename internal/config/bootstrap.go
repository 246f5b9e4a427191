package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SetsDir is the subdirectory of the data directory holding slot-set files.
const SetsDir = "sets"

// Bootstrap prepares the data directory and returns a store for its
// settings document. The directory is created when missing and a default
// document is written when none exists. Any failure here leaves the process
// without settings and is reported as ErrDataDir.
func Bootstrap(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataDir, err)
	}

	path := filepath.Join(dir, SettingsFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		store := NewStore(path)
		if err := store.write(Defaults()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataDir, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataDir, err)
	}

	return NewStore(path), nil
}

// EnsureSubdirs creates the data subdirectories. It reports whether any
// directory had to be created.
func EnsureSubdirs(dir string) (bool, error) {
	created := false
	for _, sub := range []string{SetsDir} {
		path := filepath.Join(dir, sub)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return created, fmt.Errorf("creating %s: %w", path, err)
		}
		created = true
	}
	return created, nil
}
