// Package store persists the client's local key-value state.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// KV is a string key-value store with local-storage semantics: Set
// overwrites, and a missing key is not an error.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Close() error
}

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Open creates the parent directory of path and opens the named driver.
func Open(driver, path string) (KV, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	switch driver {
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
