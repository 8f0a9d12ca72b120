package store

import (
	"fmt"
	"path/filepath"
)

// NewStore opens the backend named by kind rooted at dir. Traces always live
// on the filesystem under dir, whichever backend holds the records.
func NewStore(kind, dir string) (Store, error) {
	switch kind {
	case "", "fs":
		return NewFSStore(dir)
	case "sqlite":
		return newSQLiteStore(dir, filepath.Join(dir, "runs.db"))
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
