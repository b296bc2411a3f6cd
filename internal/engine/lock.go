package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created in the output directory while a run writes to it.
const LockFileName = ".eliwatch.lock"

// acquireRunLock takes an exclusive, non-blocking lock on dir so that two
// runs never interleave artifact writes. The returned func releases it.
func acquireRunLock(dir string) (func(), error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	lk := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", lk.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("another eliwatch run holds %s", lk.Path())
	}
	return func() {
		_ = lk.Unlock()
		_ = os.Remove(lk.Path())
	}, nil
}
