package engine

import (
	"path/filepath"
	"testing"
)

func TestAcquireRunLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "web")

	unlock, err := acquireRunLock(dir)
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}
	if _, err := acquireRunLock(dir); err == nil {
		t.Fatal("second lock on the same directory should fail")
	}

	unlock()

	unlock2, err := acquireRunLock(dir)
	if err != nil {
		t.Fatalf("lock after release failed: %v", err)
	}
	unlock2()
}
