package preload

import (
	"os/exec"
	"runtime"
	"testing"
)

// TestRegistryAddRemove checks the handle bookkeeping.
func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("len = %d, want 0", r.Len())
	}

	id := r.Add(nil)
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}

	r.Remove(id)
	if r.Len() != 0 {
		t.Fatalf("len = %d after remove, want 0", r.Len())
	}

	// Removing an unknown handle is a no-op.
	r.Remove(999)
}

// TestRegistryTerminateAll checks registered processes get signalled.
func TestRegistryTerminateAll(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	cmd := exec.Command("sh", "-c", "sleep 30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	r := NewRegistry()
	r.Add(cmd.Process)

	if signalled := r.TerminateAll(); signalled != 1 {
		t.Fatalf("signalled = %d, want 1", signalled)
	}

	if err := cmd.Wait(); err == nil {
		t.Fatal("expected killed process to report a nonzero exit")
	}
}
