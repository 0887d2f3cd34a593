package preload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"speech-studio/internal/domain"
)

// maxErrorOutput bounds probe output recorded as a module error.
const maxErrorOutput = 300

// Invocation describes one readiness probe execution.
type Invocation struct {
	Module  domain.ModuleName
	Command string
	Args    []string
	Env     []string
	Marker  string
	Timeout time.Duration
}

// Invoker runs readiness probes in external worker processes. Each call
// spawns exactly one process, registers it for out-of-band termination, and
// maps exit status plus output markers to a boolean result. No retries.
type Invoker struct {
	registry *Registry
	log      *zap.Logger
}

// NewInvoker creates an invoker bound to the shared process registry.
func NewInvoker(registry *Registry, log *zap.Logger) *Invoker {
	return &Invoker{
		registry: registry,
		log:      log,
	}
}

// Invoke runs one probe to completion, timeout, or cancellation. It returns
// ok only when the process exits zero and its stdout contains the marker;
// every other outcome is a failure described by the returned error. On
// timeout or cancellation the result is returned immediately and the process
// is killed in the background.
func (v *Invoker) Invoke(ctx context.Context, inv Invocation) (bool, error) {
	cmd := exec.Command(inv.Command, inv.Args...)
	cmd.Env = append(os.Environ(), inv.Env...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("spawn %s: %w", inv.Command, err)
	}

	id := v.registry.Add(cmd.Process)
	defer v.registry.Remove(id)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(inv.Timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return false, errors.New(probeFailureDetail(err, &stdout, &stderr))
		}
		if !strings.Contains(stdout.String(), inv.Marker) {
			return false, fmt.Errorf("probe output missing marker %q", inv.Marker)
		}
		return true, nil

	case <-timer.C:
		v.terminateDetached(inv.Module, cmd, done)
		return false, fmt.Errorf("probe timed out after %s", inv.Timeout)

	case <-ctx.Done():
		v.terminateDetached(inv.Module, cmd, done)
		return false, errors.New("cancelled")
	}
}

// terminateDetached kills the probe process in the background so timeout and
// cancellation results reach the caller immediately. Completion is logged,
// never awaited.
func (v *Invoker) terminateDetached(module domain.ModuleName, cmd *exec.Cmd, done <-chan error) {
	go func() {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			v.log.Warn("terminate probe process",
				zap.String("module", string(module)),
				zap.Error(err))
			return
		}
		<-done
		v.log.Debug("probe process terminated",
			zap.String("module", string(module)))
	}()
}

// probeFailureDetail turns a nonzero exit into a short error string,
// preferring stderr over stdout for diagnostic content.
func probeFailureDetail(err error, stdout, stderr *bytes.Buffer) string {
	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = strings.TrimSpace(stdout.String())
	}
	if len(detail) > maxErrorOutput {
		detail = detail[:maxErrorOutput] + "..."
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if detail == "" {
			return fmt.Sprintf("probe exited with status %d", exitErr.ExitCode())
		}
		return fmt.Sprintf("probe exited with status %d: %s", exitErr.ExitCode(), detail)
	}
	if detail == "" {
		return fmt.Sprintf("probe failed: %v", err)
	}
	return fmt.Sprintf("probe failed: %v: %s", err, detail)
}
