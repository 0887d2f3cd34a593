package preload

import (
	"errors"
	"testing"
	"time"

	"speech-studio/internal/domain"
)

// TestTrackerLifecycle verifies the normal progression for one module.
func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()

	if err := tr.Transition(domain.ModuleTorch, domain.ModuleStatusLoading, 0, ""); err != nil {
		t.Fatalf("idle -> loading: %v", err)
	}
	if err := tr.Transition(domain.ModuleTorch, domain.ModuleStatusReady, 1200, ""); err != nil {
		t.Fatalf("loading -> ready: %v", err)
	}

	state := tr.Snapshot().Modules[domain.ModuleTorch]
	if state.Status != domain.ModuleStatusReady {
		t.Fatalf("status = %s, want ready", state.Status)
	}
	if state.DurationMs != 1200 {
		t.Fatalf("duration = %d, want 1200", state.DurationMs)
	}
	if state.LastSuccess.IsZero() {
		t.Fatal("expected lastSuccess to be stamped on ready")
	}
}

// TestTrackerRejectsIllegalTransitions checks the self-validating edges.
func TestTrackerRejectsIllegalTransitions(t *testing.T) {
	cases := []struct {
		name string
		to   domain.ModuleStatus
	}{
		{"idle to ready", domain.ModuleStatusReady},
		{"idle to failed", domain.ModuleStatusFailed},
		{"idle to idle", domain.ModuleStatusIdle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTracker()
			err := tr.Transition(domain.ModuleWhisperX, tc.to, 0, "")
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("error = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

// TestTrackerRejectsUnknownModule checks the fixed-set invariant.
func TestTrackerRejectsUnknownModule(t *testing.T) {
	tr := NewTracker()
	err := tr.Transition("tensorflow", domain.ModuleStatusLoading, 0, "")
	if !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("error = %v, want ErrUnknownModule", err)
	}
}

// TestTrackerLastSuccessSurvivesFailure checks success history is kept.
func TestTrackerLastSuccessSurvivesFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := newTrackerForTests(func() time.Time { return now })

	mustTransition(t, tr, domain.ModulePyannote, domain.ModuleStatusLoading, 0, "")
	mustTransition(t, tr, domain.ModulePyannote, domain.ModuleStatusReady, 10, "")
	mustTransition(t, tr, domain.ModulePyannote, domain.ModuleStatusLoading, 0, "")
	mustTransition(t, tr, domain.ModulePyannote, domain.ModuleStatusFailed, 5, "boom")

	state := tr.Snapshot().Modules[domain.ModulePyannote]
	if state.Status != domain.ModuleStatusFailed {
		t.Fatalf("status = %s, want failed", state.Status)
	}
	if state.Error != "boom" {
		t.Fatalf("error = %q, want boom", state.Error)
	}
	if !state.LastSuccess.Equal(now) {
		t.Fatalf("lastSuccess = %v, want %v", state.LastSuccess, now)
	}
}

// TestTrackerSnapshotIsACopy checks readers cannot mutate tracked state.
func TestTrackerSnapshotIsACopy(t *testing.T) {
	tr := NewTracker()
	snapshot := tr.Snapshot()
	snapshot.Modules[domain.ModuleTorch] = domain.ModuleState{
		Name:   domain.ModuleTorch,
		Status: domain.ModuleStatusReady,
	}

	if status, _ := tr.ModuleStatus(domain.ModuleTorch); status != domain.ModuleStatusIdle {
		t.Fatalf("status = %s, want idle after snapshot mutation", status)
	}
}

// TestTrackerRunTiming checks BeginRun/FinishRun bookkeeping.
func TestTrackerRunTiming(t *testing.T) {
	tr := NewTracker()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tr.BeginRun(start)
	if tr.Overall() != domain.OverallPreloading {
		t.Fatalf("overall = %s, want preloading", tr.Overall())
	}

	mustTransition(t, tr, domain.ModuleTorch, domain.ModuleStatusLoading, 0, "")
	mustTransition(t, tr, domain.ModuleTorch, domain.ModuleStatusReady, 10, "")
	mustTransition(t, tr, domain.ModuleWhisperX, domain.ModuleStatusLoading, 0, "")
	mustTransition(t, tr, domain.ModuleWhisperX, domain.ModuleStatusFailed, 10, "x")
	mustTransition(t, tr, domain.ModulePyannote, domain.ModuleStatusLoading, 0, "")
	mustTransition(t, tr, domain.ModulePyannote, domain.ModuleStatusFailed, 10, "y")

	overall := tr.FinishRun(start.Add(2 * time.Second))
	if overall != domain.OverallPartial {
		t.Fatalf("overall = %s, want partial", overall)
	}

	state := tr.Snapshot()
	if state.TotalDurationMs != 2000 {
		t.Fatalf("totalDurationMs = %d, want 2000", state.TotalDurationMs)
	}
}

// TestTrackerResetRestoresBaseline checks reset matches process start.
func TestTrackerResetRestoresBaseline(t *testing.T) {
	tr := NewTracker()
	mustTransition(t, tr, domain.ModuleTorch, domain.ModuleStatusLoading, 0, "")
	mustTransition(t, tr, domain.ModuleTorch, domain.ModuleStatusReady, 10, "")
	tr.Reset()

	state := tr.Snapshot()
	if state.Overall != domain.OverallIdle {
		t.Fatalf("overall = %s, want idle", state.Overall)
	}
	for name, module := range state.Modules {
		if module.Status != domain.ModuleStatusIdle {
			t.Fatalf("module %s status = %s, want idle", name, module.Status)
		}
		if !module.LastSuccess.IsZero() {
			t.Fatalf("module %s lastSuccess should be cleared by reset", name)
		}
	}
	if !state.StartTime.IsZero() || !state.EndTime.IsZero() {
		t.Fatal("run timing should be cleared by reset")
	}
}

// TestTrackerNotifiesObserver checks the change callback fires per transition.
func TestTrackerNotifiesObserver(t *testing.T) {
	tr := NewTracker()
	var seen []domain.ModuleStatus
	tr.SetOnChange(func(state domain.ModuleState) {
		seen = append(seen, state.Status)
	})

	mustTransition(t, tr, domain.ModuleTorch, domain.ModuleStatusLoading, 0, "")
	mustTransition(t, tr, domain.ModuleTorch, domain.ModuleStatusReady, 10, "")

	if len(seen) != 2 || seen[0] != domain.ModuleStatusLoading || seen[1] != domain.ModuleStatusReady {
		t.Fatalf("observed transitions = %v", seen)
	}
}

// mustTransition applies a transition or fails the test.
func mustTransition(t *testing.T, tr *Tracker, name domain.ModuleName, status domain.ModuleStatus, durationMs int64, errMsg string) {
	t.Helper()
	if err := tr.Transition(name, status, durationMs, errMsg); err != nil {
		t.Fatalf("transition %s -> %s: %v", name, status, err)
	}
}
