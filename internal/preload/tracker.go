package preload

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"speech-studio/internal/domain"
)

// ErrUnknownModule is returned for modules outside the fixed warm-up set.
var ErrUnknownModule = errors.New("unknown module")

// ErrInvalidTransition is returned for illegal state machine edges.
var ErrInvalidTransition = errors.New("invalid module transition")

// Tracker owns the preload state and applies per-module transitions. The
// orchestrator is the only writer; every reader gets a deep copy so no
// caller can observe a torn intermediate state.
type Tracker struct {
	mu       sync.RWMutex
	state    domain.PreloadState
	now      func() time.Time
	onChange func(domain.ModuleState)
}

// NewTracker creates a tracker with every module idle.
func NewTracker() *Tracker {
	return &Tracker{
		state: initialState(),
		now:   time.Now,
	}
}

// SetOnChange registers the observer invoked after every transition.
// Must be called before the first run starts.
func (t *Tracker) SetOnChange(fn func(domain.ModuleState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Transition replaces the state of one module. DurationMs and errMsg apply
// only on terminal transitions; LastSuccess is stamped on ready and survives
// later failures.
func (t *Tracker) Transition(name domain.ModuleName, status domain.ModuleStatus, durationMs int64, errMsg string) error {
	t.mu.Lock()

	current, ok := t.state.Modules[name]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	if !isValidTransition(current.Status, status) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, current.Status, status, name)
	}

	next := domain.ModuleState{
		Name:        name,
		Status:      status,
		LastSuccess: current.LastSuccess,
	}
	switch status {
	case domain.ModuleStatusReady:
		next.DurationMs = durationMs
		next.LastSuccess = t.now().UTC()
	case domain.ModuleStatusFailed:
		next.DurationMs = durationMs
		next.Error = errMsg
	}

	t.state.Modules[name] = next
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(next)
	}
	return nil
}

// BeginRun marks the whole set as preloading and records the start time.
func (t *Tracker) BeginRun(start time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Overall = domain.OverallPreloading
	t.state.StartTime = start.UTC()
	t.state.EndTime = time.Time{}
	t.state.TotalDurationMs = 0
}

// FinishRun folds module statuses into the overall status and records run
// timing. Returns the computed overall status.
func (t *Tracker) FinishRun(end time.Time) domain.OverallStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Overall = domain.OverallFromModules(t.state.Modules)
	t.state.EndTime = end.UTC()
	if !t.state.StartTime.IsZero() {
		t.state.TotalDurationMs = end.Sub(t.state.StartTime).Milliseconds()
	}
	return t.state.Overall
}

// RecomputeOverall refreshes the overall status outside a full run, e.g.
// after a single-module re-trigger.
func (t *Tracker) RecomputeOverall() domain.OverallStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Overall = domain.OverallFromModules(t.state.Modules)
	return t.state.Overall
}

// Overall returns the current overall status.
func (t *Tracker) Overall() domain.OverallStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Overall
}

// ModuleStatus returns the current status of one module.
func (t *Tracker) ModuleStatus(name domain.ModuleName) (domain.ModuleStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.state.Modules[name]
	if !ok {
		return "", false
	}
	return state.Status, true
}

// Snapshot returns a deep copy of the preload state.
func (t *Tracker) Snapshot() domain.PreloadState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := t.state
	snapshot.Modules = make(map[domain.ModuleName]domain.ModuleState, len(t.state.Modules))
	for name, state := range t.state.Modules {
		snapshot.Modules[name] = state
	}
	return snapshot
}

// Reset restores the all-idle initial shape.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = initialState()
}

// initialState builds the all-idle baseline identical to process start.
func initialState() domain.PreloadState {
	modules := make(map[domain.ModuleName]domain.ModuleState, len(domain.AllModules()))
	for _, name := range domain.AllModules() {
		modules[name] = domain.ModuleState{Name: name, Status: domain.ModuleStatusIdle}
	}
	return domain.PreloadState{
		Overall: domain.OverallIdle,
		Modules: modules,
	}
}

// isValidTransition enforces the allowed module state machine edges.
// Terminal states may only be left through an explicit re-trigger.
func isValidTransition(from, to domain.ModuleStatus) bool {
	switch from {
	case domain.ModuleStatusIdle:
		return to == domain.ModuleStatusLoading
	case domain.ModuleStatusLoading:
		return to == domain.ModuleStatusReady || to == domain.ModuleStatusFailed
	case domain.ModuleStatusReady, domain.ModuleStatusFailed:
		return to == domain.ModuleStatusLoading
	default:
		return false
	}
}

// newTrackerForTests creates a tracker with an injectable clock.
func newTrackerForTests(now func() time.Time) *Tracker {
	return &Tracker{
		state: initialState(),
		now:   now,
	}
}
