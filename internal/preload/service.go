package preload

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"speech-studio/internal/domain"
)

// defaultPollInterval paces the bounded wait helpers.
const defaultPollInterval = 50 * time.Millisecond

// Options configures a preload service.
type Options struct {
	Env EnvironmentLookup
	Log *zap.Logger
	// Timeout bounds each module probe.
	Timeout time.Duration
	// EventBuffer caps the event history kept for incremental reads.
	EventBuffer int
}

// inflightRun is one deduplicated warm-up run shared by every concurrent
// caller that joined it.
type inflightRun struct {
	done   chan struct{}
	result domain.PreloadResult
}

// Service is the public warm-up facade. It deduplicates concurrent start
// requests into a single in-flight run, answers readiness queries from
// state snapshots, and owns cancellation of spawned probe processes.
type Service struct {
	orch         *Orchestrator
	tracker      *Tracker
	registry     *Registry
	events       *Bus
	log          *zap.Logger
	pollInterval time.Duration

	mu        sync.Mutex
	inflight  *inflightRun
	cancelRun context.CancelFunc
}

// NewService builds a fully wired preload service. Module status changes are
// published on the service's event bus as they happen.
func NewService(opts Options) *Service {
	registry := NewRegistry()
	tracker := NewTracker()
	events := NewBus(opts.EventBuffer)
	invoker := NewInvoker(registry, opts.Log)
	return newService(tracker, invoker, registry, events, opts)
}

// newService wires a service around explicit collaborators, letting tests
// substitute the probe invoker.
func newService(tracker *Tracker, invoker probeInvoker, registry *Registry, events *Bus, opts Options) *Service {
	orch := NewOrchestrator(tracker, invoker, opts.Env, events, opts.Log, opts.Timeout)
	svc := &Service{
		orch:         orch,
		tracker:      tracker,
		registry:     registry,
		events:       events,
		log:          opts.Log,
		pollInterval: defaultPollInterval,
	}

	tracker.SetOnChange(func(state domain.ModuleState) {
		events.Publish(Event{
			Type:       EventTypeModuleStatus,
			Module:     state.Name,
			Status:     state.Status,
			DurationMs: state.DurationMs,
			Error:      state.Error,
		})
	})
	return svc
}

// Events exposes the lifecycle notification bus.
func (s *Service) Events() *Bus {
	return s.events
}

// State returns an immutable snapshot of the preload state.
func (s *Service) State() domain.PreloadState {
	return s.tracker.Snapshot()
}

// IsReady reports whether every module is warm.
func (s *Service) IsReady() bool {
	return s.tracker.Overall() == domain.OverallReady
}

// IsPreloading reports whether a warm-up run is in flight.
func (s *Service) IsPreloading() bool {
	return s.tracker.Overall() == domain.OverallPreloading
}

// Start runs the warm-up and blocks until it settles. Callers arriving
// mid-run join the in-flight run and receive its result. When the state is
// already terminal-useful (ready or partial) a result is synthesized from
// the current state without spawning anything; a prior failed run is
// re-attempted from scratch.
func (s *Service) Start(ctx context.Context) domain.PreloadResult {
	s.mu.Lock()
	if run := s.inflight; run != nil {
		s.mu.Unlock()
		<-run.done
		return run.result
	}

	snapshot := s.tracker.Snapshot()
	if snapshot.Overall == domain.OverallReady || snapshot.Overall == domain.OverallPartial {
		s.mu.Unlock()
		return resultFromState(snapshot)
	}

	run := &inflightRun{done: make(chan struct{})}
	// The run outlives any single joiner; only Cancel/Reset cut it short.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.inflight = run
	s.cancelRun = cancel
	s.mu.Unlock()

	go func() {
		run.result = s.orch.Run(runCtx)

		s.mu.Lock()
		if s.inflight == run {
			s.inflight = nil
			s.cancelRun = nil
		}
		s.mu.Unlock()

		cancel()
		close(run.done)
	}()

	<-run.done
	return run.result
}

// PreloadModule warms a single module. Already-warm modules return true
// immediately; a module currently loading is awaited rather than re-spawned;
// otherwise the module runs its probe synchronously.
func (s *Service) PreloadModule(ctx context.Context, name domain.ModuleName, timeout time.Duration) bool {
	status, ok := s.tracker.ModuleStatus(name)
	if !ok {
		return false
	}

	switch status {
	case domain.ModuleStatusReady:
		return true
	case domain.ModuleStatusLoading:
		return s.WaitForModule(name, timeout)
	}

	s.orch.WarmModule(ctx, name)
	s.tracker.RecomputeOverall()

	status, _ = s.tracker.ModuleStatus(name)
	return status == domain.ModuleStatusReady
}

// WaitForModule polls until the module settles or the timeout elapses.
// Returns false on timeout and on failure.
func (s *Service) WaitForModule(name domain.ModuleName, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		status, ok := s.tracker.ModuleStatus(name)
		if !ok {
			return false
		}
		switch status {
		case domain.ModuleStatusReady:
			return true
		case domain.ModuleStatusFailed:
			return false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if remaining > s.pollInterval {
			remaining = s.pollInterval
		}
		time.Sleep(remaining)
	}
}

// WaitForAll races the in-flight run against the timeout. With no run in
// flight it answers from the current state: true when at least one module
// is warm.
func (s *Service) WaitForAll(timeout time.Duration) bool {
	s.mu.Lock()
	run := s.inflight
	s.mu.Unlock()

	if run == nil {
		overall := s.tracker.Overall()
		return overall == domain.OverallReady || overall == domain.OverallPartial
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-run.done:
		return run.result.Success
	case <-timer.C:
		return false
	}
}

// Cancel terminates all in-flight probe processes and clears the in-flight
// run handle. Callers already joined to the run still receive its result
// when it settles; interrupted modules record a cancelled failure. Cancel
// never waits for process termination.
func (s *Service) Cancel() {
	s.mu.Lock()
	cancel := s.cancelRun
	s.inflight = nil
	s.cancelRun = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	signalled := s.registry.TerminateAll()

	s.events.Publish(Event{Type: EventTypeRunCancelled})
	s.log.Info("warm-up cancelled", zap.Int("processesSignalled", signalled))
}

// Reset cancels any in-flight run, waits for it to settle, and restores the
// all-idle initial state.
func (s *Service) Reset() {
	s.mu.Lock()
	run := s.inflight
	s.mu.Unlock()

	s.Cancel()
	if run != nil {
		<-run.done
	}

	s.tracker.Reset()
	s.events.Publish(Event{Type: EventTypeStateReset})
	s.log.Info("warm-up state reset")
}

// resultFromState synthesizes a run summary from an already-terminal state,
// serving cache-hit starts without spawning processes.
func resultFromState(state domain.PreloadState) domain.PreloadResult {
	perModule := make(map[domain.ModuleName]bool, len(state.Modules))
	var errs []string
	success := false
	for name, module := range state.Modules {
		warm := module.Status == domain.ModuleStatusReady
		perModule[name] = warm
		if warm {
			success = true
		}
		if module.Status == domain.ModuleStatusFailed && module.Error != "" {
			errs = append(errs, string(name)+": "+module.Error)
		}
	}

	sort.Strings(errs)
	return domain.PreloadResult{
		Success:    success,
		PerModule:  perModule,
		Errors:     errs,
		DurationMs: state.TotalDurationMs,
	}
}
