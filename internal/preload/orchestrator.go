package preload

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"speech-studio/internal/domain"
	"speech-studio/internal/pyenv"
)

// probeInvoker abstracts worker invocation for testability.
type probeInvoker interface {
	Invoke(ctx context.Context, inv Invocation) (bool, error)
}

// EnvironmentLookup supplies interpreter selection for probe commands.
// Satisfied by *pyenv.Lookup.
type EnvironmentLookup interface {
	EnvironmentType() domain.EnvironmentType
	InterpreterPathForPurpose(purpose pyenv.Purpose) string
	SecretToken() string
}

// Orchestrator drives one warm-up run across the fixed module set: the
// shared substrate first and solo, then the dependents either sequentially
// or in parallel depending on the environment layout. Module failures are
// isolated; one failed probe never short-circuits the rest.
type Orchestrator struct {
	tracker *Tracker
	invoker probeInvoker
	env     EnvironmentLookup
	events  *Bus
	log     *zap.Logger
	timeout time.Duration
}

// NewOrchestrator wires the run loop over its collaborators.
func NewOrchestrator(tracker *Tracker, invoker probeInvoker, env EnvironmentLookup, events *Bus, log *zap.Logger, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		tracker: tracker,
		invoker: invoker,
		env:     env,
		events:  events,
		log:     log,
		timeout: timeout,
	}
}

// Run executes one full warm-up run and returns its summary. Callers must
// guarantee single-run discipline; the Service facade enforces it.
func (o *Orchestrator) Run(ctx context.Context) domain.PreloadResult {
	runID := uuid.NewString()
	start := time.Now()
	envType := o.env.EnvironmentType()

	o.tracker.BeginRun(start)
	o.events.Publish(Event{Type: EventTypeRunStarted, RunID: runID})
	o.log.Info("warm-up run started",
		zap.String("runId", runID),
		zap.String("environment", string(envType)))

	o.WarmModule(ctx, domain.SharedModule)

	dependents := domain.DependentModules()
	if envType == domain.EnvironmentDual {
		var g errgroup.Group
		for _, name := range dependents {
			g.Go(func() error {
				o.WarmModule(ctx, name)
				return nil
			})
		}
		// Never returns an error: module failures are absorbed per module.
		_ = g.Wait()
	} else {
		for _, name := range dependents {
			o.WarmModule(ctx, name)
		}
	}

	end := time.Now()
	overall := o.tracker.FinishRun(end)
	result := o.buildResult(runID, end.Sub(start))

	o.events.Publish(Event{Type: EventTypeRunCompleted, RunID: runID, Result: &result})
	o.log.Info("warm-up run completed",
		zap.String("runId", runID),
		zap.String("overall", string(overall)),
		zap.Int64("durationMs", result.DurationMs))
	return result
}

// WarmModule performs the loading -> ready/failed cycle for one module.
// Probe errors are absorbed into the module state, never propagated.
func (o *Orchestrator) WarmModule(ctx context.Context, name domain.ModuleName) {
	if err := o.tracker.Transition(name, domain.ModuleStatusLoading, 0, ""); err != nil {
		o.log.Warn("skipping module warm-up",
			zap.String("module", string(name)),
			zap.Error(err))
		return
	}

	start := time.Now()
	ok, err := o.invokeProbe(ctx, name)
	elapsed := time.Since(start).Milliseconds()

	if ok {
		_ = o.tracker.Transition(name, domain.ModuleStatusReady, elapsed, "")
		o.log.Info("module warm",
			zap.String("module", string(name)),
			zap.Int64("durationMs", elapsed))
		return
	}

	msg := "probe failed"
	if err != nil {
		msg = err.Error()
	}
	_ = o.tracker.Transition(name, domain.ModuleStatusFailed, elapsed, msg)
	o.log.Warn("module warm-up failed",
		zap.String("module", string(name)),
		zap.Int64("durationMs", elapsed),
		zap.String("error", msg))
}

// invokeProbe builds and executes the readiness probe for one module.
func (o *Orchestrator) invokeProbe(ctx context.Context, name domain.ModuleName) (bool, error) {
	spec, ok := ProbeFor(name)
	if !ok {
		return false, fmt.Errorf("no readiness probe for module %s", name)
	}

	interpreter := o.env.InterpreterPathForPurpose(spec.Purpose)
	if interpreter == "" {
		return false, fmt.Errorf("no %s interpreter available", spec.Purpose)
	}

	var env []string
	if spec.NeedsToken {
		if token := o.env.SecretToken(); token != "" {
			env = append(env, "HF_TOKEN="+token)
		}
	}

	return o.invoker.Invoke(ctx, Invocation{
		Module:  name,
		Command: interpreter,
		Args:    []string{"-u", "-c", spec.Script},
		Env:     env,
		Marker:  spec.Marker,
		Timeout: o.timeout,
	})
}

// buildResult snapshots module outcomes into an immutable run summary.
func (o *Orchestrator) buildResult(runID string, elapsed time.Duration) domain.PreloadResult {
	snapshot := o.tracker.Snapshot()

	perModule := make(map[domain.ModuleName]bool, len(snapshot.Modules))
	var errs []string
	success := false
	for name, state := range snapshot.Modules {
		warm := state.Status == domain.ModuleStatusReady
		perModule[name] = warm
		if warm {
			success = true
		}
		if state.Status == domain.ModuleStatusFailed && state.Error != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", name, state.Error))
		}
	}
	sort.Strings(errs)

	return domain.PreloadResult{
		RunID:      runID,
		Success:    success,
		PerModule:  perModule,
		Errors:     errs,
		DurationMs: elapsed.Milliseconds(),
	}
}
