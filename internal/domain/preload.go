package domain

import "time"

// ModuleName identifies one heavyweight Python runtime subject to warm-up.
type ModuleName string

const (
	ModuleTorch    ModuleName = "torch"
	ModuleWhisperX ModuleName = "whisperx"
	ModulePyannote ModuleName = "pyannote"
)

// SharedModule is the runtime substrate the other modules load on top of.
// It is always warmed first and never in parallel with the rest.
const SharedModule = ModuleTorch

// AllModules returns the fixed warm-up set in canonical order.
func AllModules() []ModuleName {
	return []ModuleName{ModuleTorch, ModuleWhisperX, ModulePyannote}
}

// DependentModules returns every module except the shared substrate.
func DependentModules() []ModuleName {
	all := AllModules()
	deps := make([]ModuleName, 0, len(all)-1)
	for _, name := range all {
		if name != SharedModule {
			deps = append(deps, name)
		}
	}
	return deps
}

// ModuleStatus tracks one module through its warm-up lifecycle.
type ModuleStatus string

const (
	ModuleStatusIdle    ModuleStatus = "idle"
	ModuleStatusLoading ModuleStatus = "loading"
	ModuleStatusReady   ModuleStatus = "ready"
	ModuleStatusFailed  ModuleStatus = "failed"
)

// ModuleState is the per-module record kept by the state tracker.
// DurationMs and Error are set only on terminal transitions; LastSuccess
// records history and survives later failures.
type ModuleState struct {
	Name        ModuleName   `json:"name"`
	Status      ModuleStatus `json:"status"`
	DurationMs  int64        `json:"durationMs,omitempty"`
	Error       string       `json:"error,omitempty"`
	LastSuccess time.Time    `json:"lastSuccessTimestamp,omitempty"`
}

// OverallStatus summarizes the whole module set.
type OverallStatus string

const (
	OverallIdle       OverallStatus = "idle"
	OverallPreloading OverallStatus = "preloading"
	OverallReady      OverallStatus = "ready"
	OverallPartial    OverallStatus = "partial"
	OverallFailed     OverallStatus = "failed"
)

// OverallFromModules folds module statuses into one overall status: any
// loading module means preloading, all ready means ready, at least one ready
// (but not all) means partial, failures without a single success mean failed,
// and an untouched set is idle.
func OverallFromModules(modules map[ModuleName]ModuleState) OverallStatus {
	total, ready, failed, loading := 0, 0, 0, 0
	for _, m := range modules {
		total++
		switch m.Status {
		case ModuleStatusReady:
			ready++
		case ModuleStatusFailed:
			failed++
		case ModuleStatusLoading:
			loading++
		}
	}

	switch {
	case loading > 0:
		return OverallPreloading
	case total > 0 && ready == total:
		return OverallReady
	case ready > 0:
		return OverallPartial
	case failed > 0:
		return OverallFailed
	default:
		return OverallIdle
	}
}

// PreloadState is the queryable snapshot of the warm-up subsystem. The
// orchestrator is the only writer; readers always receive copies.
type PreloadState struct {
	Overall         OverallStatus              `json:"overall"`
	Modules         map[ModuleName]ModuleState `json:"modules"`
	StartTime       time.Time                  `json:"startTime,omitempty"`
	EndTime         time.Time                  `json:"endTime,omitempty"`
	TotalDurationMs int64                      `json:"totalDurationMs,omitempty"`
}

// PreloadResult is the immutable summary of one warm-up run. Success is true
// when at least one module succeeded: a partially warm environment is still
// useful.
type PreloadResult struct {
	RunID      string              `json:"runId,omitempty"`
	Success    bool                `json:"success"`
	PerModule  map[ModuleName]bool `json:"perModule"`
	Errors     []string            `json:"errors,omitempty"`
	DurationMs int64               `json:"durationMs"`
}
