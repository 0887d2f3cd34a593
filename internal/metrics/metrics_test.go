package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"speech-studio/internal/domain"
	"speech-studio/internal/preload"
)

// TestObserveRecordsLifecycle feeds bus events through the collectors.
func TestObserveRecordsLifecycle(t *testing.T) {
	bus := preload.NewBus(10)
	unsubscribe := Observe(bus)
	defer unsubscribe()

	bus.Publish(preload.Event{
		Type:   preload.EventTypeModuleStatus,
		Module: domain.ModuleTorch,
		Status: domain.ModuleStatusLoading,
	})
	bus.Publish(preload.Event{
		Type:       preload.EventTypeModuleStatus,
		Module:     domain.ModuleTorch,
		Status:     domain.ModuleStatusReady,
		DurationMs: 1500,
	})
	bus.Publish(preload.Event{
		Type:   preload.EventTypeRunCompleted,
		Result: &domain.PreloadResult{Success: true, DurationMs: 2000},
	})
	bus.Publish(preload.Event{Type: preload.EventTypeRunCancelled})

	if got := testutil.ToFloat64(runsTotal.WithLabelValues("succeeded")); got != 1 {
		t.Fatalf("succeeded runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("cancelled")); got != 1 {
		t.Fatalf("cancelled runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(moduleTransitionsTotal.WithLabelValues("torch", "ready")); got != 1 {
		t.Fatalf("torch ready transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(lastRunDurationSeconds); got != 2 {
		t.Fatalf("last run duration = %v, want 2", got)
	}
}

// TestObserveUnsubscribeStopsRecording checks the cancel function works.
func TestObserveUnsubscribeStopsRecording(t *testing.T) {
	bus := preload.NewBus(10)
	unsubscribe := Observe(bus)
	unsubscribe()

	before := testutil.ToFloat64(runsTotal.WithLabelValues("failed"))
	bus.Publish(preload.Event{Type: preload.EventTypeRunCompleted})
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("failed")); got != before {
		t.Fatalf("failed runs = %v, want %v after unsubscribe", got, before)
	}
}
