// Package metrics exposes warm-up telemetry over Prometheus. Collection is
// driven by the preload event bus, so the orchestrator stays unaware of it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"speech-studio/internal/domain"
	"speech-studio/internal/preload"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_studio_preload_runs_total",
			Help: "Warm-up runs by final outcome.",
		},
		[]string{"outcome"},
	)

	moduleTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speech_studio_preload_module_transitions_total",
			Help: "Module status transitions observed during warm-up.",
		},
		[]string{"module", "status"},
	)

	moduleWarmupSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speech_studio_preload_module_warmup_seconds",
			Help:    "Time spent warming each module, successful probes only.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		},
		[]string{"module"},
	)

	lastRunDurationSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "speech_studio_preload_last_run_duration_seconds",
			Help: "Wall-clock duration of the most recent warm-up run.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		runsTotal,
		moduleTransitionsTotal,
		moduleWarmupSeconds,
		lastRunDurationSeconds,
	)
}

// Observe subscribes the collectors to the warm-up event bus and returns the
// unsubscribe function.
func Observe(bus *preload.Bus) func() {
	return bus.Subscribe(record)
}

// record maps one lifecycle event onto the collectors.
func record(event preload.Event) {
	switch event.Type {
	case preload.EventTypeRunCompleted:
		outcome := "failed"
		if event.Result != nil && event.Result.Success {
			outcome = "succeeded"
		}
		runsTotal.WithLabelValues(outcome).Inc()
		if event.Result != nil {
			lastRunDurationSeconds.Set(float64(event.Result.DurationMs) / 1000)
		}

	case preload.EventTypeRunCancelled:
		runsTotal.WithLabelValues("cancelled").Inc()

	case preload.EventTypeModuleStatus:
		moduleTransitionsTotal.WithLabelValues(string(event.Module), string(event.Status)).Inc()
		if event.Status == domain.ModuleStatusReady {
			moduleWarmupSeconds.WithLabelValues(string(event.Module)).
				Observe(float64(event.DurationMs) / 1000)
		}
	}
}

// Serve starts the Prometheus exporter in the background. An empty address
// disables the exporter.
func Serve(addr string, log *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics exporter listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics exporter stopped", zap.Error(err))
		}
	}()
}
