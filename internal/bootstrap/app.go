package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"speech-studio/internal/config"
	"speech-studio/internal/domain"
	"speech-studio/internal/logger"
	"speech-studio/internal/metrics"
	"speech-studio/internal/preload"
	"speech-studio/internal/pyenv"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var interpreterDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Python interpreters",
		Pattern:     "python*;python3*",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the warm-up service, diagnostics, and UI runtime
// callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Preload     *preload.Service
	Diagnostics domain.DiagnosticReport

	assets fs.FS
	env    *envProvider
	log    *zap.Logger

	mu         sync.Mutex
	runtimeCtx context.Context
}

// envProvider is the interpreter lookup handed to the warm-up service. It
// delegates to the lookup built from the latest saved settings, so settings
// changes reach the next probe without rebuilding the service.
type envProvider struct {
	mu     sync.Mutex
	lookup *pyenv.Lookup
}

func (p *envProvider) current() *pyenv.Lookup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookup
}

func (p *envProvider) swap(lookup *pyenv.Lookup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookup = lookup
}

func (p *envProvider) EnvironmentType() domain.EnvironmentType {
	return p.current().EnvironmentType()
}

func (p *envProvider) InterpreterPathForPurpose(purpose pyenv.Purpose) string {
	return p.current().InterpreterPathForPurpose(purpose)
}

func (p *envProvider) SecretToken() string {
	return p.current().SecretToken()
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".speech-studio", "settings.json"))
	stored, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings := config.ApplyEnvOverrides(stored)

	log, err := logger.New(settings)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	app := newApp(store, settings, log, assets)
	metrics.Serve(settings.MetricsAddr, log)
	return app, nil
}

// newApp assembles the application around explicit collaborators.
func newApp(store config.Store, settings domain.Settings, log *zap.Logger, assets fs.FS) *App {
	env := &envProvider{lookup: pyenv.NewLookup(settings)}

	svc := preload.NewService(preload.Options{
		Env:         env,
		Log:         log,
		Timeout:     time.Duration(settings.ProbeTimeoutSeconds) * time.Second,
		EventBuffer: 1000,
	})
	metrics.Observe(svc.Events())

	return &App{
		Settings:    settings,
		Store:       store,
		Preload:     svc,
		Diagnostics: pyenv.NewDoctor(env.current()).Run(settings),
		assets:      assets,
		env:         env,
		log:         log,
	}
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Speech Studio",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context, forwards warm-up events to the
// frontend, and kicks off the background warm-up.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	a.Preload.Events().Subscribe(func(event preload.Event) {
		a.mu.Lock()
		runtimeCtx := a.runtimeCtx
		a.mu.Unlock()
		if runtimeCtx != nil {
			wailsruntime.EventsEmit(runtimeCtx, "preload:event", event)
		}
	})

	go a.Preload.Start(context.Background())
}

// GetPreloadState returns the current warm-up snapshot.
func (a *App) GetPreloadState() domain.PreloadState {
	return a.Preload.State()
}

// StartPreload runs the warm-up and blocks until it settles. Concurrent
// calls join the in-flight run.
func (a *App) StartPreload() domain.PreloadResult {
	return a.Preload.Start(context.Background())
}

// PreloadModule warms a single module and reports whether it is usable.
func (a *App) PreloadModule(name string, timeoutSeconds int) bool {
	return a.Preload.PreloadModule(context.Background(), domain.ModuleName(name), secondsToDuration(timeoutSeconds))
}

// WaitForModule blocks until the named module is warm, failed, or the
// timeout elapses.
func (a *App) WaitForModule(name string, timeoutSeconds int) bool {
	return a.Preload.WaitForModule(domain.ModuleName(name), secondsToDuration(timeoutSeconds))
}

// WaitForAll blocks until the warm-up settles or the timeout elapses.
func (a *App) WaitForAll(timeoutSeconds int) bool {
	return a.Preload.WaitForAll(secondsToDuration(timeoutSeconds))
}

// CancelPreload terminates in-flight probe processes without awaiting them.
func (a *App) CancelPreload() {
	a.Preload.Cancel()
}

// ResetPreload cancels any in-flight run and restores the idle baseline.
func (a *App) ResetPreload() {
	a.Preload.Reset()
}

// PreloadEvents returns all events with sequence greater than sinceSeq.
func (a *App) PreloadEvents(sinceSeq int64) []preload.Event {
	return a.Preload.Events().Since(sinceSeq)
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reruns the environment checks against current settings.
func (a *App) RefreshDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	settings := a.Settings
	a.mu.Unlock()

	report := pyenv.NewDoctor(a.env.current()).Run(settings)

	a.mu.Lock()
	a.Diagnostics = report
	a.mu.Unlock()
	return report
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings persists settings, swaps the interpreter lookup so the next
// probe sees the new layout, and refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.env.swap(pyenv.NewLookup(normalized))
	report := pyenv.NewDoctor(a.env.current()).Run(normalized)

	a.mu.Lock()
	a.Settings = normalized
	a.Diagnostics = report
	a.mu.Unlock()

	return normalized, nil
}

// PickInterpreterPath opens a native file dialog for interpreter selection.
func (a *App) PickInterpreterPath() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select Python interpreter",
		Filters: interpreterDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// runtimeContext returns the current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// secondsToDuration converts a frontend-facing timeout into a duration,
// defaulting zero and negative values to a minute.
func secondsToDuration(seconds int) time.Duration {
	if seconds <= 0 {
		return time.Minute
	}
	return time.Duration(seconds) * time.Second
}
