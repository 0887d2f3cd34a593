// warmupctl drives the module warm-up from the command line, for headless
// installs and CI checks of the Python runtime layout.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"speech-studio/internal/config"
	"speech-studio/internal/domain"
	"speech-studio/internal/logger"
	"speech-studio/internal/metrics"
	"speech-studio/internal/preload"
	"speech-studio/internal/pyenv"
)

var (
	flagConfigPath string // value of --config flag
	flagJSON       bool   // machine-readable output
	flagModule     string // warm a single module instead of the full set
	flagTimeout    int    // per-probe timeout override in seconds

	settings domain.Settings
	log      *zap.Logger
	lookup   *pyenv.Lookup
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Settings file to load - default is ~/.speech-studio/settings.json")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print results as JSON")

	runCmd.Flags().StringVar(&flagModule, "module", "", "warm a single module (torch, whisperx, pyannote)")
	runCmd.Flags().IntVar(&flagTimeout, "timeout", 0, "per-probe timeout in seconds, overrides settings")

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initWarmup

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(doctorCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "warmupctl:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "warmupctl",
	Short:        "Preloads the speech runtime modules and checks the Python environment",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run executes the warm-up and reports per-module outcomes",
	RunE:  doRun,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "doctor validates the Python environment without spawning probes",
	RunE:  doDoctor,
}

// initWarmup loads settings, applies environment overrides, and prepares the
// logger and interpreter lookup shared by the subcommands.
func initWarmup(cmd *cobra.Command, _ []string) error {
	path := flagConfigPath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve user home: %w", err)
		}
		path = filepath.Join(homeDir, ".speech-studio", "settings.json")
	}

	stored, err := config.NewJSONStore(path).Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings = config.ApplyEnvOverrides(stored)

	if flagTimeout > 0 {
		settings.ProbeTimeoutSeconds = flagTimeout
	}

	log, err = logger.New(settings)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	lookup = pyenv.NewLookup(settings)
	return nil
}

func doRun(cmd *cobra.Command, _ []string) error {
	svc := preload.NewService(preload.Options{
		Env:     lookup,
		Log:     log,
		Timeout: time.Duration(settings.ProbeTimeoutSeconds) * time.Second,
	})
	metrics.Observe(svc.Events())
	metrics.Serve(settings.MetricsAddr, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagModule != "" {
		name := domain.ModuleName(flagModule)
		if _, ok := preload.ProbeFor(name); !ok {
			return fmt.Errorf("unknown module %q", flagModule)
		}
		warm := svc.PreloadModule(ctx, name, time.Duration(settings.ProbeTimeoutSeconds)*time.Second)
		if err := printState(svc.State()); err != nil {
			return err
		}
		if !warm {
			return fmt.Errorf("module %s failed to warm", name)
		}
		return nil
	}

	done := make(chan domain.PreloadResult, 1)
	go func() { done <- svc.Start(ctx) }()

	var result domain.PreloadResult
	select {
	case result = <-done:
	case <-ctx.Done():
		svc.Cancel()
		result = <-done
	}

	if err := printResult(result, svc.State()); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("warm-up failed")
	}
	return nil
}

func doDoctor(_ *cobra.Command, _ []string) error {
	report := pyenv.NewDoctor(lookup).Run(settings)

	if flagJSON {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		for _, item := range report.Items {
			fmt.Printf("[%s] %s: %s\n", item.Status, item.Name, item.Message)
			if item.Hint != "" {
				fmt.Printf("       hint: %s\n", item.Hint)
			}
		}
	}

	if report.HasFailures {
		return fmt.Errorf("environment checks failed")
	}
	return nil
}

// printResult renders the run summary in the selected output format.
func printResult(result domain.PreloadResult, state domain.PreloadState) error {
	if flagJSON {
		return printJSON(struct {
			Result domain.PreloadResult `json:"result"`
			State  domain.PreloadState  `json:"state"`
		}{result, state})
	}

	for _, name := range domain.AllModules() {
		module := state.Modules[name]
		line := fmt.Sprintf("%-10s %s", name, module.Status)
		if module.DurationMs > 0 {
			line += fmt.Sprintf(" (%.1fs)", float64(module.DurationMs)/1000)
		}
		if module.Error != "" {
			line += " - " + module.Error
		}
		fmt.Println(line)
	}
	fmt.Printf("overall: %s in %.1fs\n", state.Overall, float64(result.DurationMs)/1000)
	return nil
}

// printState renders the per-module snapshot without a run summary.
func printState(state domain.PreloadState) error {
	if flagJSON {
		return printJSON(state)
	}

	for _, name := range domain.AllModules() {
		module := state.Modules[name]
		line := fmt.Sprintf("%-10s %s", name, module.Status)
		if module.Error != "" {
			line += " - " + module.Error
		}
		fmt.Println(line)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
