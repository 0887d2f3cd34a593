package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"speech-studio/internal/domain"
)

// ApplyEnvOverrides loads a .env file when present and overlays process
// environment values on top of persisted settings. Environment always wins
// so packaged installs can be reconfigured without touching settings.json.
func ApplyEnvOverrides(settings domain.Settings) domain.Settings {
	_ = godotenv.Load()

	if v := os.Getenv("SPEECH_STUDIO_PYTHON"); v != "" {
		settings.PythonPath = v
	}
	if v := os.Getenv("SPEECH_STUDIO_DIARIZATION_PYTHON"); v != "" {
		settings.DiarizationPythonPath = v
	}
	if v := os.Getenv("HF_TOKEN"); v != "" {
		settings.HuggingFaceToken = v
	}
	if v := os.Getenv("SPEECH_STUDIO_PROBE_TIMEOUT_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			settings.ProbeTimeoutSeconds = seconds
		}
	}
	if v := os.Getenv("SPEECH_STUDIO_METRICS_ADDR"); v != "" {
		settings.MetricsAddr = v
	}
	if v := os.Getenv("SPEECH_STUDIO_LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("SPEECH_STUDIO_LOG_FORMAT"); v != "" {
		settings.LogFormat = v
	}

	return Normalize(settings)
}
