package config

import (
	"strings"

	"speech-studio/internal/domain"
)

// DefaultProbeTimeoutSeconds bounds one readiness probe. Matches the upstream
// 60s warm-up budget per module.
const DefaultProbeTimeoutSeconds = 60

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		PythonPath:          "python3",
		ProbeTimeoutSeconds: DefaultProbeTimeoutSeconds,
		LogLevel:            "info",
		LogFormat:           "console",
	}
}

// Normalize trims user inputs and applies defaults for empty fields.
func Normalize(settings domain.Settings) domain.Settings {
	settings.PythonPath = strings.TrimSpace(settings.PythonPath)
	settings.DiarizationPythonPath = strings.TrimSpace(settings.DiarizationPythonPath)
	settings.HuggingFaceToken = strings.TrimSpace(settings.HuggingFaceToken)
	settings.MetricsAddr = strings.TrimSpace(settings.MetricsAddr)
	settings.LogLevel = strings.ToLower(strings.TrimSpace(settings.LogLevel))
	settings.LogFormat = strings.ToLower(strings.TrimSpace(settings.LogFormat))

	if settings.PythonPath == "" {
		settings.PythonPath = "python3"
	}
	if settings.ProbeTimeoutSeconds <= 0 {
		settings.ProbeTimeoutSeconds = DefaultProbeTimeoutSeconds
	}
	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}
	if settings.LogFormat == "" {
		settings.LogFormat = "console"
	}
	return settings
}
