package domain

// EnvironmentType classifies the installed Python runtime layout. A dual
// environment has a separate diarization interpreter and allows the
// dependent modules to warm in parallel.
type EnvironmentType string

const (
	EnvironmentSingle EnvironmentType = "single"
	EnvironmentDual   EnvironmentType = "dual"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	PythonPath            string `json:"pythonPath"`
	DiarizationPythonPath string `json:"diarizationPythonPath,omitempty"`
	HuggingFaceToken      string `json:"huggingFaceToken,omitempty"`
	ProbeTimeoutSeconds   int    `json:"probeTimeoutSeconds"`
	MetricsAddr           string `json:"metricsAddr,omitempty"`
	LogLevel              string `json:"logLevel"`
	LogFormat             string `json:"logFormat"`
}
