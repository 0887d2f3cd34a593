package pyenv

import (
	"os/exec"
	"path/filepath"

	"speech-studio/internal/domain"
)

// Purpose names one runtime capability an interpreter must provide.
type Purpose string

const (
	PurposeTranscription Purpose = "transcription"
	PurposeDiarization   Purpose = "diarization"
)

// Lookup resolves interpreter paths and classifies the runtime layout.
// Results reflect the settings captured at construction; callers rebuild the
// lookup after settings change.
type Lookup struct {
	settings domain.Settings
	lookPath func(string) (string, error)
}

// NewLookup builds a lookup using the real PATH resolver.
func NewLookup(settings domain.Settings) *Lookup {
	return &Lookup{
		settings: settings,
		lookPath: exec.LookPath,
	}
}

// EnvironmentType reports dual when a distinct diarization interpreter
// resolves next to the main one, single otherwise.
func (l *Lookup) EnvironmentType() domain.EnvironmentType {
	main := l.resolve(l.settings.PythonPath)
	diar := l.resolve(l.settings.DiarizationPythonPath)
	if main != "" && diar != "" && filepath.Clean(main) != filepath.Clean(diar) {
		return domain.EnvironmentDual
	}
	return domain.EnvironmentSingle
}

// InterpreterPath returns the resolved main interpreter, or "" when missing.
func (l *Lookup) InterpreterPath() string {
	return l.resolve(l.settings.PythonPath)
}

// InterpreterPathForPurpose returns the interpreter serving the given
// purpose. Diarization falls back to the main interpreter in a single
// environment; "" means nothing usable is installed.
func (l *Lookup) InterpreterPathForPurpose(purpose Purpose) string {
	if purpose == PurposeDiarization {
		if path := l.resolve(l.settings.DiarizationPythonPath); path != "" {
			return path
		}
	}
	return l.resolve(l.settings.PythonPath)
}

// SecretToken returns the model-hub credential forwarded into probe
// environments, or "" when not configured.
func (l *Lookup) SecretToken() string {
	return l.settings.HuggingFaceToken
}

// resolve maps a configured command name or path to an executable path.
func (l *Lookup) resolve(configured string) string {
	if configured == "" {
		return ""
	}
	path, err := l.lookPath(configured)
	if err != nil {
		return ""
	}
	return path
}

// NewLookupForTests creates a lookup with an injectable PATH resolver.
func NewLookupForTests(settings domain.Settings, lookPath func(string) (string, error)) *Lookup {
	return &Lookup{
		settings: settings,
		lookPath: lookPath,
	}
}
