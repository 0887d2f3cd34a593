package pyenv

import (
	"fmt"
	"time"

	"speech-studio/internal/domain"
)

// Doctor validates the Python runtime layout the warm-up depends on.
type Doctor struct {
	lookup *Lookup
}

// NewDoctor builds a doctor over the given lookup.
func NewDoctor(lookup *Lookup) *Doctor {
	return &Doctor{lookup: lookup}
}

// Run executes all environment checks and returns a combined report.
func (d *Doctor) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		d.checkInterpreter("python_main", "Python interpreter", settings.PythonPath, true),
		d.checkInterpreter("python_diarization", "Diarization interpreter", settings.DiarizationPythonPath, false),
		checkToken(settings.HuggingFaceToken),
		checkTimeout(settings.ProbeTimeoutSeconds),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkInterpreter verifies one configured interpreter resolves to an
// executable. Optional interpreters pass when left unconfigured.
func (d *Doctor) checkInterpreter(id, name, configured string, required bool) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: id, Name: name}

	if configured == "" {
		if required {
			item.Status = domain.DiagnosticStatusFail
			item.Message = "No interpreter configured."
			item.Hint = "Set pythonPath in settings or SPEECH_STUDIO_PYTHON in the environment."
			return item
		}
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Not configured; the main interpreter will be used."
		return item
	}

	path, err := d.lookup.lookPath(configured)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Interpreter not found: %s", configured)
		item.Hint = "Install Python or point the setting at an existing interpreter."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkToken reports whether the model-hub credential is available. A
// missing token is a warning-shaped pass: only gated models need it.
func checkToken(token string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "hub_token", Name: "Model hub token"}
	if token == "" {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "No token configured."
		item.Hint = "Set HF_TOKEN if diarization models require authentication."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = "Token configured."
	return item
}

// checkTimeout validates the probe timeout is usable.
func checkTimeout(seconds int) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "probe_timeout", Name: "Probe timeout"}
	if seconds <= 0 {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Probe timeout must be positive, got %d.", seconds)
		item.Hint = "Set probeTimeoutSeconds to a value like 60."
		return item
	}
	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Each probe is bounded to %ds.", seconds)
	return item
}
