package preload

import (
	"speech-studio/internal/domain"
	"speech-studio/internal/pyenv"
)

// ProbeSpec describes the readiness command for one module. A probe is an
// external, short-lived import check that prints its marker on success; the
// marker plus a zero exit status is the only accepted proof of readiness.
type ProbeSpec struct {
	Module  domain.ModuleName
	Purpose pyenv.Purpose
	Script  string
	Marker  string
	// NeedsToken marks probes that must receive the model-hub credential.
	NeedsToken bool
}

var probeCatalog = map[domain.ModuleName]ProbeSpec{
	domain.ModuleTorch: {
		Module:  domain.ModuleTorch,
		Purpose: pyenv.PurposeTranscription,
		Script:  "import torch; print('preload-torch-ok')",
		Marker:  "preload-torch-ok",
	},
	domain.ModuleWhisperX: {
		Module:  domain.ModuleWhisperX,
		Purpose: pyenv.PurposeTranscription,
		Script:  "import whisperx; print('preload-whisperx-ok')",
		Marker:  "preload-whisperx-ok",
	},
	domain.ModulePyannote: {
		Module:     domain.ModulePyannote,
		Purpose:    pyenv.PurposeDiarization,
		Script:     "import pyannote.audio; print('preload-pyannote-ok')",
		Marker:     "preload-pyannote-ok",
		NeedsToken: true,
	},
}

// ProbeFor returns the readiness probe for a module.
func ProbeFor(name domain.ModuleName) (ProbeSpec, bool) {
	spec, ok := probeCatalog[name]
	return spec, ok
}
