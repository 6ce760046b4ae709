package materials

import "errors"

var (
	// ErrNotFound means the workshop to generate for does not exist.
	ErrNotFound = errors.New("workshop not found")
	// ErrNoTemplatesConfigured means there are no active templates to generate from.
	ErrNoTemplatesConfigured = errors.New("no templates available, upload templates first")
	// ErrGenerationFailed means every template failed to produce an artifact.
	ErrGenerationFailed = errors.New("failed to generate materials, check your templates and try again")
	// ErrCorruptArchive means a container could not be read as a ZIP archive.
	ErrCorruptArchive = errors.New("corrupt archive")
)

// Generation steps reported in logs and failure metrics.
const (
	StepExtract      = "extract"
	StepSubstitute   = "substitute"
	StepRecombine    = "recombine"
	StepScratchBuild = "scratch_build"
	StepTextFallback = "text_fallback"
	StepPDF          = "pdf"
	StepBundle       = "bundle"
)

// StepError records which generation step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

func stepOf(err error) string {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step
	}
	return "unknown"
}
