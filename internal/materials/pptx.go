package materials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// memberGroup is one class of container part the substitution pass visits.
type memberGroup struct {
	name    string
	pattern string
	counts  bool // changes in this group mark the template as personalized
}

var presentationGroups = []memberGroup{
	{name: "slides", pattern: "ppt/slides/slide*.xml", counts: true},
	{name: "slideMasters", pattern: "ppt/slideMasters/slideMaster*.xml"},
	{name: "slideLayouts", pattern: "ppt/slideLayouts/slideLayout*.xml"},
}

// TemplateProcessor personalizes presentation templates in a private scratch directory.
type TemplateProcessor struct {
	scratchRoot string
	logger      *zap.Logger
}

// NewTemplateProcessor creates scratch directories under scratchRoot (os.TempDir() when empty).
func NewTemplateProcessor(scratchRoot string, logger *zap.Logger) *TemplateProcessor {
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateProcessor{scratchRoot: scratchRoot, logger: logger}
}

// Process writes a personalized copy of templatePath to outputPath.
// It returns false with a nil error when the template is missing or no slide changed.
// The scratch directory is removed on every return path and templatePath is never modified.
func (p *TemplateProcessor) Process(templatePath, outputPath string, values Values) (bool, error) {
	if _, err := os.Stat(templatePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("template file missing", zap.String("path", templatePath))
			return false, nil
		}
		return false, &StepError{Step: StepExtract, Err: fmt.Errorf("stat template: %w", err)}
	}

	if err := os.MkdirAll(p.scratchRoot, 0o755); err != nil {
		return false, &StepError{Step: StepExtract, Err: fmt.Errorf("create scratch root: %w", err)}
	}
	scratch, err := os.MkdirTemp(p.scratchRoot, "cfp_ppt_")
	if err != nil {
		return false, &StepError{Step: StepExtract, Err: fmt.Errorf("create scratch dir: %w", err)}
	}
	defer func() {
		if err := RemoveScratch(scratch); err != nil {
			p.logger.Warn("scratch cleanup failed", zap.String("dir", scratch), zap.Error(err))
		}
	}()

	if err := Extract(templatePath, scratch); err != nil {
		return false, &StepError{Step: StepExtract, Err: err}
	}

	sub := NewSubstituter(values)
	changedSlides := 0
	for _, g := range presentationGroups {
		changed, err := p.substituteGroup(scratch, g, sub)
		if err != nil {
			return false, &StepError{Step: StepSubstitute, Err: fmt.Errorf("%s: %w", g.name, err)}
		}
		if g.counts {
			changedSlides += changed
		}
	}
	if changedSlides == 0 {
		p.logger.Info("no slide placeholders replaced", zap.String("template", templatePath))
		return false, nil
	}

	if err := Recombine(scratch, outputPath); err != nil {
		return false, &StepError{Step: StepRecombine, Err: err}
	}
	return true, nil
}

func (p *TemplateProcessor) substituteGroup(root string, g memberGroup, sub *Substituter) (int, error) {
	members, err := ListMembers(root, g.pattern)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, member := range members {
		raw, err := os.ReadFile(member)
		if err != nil {
			return changed, err
		}
		text := string(raw)
		if ce := p.logger.Check(zap.DebugLevel, "placeholders in member"); ce != nil {
			ce.Write(
				zap.String("member", member),
				zap.Strings("found", FindPlaceholders(text)),
				zap.Strings("matched", sub.Matches(text)),
			)
		}
		out, ok := sub.Apply(text)
		if !ok {
			continue
		}
		if err := os.WriteFile(member, []byte(out), 0o644); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}
