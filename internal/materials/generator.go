package materials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/metrics"
	"github.com/bhfe/cfp-workshops/internal/models"
)

// WorkshopReader loads the workshop to generate materials for.
type WorkshopReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
}

// TemplateLister returns the templates currently enabled for generation.
type TemplateLister interface {
	ListActive(ctx context.Context) ([]models.Template, error)
}

// PresentationProcessor personalizes one presentation template.
type PresentationProcessor interface {
	Process(templatePath, outputPath string, values Values) (bool, error)
}

// Generator merges a workshop into every active template and packages the results.
type Generator struct {
	workshops WorkshopReader
	templates TemplateLister
	processor PresentationProcessor
	outputDir string
	logger    *zap.Logger
	now       func() time.Time
	suffix    func() string
}

// NewGenerator writes artifacts under outputDir.
func NewGenerator(workshops WorkshopReader, templates TemplateLister, processor PresentationProcessor, outputDir string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		workshops: workshops,
		templates: templates,
		processor: processor,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
		suffix:    uniqueSuffix,
	}
}

func uniqueSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Generate produces one downloadable artifact for workshop id. A failing template is logged
// and skipped; ErrGenerationFailed is returned only when no template produced anything.
func (g *Generator) Generate(ctx context.Context, id uuid.UUID) (*Artifact, error) {
	start := g.now()
	defer func() { metrics.GenerationDuration.Observe(time.Since(start).Seconds()) }()

	w, err := g.workshops.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load workshop: %w", err)
	}
	templates, err := g.templates.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if len(templates) == 0 {
		return nil, ErrNoTemplatesConfigured
	}
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	values := BuildReplacementValues(w)
	var artifacts []Artifact
	for _, t := range templates {
		a, err := g.generateOne(w, t, values)
		if err != nil {
			step := stepOf(err)
			metrics.TemplateFailures.WithLabelValues(step).Inc()
			g.logger.Error("template generation failed",
				zap.String("workshop_id", w.ID.String()),
				zap.String("template_id", t.ID.String()),
				zap.String("step", step),
				zap.Error(err),
			)
			continue
		}
		metrics.MaterialsGenerated.WithLabelValues(a.Kind).Inc()
		artifacts = append(artifacts, a)
	}

	switch len(artifacts) {
	case 0:
		return nil, ErrGenerationFailed
	case 1:
		return &artifacts[0], nil
	}

	bundle := Artifact{
		Path: filepath.Join(g.outputDir, fmt.Sprintf("workshop-materials-%s-%s.zip", w.ID, g.suffix())),
		Name: BundleName(w.Customer, w.DateString()),
		Kind: KindBundle,
	}
	if err := Bundle(bundle.Path, artifacts, g.logger); err != nil {
		metrics.TemplateFailures.WithLabelValues(StepBundle).Inc()
		g.logger.Error("bundle materials failed", zap.String("workshop_id", w.ID.String()), zap.Error(err))
		for i := range artifacts {
			g.Release(&artifacts[i])
		}
		return nil, ErrGenerationFailed
	}
	metrics.MaterialsGenerated.WithLabelValues(KindBundle).Inc()
	return &bundle, nil
}

func (g *Generator) generateOne(w *models.Workshop, t models.Template, values Values) (Artifact, error) {
	switch t.Type {
	case models.TemplatePDF:
		return g.generatePDF(w, values)
	case models.TemplatePresentation:
		return g.generatePresentation(w, t, values)
	}
	return Artifact{}, &StepError{Step: "dispatch", Err: fmt.Errorf("unsupported template type %q", t.Type)}
}

func (g *Generator) generatePDF(w *models.Workshop, values Values) (Artifact, error) {
	name := fmt.Sprintf("workshop-materials-%s-%s.txt", w.ID, g.suffix())
	a := Artifact{Path: filepath.Join(g.outputDir, name), Name: name, Kind: KindPDF}
	if err := os.WriteFile(a.Path, []byte(PlainTextMaterials(values)), 0o644); err != nil {
		return Artifact{}, &StepError{Step: StepPDF, Err: err}
	}
	return a, nil
}

// generatePresentation tries the template, then a scratch presentation, then a plain-text report.
func (g *Generator) generatePresentation(w *models.Workshop, t models.Template, values Values) (Artifact, error) {
	base := fmt.Sprintf("workshop-slides-%s-%s", w.ID, g.suffix())
	a := Artifact{Path: filepath.Join(g.outputDir, base+".pptx"), Name: base + ".pptx", Kind: KindPresentation}

	ok, err := g.processor.Process(t.FilePath, a.Path, values)
	if err != nil {
		g.logger.Warn("template processing failed, building from scratch",
			zap.String("template_id", t.ID.String()),
			zap.String("step", stepOf(err)),
			zap.Error(err),
		)
	}
	if ok {
		return a, nil
	}

	metrics.TemplateFallbacks.WithLabelValues(StepScratchBuild).Inc()
	scratchErr := BuildScratchPresentation(a.Path, values)
	if scratchErr == nil {
		return a, nil
	}
	g.logger.Warn("scratch presentation failed, writing text report",
		zap.String("template_id", t.ID.String()),
		zap.Error(scratchErr),
	)

	metrics.TemplateFallbacks.WithLabelValues(StepTextFallback).Inc()
	report := DetailedSlidesReport(values, ParseFieldMappings(t.FieldMappings), g.now())
	txt := Artifact{Path: filepath.Join(g.outputDir, base+".txt"), Name: base + ".txt", Kind: KindPresentation}
	if err := os.WriteFile(txt.Path, []byte(report), 0o644); err != nil {
		return Artifact{}, &StepError{Step: StepTextFallback, Err: errors.Join(scratchErr, err)}
	}
	return txt, nil
}

// Release deletes a generated artifact once it has been streamed.
func (g *Generator) Release(a *Artifact) error {
	if a == nil {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}
