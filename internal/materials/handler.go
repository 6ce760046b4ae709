package materials

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/pkg/response"
)

// Generating is implemented by *Generator.
type Generating interface {
	Generate(ctx context.Context, id uuid.UUID) (*Artifact, error)
	Release(a *Artifact) error
}

// Handler serves generated workshop materials.
type Handler struct {
	gen    Generating
	logger *zap.Logger
}

// NewHandler creates a materials handler.
func NewHandler(gen Generating, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{gen: gen, logger: logger}
}

// Download handles GET /workshops/:id/materials. The artifact is deleted after it is sent.
func (h *Handler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	a, err := h.gen.Generate(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, ErrNoTemplatesConfigured):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrGenerationFailed):
			response.Internal(c, err.Error())
		default:
			h.logger.Error("generate materials", zap.String("workshop_id", id.String()), zap.Error(err))
			response.Internal(c, "failed to generate materials")
		}
		return
	}
	defer func() {
		if err := h.gen.Release(a); err != nil {
			h.logger.Warn("release artifact", zap.String("path", a.Path), zap.Error(err))
		}
	}()
	c.Header("Cache-Control", "no-cache, must-revalidate")
	c.FileAttachment(a.Path, a.Name)
}
