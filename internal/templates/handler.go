package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/materials"
	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/queue"
	"github.com/bhfe/cfp-workshops/pkg/response"
)

// Store is the template persistence used by the handler.
type Store interface {
	Create(ctx context.Context, t *models.Template) error
	List(ctx context.Context) ([]models.Template, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	Toggle(ctx context.Context, id uuid.UUID) (*models.Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MirrorEnqueuer schedules an object-storage copy of an uploaded template.
type MirrorEnqueuer interface {
	EnqueueTemplateMirror(ctx context.Context, payload queue.TemplateMirrorPayload) error
}

// ObjectStore is the mirror bucket.
type ObjectStore interface {
	Delete(ctx context.Context, key string) error
	PresignDownload(ctx context.Context, key, filename string) (string, error)
}

var allowedExtensions = map[models.TemplateType][]string{
	models.TemplatePDF:          {".pdf"},
	models.TemplatePresentation: {".ppt", ".pptx"},
}

// StoredFilename names an uploaded template on disk.
func StoredFilename(id uuid.UUID, ext string) string {
	return "cfp_template_" + id.String() + strings.ToLower(ext)
}

// CheckExtension reports whether filename's extension is allowed for typ.
func CheckExtension(typ models.TemplateType, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf", ".ppt", ".pptx":
	default:
		return fmt.Errorf("invalid file type: only PDF, PPT and PPTX templates are allowed")
	}
	for _, allowed := range allowedExtensions[typ] {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("file extension %s does not match template type %s", ext, typ)
}

// Handler handles template HTTP endpoints.
type Handler struct {
	repo     Store
	dir      string
	maxBytes int64
	mirror   MirrorEnqueuer
	objects  ObjectStore
	logger   *zap.Logger
	newID    func() uuid.UUID
}

// NewHandler creates a templates handler storing uploads under dir.
// mirror and objects may be nil when Redis or S3 are not configured.
func NewHandler(repo Store, dir string, maxBytes int64, mirror MirrorEnqueuer, objects ObjectStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, dir: dir, maxBytes: maxBytes, mirror: mirror, objects: objects, logger: logger, newID: uuid.New}
}

// Upload handles POST /templates (multipart: template_name, template_type, field_mappings, file).
func (h *Handler) Upload(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("template_name"))
	if name == "" {
		response.BadRequest(c, "template_name is required")
		return
	}
	typ, ok := models.ParseTemplateType(c.PostForm("template_type"))
	if !ok {
		response.BadRequest(c, "template_type must be pdf or presentation")
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		response.TooLarge(c, fmt.Sprintf("file size exceeds %dMB limit", h.maxBytes>>20))
		return
	}
	if err := CheckExtension(typ, file.Filename); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.logger.Error("create templates dir", zap.String("dir", h.dir), zap.Error(err))
		response.Internal(c, "failed to store template")
		return
	}
	dst := filepath.Join(h.dir, StoredFilename(h.newID(), filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.Error("save template upload", zap.String("path", dst), zap.Error(err))
		response.Internal(c, "failed to store template")
		return
	}

	t := &models.Template{
		Name:             name,
		Type:             typ,
		FilePath:         dst,
		OriginalFilename: filepath.Base(file.Filename),
		FieldMappings:    c.PostForm("field_mappings"),
	}
	if err := h.repo.Create(c.Request.Context(), t); err != nil {
		h.logger.Error("insert template", zap.Error(err))
		if rmErr := os.Remove(dst); rmErr != nil {
			h.logger.Warn("remove orphaned template file", zap.String("path", dst), zap.Error(rmErr))
		}
		response.Internal(c, "failed to save template")
		return
	}

	if h.mirror != nil {
		payload := queue.TemplateMirrorPayload{TemplateID: t.ID, FilePath: t.FilePath, OriginalFilename: t.OriginalFilename}
		if err := h.mirror.EnqueueTemplateMirror(c.Request.Context(), payload); err != nil {
			h.logger.Warn("enqueue template mirror", zap.String("template_id", t.ID.String()), zap.Error(err))
		}
	}
	h.logger.Info("template uploaded", zap.String("template_id", t.ID.String()), zap.String("type", string(t.Type)))
	response.Created(c, t)
}

// List handles GET /templates.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list templates", zap.Error(err))
		response.Internal(c, "failed to list templates")
		return
	}
	if list == nil {
		list = []models.Template{}
	}
	response.OK(c, list)
}

func (h *Handler) load(c *gin.Context) (*models.Template, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return nil, false
	}
	t, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "template not found")
			return nil, false
		}
		h.logger.Error("get template", zap.Error(err))
		response.Internal(c, "failed to load template")
		return nil, false
	}
	return t, true
}

// Toggle handles POST /templates/:id/toggle.
func (h *Handler) Toggle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return
	}
	t, err := h.repo.Toggle(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "template not found")
			return
		}
		h.logger.Error("toggle template", zap.Error(err))
		response.Internal(c, "failed to update template")
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /templates/:id. The stored file and the mirrored copy go with the row.
func (h *Handler) Delete(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), t.ID); err != nil {
		h.logger.Error("delete template", zap.Error(err))
		response.Internal(c, "failed to delete template")
		return
	}
	if err := os.Remove(t.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.logger.Warn("remove template file", zap.String("path", t.FilePath), zap.Error(err))
	}
	if h.objects != nil && t.MirrorKey != "" {
		if err := h.objects.Delete(c.Request.Context(), t.MirrorKey); err != nil {
			h.logger.Warn("delete template mirror", zap.String("key", t.MirrorKey), zap.Error(err))
		}
	}
	response.NoContent(c)
}

// Download handles GET /templates/:id/download. The stored file is never modified or removed.
func (h *Handler) Download(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	if _, err := os.Stat(t.FilePath); err == nil {
		c.FileAttachment(t.FilePath, t.OriginalFilename)
		return
	}
	if h.objects != nil && t.MirrorKey != "" {
		url, err := h.objects.PresignDownload(c.Request.Context(), t.MirrorKey, t.OriginalFilename)
		if err != nil {
			h.logger.Error("presign template mirror", zap.String("key", t.MirrorKey), zap.Error(err))
			response.Internal(c, "failed to download template")
			return
		}
		c.Redirect(http.StatusFound, url)
		return
	}
	response.NotFound(c, "template file not found")
}

// Placeholders handles GET /templates/:id/placeholders.
func (h *Handler) Placeholders(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	ins, err := materials.Inspect(*t)
	if err != nil {
		if errors.Is(err, materials.ErrCorruptArchive) {
			response.Fail(c, http.StatusUnprocessableEntity, "template file is not a valid presentation")
			return
		}
		if errors.Is(err, fs.ErrNotExist) {
			response.NotFound(c, "template file not found")
			return
		}
		h.logger.Error("inspect template", zap.String("template_id", t.ID.String()), zap.Error(err))
		response.Internal(c, "failed to inspect template")
		return
	}
	response.OK(c, ins)
}
