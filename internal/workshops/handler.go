package workshops

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// Store is the workshop persistence used by the handler.
type Store interface {
	Create(ctx context.Context, w *models.Workshop) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	Update(ctx context.Context, w *models.Workshop) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f models.WorkshopFilter) ([]models.Workshop, error)
	Count(ctx context.Context, f models.WorkshopFilter) (int, error)
	ListChapters(ctx context.Context) ([]string, error)
}

// CacheInvalidator drops cached lookups for a workshop date.
type CacheInvalidator interface {
	InvalidateDate(ctx context.Context, date time.Time) error
}

// Handler handles workshop HTTP endpoints.
type Handler struct {
	repo   Store
	cache  CacheInvalidator
	logger *zap.Logger
}

// NewHandler creates a workshop handler. cache may be nil.
func NewHandler(repo Store, cache CacheInvalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, cache: cache, logger: logger}
}

func (h *Handler) invalidate(ctx context.Context, dates ...time.Time) {
	if h.cache == nil {
		return
	}
	for _, d := range dates {
		if err := h.cache.InvalidateDate(ctx, d); err != nil {
			h.logger.Warn("invalidate workshop lookup cache", zap.Time("date", d), zap.Error(err))
		}
	}
}

// FilterFromQuery reads ?when=upcoming|past, ?chapter=, ?uninvoiced=1, ?limit= and ?offset=.
func FilterFromQuery(c *gin.Context) models.WorkshopFilter {
	f := models.WorkshopFilter{
		Chapter:        c.Query("chapter"),
		UninvoicedOnly: c.Query("uninvoiced") == "1" || c.Query("uninvoiced") == "true",
		Limit:          defaultPageSize,
	}
	switch c.Query("when") {
	case "upcoming":
		v := true
		f.Upcoming = &v
	case "past":
		v := false
		f.Upcoming = &v
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		f.Limit = min(n, maxPageSize)
	}
	if n, err := strconv.Atoi(c.Query("offset")); err == nil && n >= 0 {
		f.Offset = n
	}
	return f
}

// List handles GET /workshops.
func (h *Handler) List(c *gin.Context) {
	f := FilterFromQuery(c)
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list workshops", zap.Error(err))
		response.Internal(c, "failed to list workshops")
		return
	}
	total, err := h.repo.Count(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("count workshops", zap.Error(err))
		response.Internal(c, "failed to list workshops")
		return
	}
	if list == nil {
		list = []models.Workshop{}
	}
	response.Paged(c, list, total, f.Limit, f.Offset)
}

// Chapters handles GET /workshops/chapters.
func (h *Handler) Chapters(c *gin.Context) {
	chapters, err := h.repo.ListChapters(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list chapters")
		return
	}
	if chapters == nil {
		chapters = []string{}
	}
	response.OK(c, chapters)
}

// Create handles POST /workshops.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	w, err := in.Workshop()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.repo.Create(c.Request.Context(), w); err != nil {
		h.notFoundOrInternal(c, err, "create workshop")
		return
	}
	h.invalidate(c.Request.Context(), w.SeminarDate)
	response.Created(c, w)
}

// GetByID handles GET /workshops/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err, "get workshop")
		return
	}
	response.OK(c, w)
}

// Update handles PUT /workshops/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	existing, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err, "get workshop")
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	w, err := in.Workshop()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	w.ID = id
	w.CreatedAt = existing.CreatedAt
	if err := h.repo.Update(c.Request.Context(), w); err != nil {
		h.notFoundOrInternal(c, err, "update workshop")
		return
	}
	h.invalidate(c.Request.Context(), existing.SeminarDate, w.SeminarDate)
	response.OK(c, w)
}

// Delete handles DELETE /workshops/:id. Sign-ins for the workshop are removed with it.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	existing, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, err, "get workshop")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.notFoundOrInternal(c, err, "delete workshop")
		return
	}
	h.invalidate(c.Request.Context(), existing.SeminarDate)
	response.NoContent(c)
}

func (h *Handler) notFoundOrInternal(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "workshop not found")
		return
	case errors.Is(err, models.ErrDuplicate):
		response.Conflict(c, "a workshop for this chapter already exists on that date")
		return
	}
	h.logger.Error(op, zap.Error(err))
	response.Internal(c, "failed to "+op)
}
