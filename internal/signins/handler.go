package signins

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/response"
)

// Store is the sign-in persistence used by the admin endpoints.
type Store interface {
	List(ctx context.Context, workshopID *uuid.UUID) ([]models.SignInWithWorkshop, error)
	ListForExport(ctx context.Context, workshopID *uuid.UUID) ([]models.SignInWithWorkshop, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, workshopID uuid.UUID) (*models.EvaluationSummary, error)
}

// WorkshopGetter loads a workshop by id.
type WorkshopGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
}

// Submitter records sign-ins.
type Submitter interface {
	Submit(ctx context.Context, in SignInInput) (*Result, error)
}

// OptionLookup lists sign-in form options for a date.
type OptionLookup interface {
	ByDate(ctx context.Context, date time.Time) ([]Option, error)
}

// SubmitRequest is the public sign-in form. It binds from a form post or JSON.
type SubmitRequest struct {
	WorkshopDate                  string `form:"workshop_date" json:"workshop_date"`
	Affiliation                   string `form:"affiliation" json:"affiliation"`
	FirstName                     string `form:"first_name" json:"first_name"`
	LastName                      string `form:"last_name" json:"last_name"`
	Email                         string `form:"email" json:"email"`
	CFPID                         string `form:"cfp_id" json:"cfp_id"`
	LearningObjectivesRating      int    `form:"learning_objectives_rating" json:"learning_objectives_rating"`
	ContentOrganizedRating        int    `form:"content_organized_rating" json:"content_organized_rating"`
	ContentRelevantRating         int    `form:"content_relevant_rating" json:"content_relevant_rating"`
	ActivitiesHelpfulRating       int    `form:"activities_helpful_rating" json:"activities_helpful_rating"`
	InstructorKnowledgeableRating int    `form:"instructor_knowledgeable_rating" json:"instructor_knowledgeable_rating"`
	OverallRating                 int    `form:"overall_rating" json:"overall_rating"`
	EmailNewsletter               string `form:"email_newsletter" json:"email_newsletter"`
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Input converts the request into a SignInInput for a caller at ip.
func (r SubmitRequest) Input(ip string) SignInInput {
	return SignInInput{
		WorkshopDate:                  r.WorkshopDate,
		Affiliation:                   r.Affiliation,
		FirstName:                     r.FirstName,
		LastName:                      r.LastName,
		Email:                         r.Email,
		CFPID:                         r.CFPID,
		LearningObjectivesRating:      r.LearningObjectivesRating,
		ContentOrganizedRating:        r.ContentOrganizedRating,
		ContentRelevantRating:         r.ContentRelevantRating,
		ActivitiesHelpfulRating:       r.ActivitiesHelpfulRating,
		InstructorKnowledgeableRating: r.InstructorKnowledgeableRating,
		OverallRating:                 r.OverallRating,
		EmailNewsletter:               checked(r.EmailNewsletter),
		IPAddress:                     ip,
	}
}

// Handler handles sign-in HTTP endpoints.
type Handler struct {
	store     Store
	workshops WorkshopGetter
	submitter Submitter
	lookup    OptionLookup
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandler creates a sign-ins handler.
func NewHandler(store Store, workshops WorkshopGetter, submitter Submitter, lookup OptionLookup, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, workshops: workshops, submitter: submitter, lookup: lookup, logger: logger, now: time.Now}
}

// Submit handles POST /signin.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.submitter.Submit(c.Request.Context(), req.Input(c.ClientIP()))
	if err != nil {
		if IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("sign-in submit", zap.Error(err))
		response.Internal(c, "There was an error saving your sign-in. Please try again or contact support.")
		return
	}
	if res.Duplicate {
		response.OK(c, gin.H{"signin_success": true, "duplicate": true})
		return
	}
	response.Created(c, gin.H{"signin_success": true, "signin": res.SignIn, "workshop_created": res.WorkshopCreated})
}

// WorkshopsByDate handles GET /signin/workshops?date=YYYY-MM-DD.
func (h *Handler) WorkshopsByDate(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		response.BadRequest(c, "Date is required")
		return
	}
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		response.BadRequest(c, "invalid date")
		return
	}
	opts, err := h.lookup.ByDate(c.Request.Context(), date)
	if errors.Is(err, ErrNoWorkshopsOnDate) {
		response.NotFound(c, "No workshops found for this date")
		return
	}
	if err != nil {
		h.logger.Error("workshops by date", zap.String("date", raw), zap.Error(err))
		response.Internal(c, "failed to look up workshops")
		return
	}
	response.OK(c, opts)
}

func workshopFilter(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.Query("workshop_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// List handles GET /signins?workshop_id=.
func (h *Handler) List(c *gin.Context) {
	id, ok := workshopFilter(c)
	if !ok {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	list, err := h.store.List(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("list sign-ins", zap.Error(err))
		response.Internal(c, "failed to list sign-ins")
		return
	}
	if list == nil {
		list = []models.SignInWithWorkshop{}
	}
	response.OK(c, list)
}

// Create handles POST /signins, the admin manual entry. It follows the public submit rules.
func (h *Handler) Create(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.submitter.Submit(c.Request.Context(), req.Input(""))
	if err != nil {
		if IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("manual sign-in", zap.Error(err))
		response.Internal(c, "failed to create sign-in")
		return
	}
	if res.Duplicate {
		response.Conflict(c, "a sign-in for this email already exists for the workshop")
		return
	}
	response.Created(c, res.SignIn)
}

// Delete handles DELETE /signins/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid sign-in id")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "sign-in not found")
			return
		}
		h.logger.Error("delete sign-in", zap.Error(err))
		response.Internal(c, "failed to delete sign-in")
		return
	}
	response.NoContent(c)
}

// Summary handles GET /workshops/:id/evaluations.
func (h *Handler) Summary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	if _, err := h.workshops.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "workshop not found")
			return
		}
		response.Internal(c, "failed to load workshop")
		return
	}
	sum, err := h.store.Summary(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("evaluation summary", zap.Error(err))
		response.Internal(c, "failed to summarize evaluations")
		return
	}
	response.OK(c, sum)
}

// Export handles GET /signins/export?workshop_id=.
func (h *Handler) Export(c *gin.Context) {
	id, ok := workshopFilter(c)
	if !ok {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	var w *models.Workshop
	if id != nil {
		var err error
		w, err = h.workshops.GetByID(c.Request.Context(), *id)
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "workshop not found")
			return
		}
		if err != nil {
			response.Internal(c, "failed to load workshop")
			return
		}
	}
	list, err := h.store.ListForExport(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("export sign-ins", zap.Error(err))
		response.Internal(c, "failed to export sign-ins")
		return
	}
	var buf bytes.Buffer
	if err := WriteExport(&buf, w, list); err != nil {
		response.Internal(c, "failed to export sign-ins")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename(w, h.now())+`"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
