package dashboard

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/response"
)

// RecentWindow is the look-back for recent sign-in counts.
const RecentWindow = 30 * 24 * time.Hour

// WorkshopCounter counts workshops.
type WorkshopCounter interface {
	Count(ctx context.Context, f models.WorkshopFilter) (int, error)
}

// SignInCounter counts sign-ins completed since a time.
type SignInCounter interface {
	CountSince(ctx context.Context, from time.Time) (int, error)
}

// TemplateCounter counts active templates.
type TemplateCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// Handler handles GET /dashboard.
type Handler struct {
	workshops WorkshopCounter
	signins   SignInCounter
	templates TemplateCounter
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandler creates a dashboard handler.
func NewHandler(workshops WorkshopCounter, signins SignInCounter, templates TemplateCounter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{workshops: workshops, signins: signins, templates: templates, logger: logger, now: time.Now}
}

// SummaryResponse is the JSON shape of the admin overview.
type SummaryResponse struct {
	TotalWorkshops     int  `json:"total_workshops"`
	UpcomingWorkshops  int  `json:"upcoming_workshops"`
	UninvoicedPast     int  `json:"uninvoiced_past_workshops"`
	RecentSignIns      int  `json:"recent_signins"`
	ActiveTemplates    int  `json:"active_templates"`
	TemplatesAvailable bool `json:"templates_available"`
}

// Summary handles GET /dashboard.
func (h *Handler) Summary(c *gin.Context) {
	ctx := c.Request.Context()
	upcoming, past := true, false

	var out SummaryResponse
	counts := []struct {
		name string
		dst  *int
		fn   func() (int, error)
	}{
		{"total workshops", &out.TotalWorkshops, func() (int, error) {
			return h.workshops.Count(ctx, models.WorkshopFilter{})
		}},
		{"upcoming workshops", &out.UpcomingWorkshops, func() (int, error) {
			return h.workshops.Count(ctx, models.WorkshopFilter{Upcoming: &upcoming})
		}},
		{"uninvoiced workshops", &out.UninvoicedPast, func() (int, error) {
			return h.workshops.Count(ctx, models.WorkshopFilter{Upcoming: &past, UninvoicedOnly: true})
		}},
		{"recent sign-ins", &out.RecentSignIns, func() (int, error) {
			return h.signins.CountSince(ctx, h.now().Add(-RecentWindow))
		}},
		{"active templates", &out.ActiveTemplates, func() (int, error) {
			return h.templates.CountActive(ctx)
		}},
	}
	for _, cnt := range counts {
		n, err := cnt.fn()
		if err != nil {
			h.logger.Error("dashboard count", zap.String("count", cnt.name), zap.Error(err))
			response.Internal(c, "failed to load "+cnt.name)
			return
		}
		*cnt.dst = n
	}
	out.TemplatesAvailable = out.ActiveTemplates > 0
	response.OK(c, out)
}
