package signins

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/metrics"
	"github.com/bhfe/cfp-workshops/internal/models"
)

// Rating bounds for every evaluation question.
const (
	MinRating = 1
	MaxRating = 5
)

// SignInInput is one attendee submission, built once at the HTTP boundary.
type SignInInput struct {
	WorkshopDate                  string
	Affiliation                   string
	FirstName                     string
	LastName                      string
	Email                         string
	CFPID                         string
	LearningObjectivesRating      int
	ContentOrganizedRating        int
	ContentRelevantRating         int
	ActivitiesHelpfulRating       int
	InstructorKnowledgeableRating int
	OverallRating                 int
	EmailNewsletter               bool
	IPAddress                     string
}

type rating struct {
	label string
	value int
}

func (in SignInInput) ratings() []rating {
	return []rating{
		{"Learning Objectives Rating", in.LearningObjectivesRating},
		{"Content Organized Rating", in.ContentOrganizedRating},
		{"Content Relevant Rating", in.ContentRelevantRating},
		{"Activities Helpful Rating", in.ActivitiesHelpfulRating},
		{"Instructor Knowledgeable Rating", in.InstructorKnowledgeableRating},
		{"Overall Rating", in.OverallRating},
	}
}

// ValidationError lists every field a submission is missing or got wrong.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "Missing required fields: "+strings.Join(e.Missing, ", ")+". Please go back and complete all required fields.")
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "Invalid fields: "+strings.Join(e.Invalid, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// Validate trims the input and reports all problems at once.
func (in *SignInInput) Validate() error {
	in.WorkshopDate = strings.TrimSpace(in.WorkshopDate)
	in.Affiliation = strings.TrimSpace(in.Affiliation)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.CFPID = strings.TrimSpace(in.CFPID)

	verr := &ValidationError{}
	required := []struct{ label, value string }{
		{"Workshop Date", in.WorkshopDate},
		{"FPA Chapter", in.Affiliation},
		{"First Name", in.FirstName},
		{"Last Name", in.LastName},
		{"Email", in.Email},
		{"CFP ID", in.CFPID},
	}
	for _, f := range required {
		if f.value == "" {
			verr.Missing = append(verr.Missing, f.label)
		}
	}
	for _, r := range in.ratings() {
		switch {
		case r.value < MinRating:
			verr.Missing = append(verr.Missing, r.label)
		case r.value > MaxRating:
			verr.Invalid = append(verr.Invalid, r.label)
		}
	}
	if in.WorkshopDate != "" {
		if _, err := time.Parse(models.DateLayout, in.WorkshopDate); err != nil {
			verr.Invalid = append(verr.Invalid, "Workshop Date")
		}
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			verr.Invalid = append(verr.Invalid, "Email")
		}
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}

// SignIn converts a validated input into a record for workshopID.
func (in SignInInput) SignIn(workshopID uuid.UUID, date time.Time) *models.SignIn {
	r := in.ratings()
	ptr := func(i int) *int {
		v := r[i].value
		return &v
	}
	return &models.SignIn{
		WorkshopID:                    workshopID,
		FirstName:                     in.FirstName,
		LastName:                      in.LastName,
		Email:                         in.Email,
		CFPID:                         in.CFPID,
		Affiliation:                   in.Affiliation,
		WorkshopDate:                  date,
		LearningObjectivesRating:      ptr(0),
		ContentOrganizedRating:        ptr(1),
		ContentRelevantRating:         ptr(2),
		ActivitiesHelpfulRating:       ptr(3),
		InstructorKnowledgeableRating: ptr(4),
		OverallRating:                 ptr(5),
		EmailNewsletter:               in.EmailNewsletter,
		IPAddress:                     in.IPAddress,
	}
}

// WorkshopResolver finds the workshop a sign-in belongs to, creating it when missing.
type WorkshopResolver interface {
	FindOrCreate(ctx context.Context, date time.Time, customer string) (*models.Workshop, bool, error)
}

// Creator persists sign-ins.
type Creator interface {
	Create(ctx context.Context, s *models.SignIn) (bool, error)
}

// DateInvalidator drops cached workshop lookups for a date.
type DateInvalidator interface {
	InvalidateDate(ctx context.Context, date time.Time) error
}

// Result describes what a submission did.
type Result struct {
	SignIn          *models.SignIn
	Duplicate       bool
	WorkshopCreated bool
}

// Service accepts public sign-ins.
type Service struct {
	signins   Creator
	workshops WorkshopResolver
	cache     DateInvalidator
	logger    *zap.Logger
}

// NewService creates a sign-in service. cache may be nil.
func NewService(signins Creator, workshops WorkshopResolver, cache DateInvalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{signins: signins, workshops: workshops, cache: cache, logger: logger}
}

// Submit validates in, resolves its workshop and records the sign-in.
// A repeat submission for the same workshop and email succeeds with Duplicate set.
func (s *Service) Submit(ctx context.Context, in SignInInput) (*Result, error) {
	if err := in.Validate(); err != nil {
		metrics.SignInsSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}
	date, _ := time.Parse(models.DateLayout, in.WorkshopDate)

	w, created, err := s.workshops.FindOrCreate(ctx, date, in.Affiliation)
	if err != nil {
		metrics.SignInsSubmitted.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve workshop: %w", err)
	}
	if created {
		s.logger.Info("workshop auto-created from sign-in",
			zap.String("workshop_id", w.ID.String()), zap.String("date", in.WorkshopDate), zap.String("customer", in.Affiliation))
		if s.cache != nil {
			if err := s.cache.InvalidateDate(ctx, date); err != nil {
				s.logger.Warn("invalidate workshop lookup cache", zap.Error(err))
			}
		}
	}

	rec := in.SignIn(w.ID, date)
	inserted, err := s.signins.Create(ctx, rec)
	if err != nil {
		metrics.SignInsSubmitted.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("save sign-in: %w", err)
	}
	res := &Result{SignIn: rec, Duplicate: !inserted, WorkshopCreated: created}
	if res.Duplicate {
		metrics.SignInsSubmitted.WithLabelValues("duplicate").Inc()
		s.logger.Info("duplicate sign-in ignored", zap.String("workshop_id", w.ID.String()), zap.String("email", rec.Email))
		return res, nil
	}
	metrics.SignInsSubmitted.WithLabelValues("accepted").Inc()
	return res, nil
}

// IsValidation reports whether err is a submission validation failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
