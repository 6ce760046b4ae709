package signins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/database"
)

// ListLimit caps admin sign-in listings.
const ListLimit = 100

const signinColumns = `s.id, s.workshop_id, s.first_name, s.last_name, s.email, s.cfp_id, COALESCE(s.affiliation, ''),
	s.workshop_date, s.learning_objectives_rating, s.content_organized_rating, s.content_relevant_rating,
	s.activities_helpful_rating, s.instructor_knowledgeable_rating, s.overall_rating,
	s.email_newsletter, s.completion_date, COALESCE(s.ip_address, '')`

const joinedColumns = signinColumns + `, w.seminar_date, COALESCE(w.customer, ''), COALESCE(w.instructor, ''),
	COALESCE(w.location, ''), COALESCE(w.time_location, '')`

// Repository handles sign-in persistence.
type Repository struct {
	pool database.Querier
}

// NewRepository creates a sign-ins repository.
func NewRepository(pool database.Querier) *Repository {
	return &Repository{pool: pool}
}

func signinDest(s *models.SignIn) []interface{} {
	return []interface{}{
		&s.ID, &s.WorkshopID, &s.FirstName, &s.LastName, &s.Email, &s.CFPID, &s.Affiliation,
		&s.WorkshopDate, &s.LearningObjectivesRating, &s.ContentOrganizedRating, &s.ContentRelevantRating,
		&s.ActivitiesHelpfulRating, &s.InstructorKnowledgeableRating, &s.OverallRating,
		&s.EmailNewsletter, &s.CompletionDate, &s.IPAddress,
	}
}

// Create inserts s. A second sign-in for the same workshop and email leaves the
// existing row untouched and reports inserted=false.
func (r *Repository) Create(ctx context.Context, s *models.SignIn) (inserted bool, err error) {
	const q = `INSERT INTO signins (workshop_id, first_name, last_name, email, cfp_id, affiliation, workshop_date,
		learning_objectives_rating, content_organized_rating, content_relevant_rating, activities_helpful_rating,
		instructor_knowledgeable_rating, overall_rating, email_newsletter, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (workshop_id, email) DO NOTHING
		RETURNING id, completion_date`
	err = r.pool.QueryRow(ctx, q,
		s.WorkshopID, s.FirstName, s.LastName, s.Email, s.CFPID, s.Affiliation, s.WorkshopDate,
		s.LearningObjectivesRating, s.ContentOrganizedRating, s.ContentRelevantRating, s.ActivitiesHelpfulRating,
		s.InstructorKnowledgeableRating, s.OverallRating, s.EmailNewsletter, s.IPAddress,
	).Scan(&s.ID, &s.CompletionDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByID returns a sign-in by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SignIn, error) {
	var s models.SignIn
	err := r.pool.QueryRow(ctx, `SELECT `+signinColumns+` FROM signins s WHERE s.id = $1`, id).Scan(signinDest(&s)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes a sign-in.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM signins WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) queryJoined(ctx context.Context, q string, args ...interface{}) ([]models.SignInWithWorkshop, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SignInWithWorkshop
	for rows.Next() {
		var s models.SignInWithWorkshop
		dest := append(signinDest(&s.SignIn), &s.SeminarDate, &s.Customer, &s.Instructor, &s.Location, &s.TimeLocation)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// List returns the newest sign-ins joined with their workshop, optionally for one workshop.
func (r *Repository) List(ctx context.Context, workshopID *uuid.UUID) ([]models.SignInWithWorkshop, error) {
	q := `SELECT ` + joinedColumns + ` FROM signins s LEFT JOIN workshops w ON s.workshop_id = w.id`
	var args []interface{}
	if workshopID != nil {
		args = append(args, *workshopID)
		q += ` WHERE s.workshop_id = $1`
	}
	args = append(args, ListLimit)
	q += fmt.Sprintf(` ORDER BY s.completion_date DESC LIMIT $%d`, len(args))
	return r.queryJoined(ctx, q, args...)
}

// ListForExport returns every sign-in for export ordered by workshop date then attendee name.
func (r *Repository) ListForExport(ctx context.Context, workshopID *uuid.UUID) ([]models.SignInWithWorkshop, error) {
	q := `SELECT ` + joinedColumns + ` FROM signins s LEFT JOIN workshops w ON s.workshop_id = w.id`
	var args []interface{}
	if workshopID != nil {
		args = append(args, *workshopID)
		q += ` WHERE s.workshop_id = $1`
	}
	q += ` ORDER BY w.seminar_date DESC, s.last_name, s.first_name`
	return r.queryJoined(ctx, q, args...)
}

// Summary aggregates the evaluations submitted for a workshop.
func (r *Repository) Summary(ctx context.Context, workshopID uuid.UUID) (*models.EvaluationSummary, error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE email_newsletter),
		AVG(learning_objectives_rating)::float8, AVG(content_organized_rating)::float8,
		AVG(content_relevant_rating)::float8, AVG(activities_helpful_rating)::float8,
		AVG(instructor_knowledgeable_rating)::float8, AVG(overall_rating)::float8
		FROM signins WHERE workshop_id = $1`
	sum := models.EvaluationSummary{WorkshopID: workshopID}
	err := r.pool.QueryRow(ctx, q, workshopID).Scan(&sum.SignIns, &sum.NewsletterOptIns,
		&sum.AvgLearningObjectives, &sum.AvgContentOrganized, &sum.AvgContentRelevant,
		&sum.AvgActivitiesHelpful, &sum.AvgInstructorKnowledgeable, &sum.AvgOverall)
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// CountSince returns the number of sign-ins that completed on or after from.
func (r *Repository) CountSince(ctx context.Context, from time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM signins WHERE completion_date >= $1`, from).Scan(&n)
	return n, err
}
