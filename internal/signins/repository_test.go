package signins

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhfe/cfp-workshops/internal/models"
)

func floatp(v float64) *float64 { return &v }

func newMockRepository(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewRepository(mock), mock
}

var insertSignInSQL = regexp.QuoteMeta("ON CONFLICT (workshop_id, email) DO NOTHING")

func sampleSignIn() *models.SignIn {
	return &models.SignIn{
		WorkshopID:               uuid.New(),
		FirstName:                "Ada",
		LastName:                 "Lovelace",
		Email:                    "ada@example.org",
		CFPID:                    "123456",
		Affiliation:              "Rocky Mountain FPA",
		WorkshopDate:             time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		LearningObjectivesRating: intp(5),
		OverallRating:            intp(4),
		EmailNewsletter:          true,
		IPAddress:                "203.0.113.7",
	}
}

func TestCreateInsertsRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	s := sampleSignIn()
	id := uuid.New()
	completed := time.Date(2025, 3, 14, 16, 30, 0, 0, time.UTC)
	mock.ExpectQuery(insertSignInSQL).
		WithArgs(s.WorkshopID, "Ada", "Lovelace", "ada@example.org", "123456", "Rocky Mountain FPA", s.WorkshopDate,
			s.LearningObjectivesRating, s.ContentOrganizedRating, s.ContentRelevantRating, s.ActivitiesHelpfulRating,
			s.InstructorKnowledgeableRating, s.OverallRating, true, "203.0.113.7").
		WillReturnRows(pgxmock.NewRows([]string{"id", "completion_date"}).AddRow(id, completed))

	inserted, err := repo.Create(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, completed, s.CompletionDate)
}

func TestCreateDuplicateEmailIsNotInserted(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(insertSignInSQL).WillReturnError(pgx.ErrNoRows)

	s := sampleSignIn()
	inserted, err := repo.Create(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, uuid.Nil, s.ID)
}

func TestGetByIDAndDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM signins s WHERE s.id = $1")).WithArgs(id).WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM signins WHERE id = $1")).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), id), models.ErrNotFound)
}

func TestSummaryAveragesRatings(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("AVG(learning_objectives_rating)::float8")).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count", "newsletter", "lo", "co", "cr", "ah", "ik", "overall"}).
			AddRow(3, 1, floatp(4.5), floatp(4), floatp(3.75), floatp(5), floatp(4.25), (*float64)(nil)))

	sum, err := repo.Summary(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, sum.WorkshopID)
	assert.Equal(t, 3, sum.SignIns)
	assert.Equal(t, 1, sum.NewsletterOptIns)
	require.NotNil(t, sum.AvgLearningObjectives)
	assert.InDelta(t, 4.5, *sum.AvgLearningObjectives, 1e-9)
	require.NotNil(t, sum.AvgContentRelevant)
	assert.InDelta(t, 3.75, *sum.AvgContentRelevant, 1e-9)
	assert.Nil(t, sum.AvgOverall)
}

func TestListFiltersByWorkshopAndCaps(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.workshop_id = $1 ORDER BY s.completion_date DESC LIMIT $2")).
		WithArgs(id, ListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	list, err := repo.List(context.Background(), &id)
	require.NoError(t, err)
	assert.Empty(t, list)
}
