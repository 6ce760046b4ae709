package workshops

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhfe/cfp-workshops/internal/models"
)

func TestFilterClause(t *testing.T) {
	where, args := filterClause(models.WorkshopFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	up := true
	where, args = filterClause(models.WorkshopFilter{Upcoming: &up, Chapter: "Rocky Mountain FPA", UninvoicedOnly: true})
	assert.Equal(t, " WHERE seminar_date >= CURRENT_DATE AND customer = $1 AND invoice_sent IS NULL", where)
	assert.Equal(t, []interface{}{"Rocky Mountain FPA"}, args)

	past := false
	where, _ = filterClause(models.WorkshopFilter{Upcoming: &past})
	assert.Equal(t, " WHERE seminar_date < CURRENT_DATE", where)
}

func TestWriteArgsMatchColumns(t *testing.T) {
	cols := strings.Split(writeColumns, ",")
	args := writeArgs(&models.Workshop{MaterialsFiles: "handouts.pdf"})
	require.Len(t, args, 29)
	assert.Len(t, cols, len(args))
	assert.Len(t, strings.Split(writeParams, ","), len(args))
	assert.Equal(t, "materials_files", strings.TrimSpace(cols[len(cols)-1]))
	assert.Equal(t, "handouts.pdf", args[len(args)-1])
}

var workshopColumnNames = []string{
	"id", "seminar_date", "customer", "time_location", "contact_name", "phone", "email", "other_email",
	"instructor", "instructor_cfp_id", "webinar_completed", "webinar_signin_link", "cfp_board_attest_form",
	"location", "initial_materials_sent", "all_materials_sent", "attendees_count", "roster_received",
	"batch_number", "batch_date", "cfp_acknowledgment", "invoice_sent", "invoice_amount", "invoice_received",
	"settlement_report", "evals_to_cfpb", "notes", "workshop_cost", "workshop_description", "materials_files",
	"created_at", "updated_at",
}

func workshopRows(list ...models.Workshop) *pgxmock.Rows {
	rows := pgxmock.NewRows(workshopColumnNames)
	for _, w := range list {
		rows.AddRow(w.ID, w.SeminarDate, w.Customer, w.TimeLocation, w.ContactName, w.Phone, w.Email, w.OtherEmail,
			w.Instructor, w.InstructorCFPID, w.WebinarCompleted, w.WebinarSigninLink, w.CFPBoardAttestForm,
			w.Location, w.InitialMaterialsSent, w.AllMaterialsSent, w.AttendeesCount, w.RosterReceived,
			w.BatchNumber, w.BatchDate, w.CFPAcknowledgment, w.InvoiceSent, w.InvoiceAmount, w.InvoiceReceived,
			w.SettlementReport, w.EvalsToCFPB, w.Notes, w.WorkshopCost, w.WorkshopDescription, w.MaterialsFiles,
			w.CreatedAt, w.UpdatedAt)
	}
	return rows
}

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

var (
	findByKeySQL  = regexp.QuoteMeta("FROM workshops WHERE seminar_date = $1 AND customer = $2")
	autoCreateSQL = regexp.QuoteMeta("ON CONFLICT (seminar_date, customer) DO NOTHING RETURNING")
	seminarDay    = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
)

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM workshops WHERE id = $1")).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFindOrCreateReturnsExisting(t *testing.T) {
	repo, mock := newMockRepository(t)
	existing := models.Workshop{ID: uuid.New(), SeminarDate: seminarDay, Customer: "Rocky Mountain FPA", Instructor: "Jane Doe"}
	mock.ExpectQuery(findByKeySQL).WithArgs(seminarDay, "Rocky Mountain FPA").WillReturnRows(workshopRows(existing))

	w, created, err := repo.FindOrCreate(context.Background(), seminarDay, "Rocky Mountain FPA")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, w.ID)
	assert.Equal(t, "Jane Doe", w.Instructor)
}

func TestFindOrCreateInsertsPlaceholder(t *testing.T) {
	repo, mock := newMockRepository(t)
	placeholder := models.Workshop{
		ID: uuid.New(), SeminarDate: seminarDay, Customer: "New Chapter",
		Instructor: models.AutoCreatedInstructor, Notes: models.AutoCreatedNote,
	}
	mock.ExpectQuery(findByKeySQL).WithArgs(seminarDay, "New Chapter").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(autoCreateSQL).
		WithArgs(seminarDay, "New Chapter", models.AutoCreatedInstructor, models.AutoCreatedNote).
		WillReturnRows(workshopRows(placeholder))

	w, created, err := repo.FindOrCreate(context.Background(), seminarDay, "New Chapter")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, placeholder.ID, w.ID)
	assert.Equal(t, models.AutoCreatedInstructor, w.Instructor)
	assert.Equal(t, models.AutoCreatedNote, w.Notes)
}

func TestFindOrCreateConcurrentInsertReloads(t *testing.T) {
	repo, mock := newMockRepository(t)
	winner := models.Workshop{ID: uuid.New(), SeminarDate: seminarDay, Customer: "New Chapter", Instructor: models.AutoCreatedInstructor}
	mock.ExpectQuery(findByKeySQL).WithArgs(seminarDay, "New Chapter").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(autoCreateSQL).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(findByKeySQL).WithArgs(seminarDay, "New Chapter").WillReturnRows(workshopRows(winner))

	w, created, err := repo.FindOrCreate(context.Background(), seminarDay, "New Chapter")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, w.ID)
}

func TestCreateDuplicateKey(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workshops (")).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &models.Workshop{SeminarDate: seminarDay, Customer: "Rocky Mountain FPA"})
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestUpsertKeepsStoredCostDescriptionAndMaterials(t *testing.T) {
	repo, mock := newMockRepository(t)
	cost := 2500.0
	existing := models.Workshop{
		ID: uuid.New(), SeminarDate: seminarDay, Customer: "Rocky Mountain FPA",
		WorkshopCost: &cost, WorkshopDescription: "Ethics deep dive", MaterialsFiles: "handouts.pdf",
	}
	incoming := &models.Workshop{SeminarDate: seminarDay, Customer: "Rocky Mountain FPA", Notes: "from ledger"}
	want := models.Workshop{
		SeminarDate: seminarDay, Customer: "Rocky Mountain FPA", Notes: "from ledger",
		WorkshopCost: &cost, WorkshopDescription: "Ethics deep dive", MaterialsFiles: "handouts.pdf",
	}
	updatedAt := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(findByKeySQL).WithArgs(seminarDay, "Rocky Mountain FPA").WillReturnRows(workshopRows(existing))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE workshops SET")).
		WithArgs(append(writeArgs(&want), existing.ID)...).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))

	inserted, err := repo.Upsert(context.Background(), incoming)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, existing.ID, incoming.ID)
	require.NotNil(t, incoming.WorkshopCost)
	assert.Equal(t, 2500.0, *incoming.WorkshopCost)
	assert.Equal(t, "Ethics deep dive", incoming.WorkshopDescription)
	assert.Equal(t, updatedAt, incoming.UpdatedAt)
}

func TestUpsertInsertsUnknownKey(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(findByKeySQL).WithArgs(seminarDay, "New Chapter").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workshops (")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

	w := &models.Workshop{SeminarDate: seminarDay, Customer: "New Chapter"}
	inserted, err := repo.Upsert(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, id, w.ID)
}

func TestDeleteMissingWorkshop(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM workshops WHERE id = $1")).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), models.ErrNotFound)
}
