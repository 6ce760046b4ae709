package workshops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/database"
)

// Repository handles workshop persistence.
type Repository struct {
	pool database.Querier
}

// NewRepository creates a workshop repository.
func NewRepository(pool database.Querier) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `id, seminar_date, customer,
	COALESCE(time_location,''), COALESCE(contact_name,''), COALESCE(phone,''), COALESCE(email,''), COALESCE(other_email,''),
	COALESCE(instructor,''), COALESCE(instructor_cfp_id,''), COALESCE(webinar_completed,''), COALESCE(webinar_signin_link,''),
	COALESCE(cfp_board_attest_form,''), COALESCE(location,''), initial_materials_sent, all_materials_sent, attendees_count,
	COALESCE(roster_received,''), batch_number, batch_date, COALESCE(cfp_acknowledgment,''), invoice_sent,
	invoice_amount::float8, invoice_received, COALESCE(settlement_report,''), COALESCE(evals_to_cfpb,''), COALESCE(notes,''),
	workshop_cost::float8, COALESCE(workshop_description,''), COALESCE(materials_files,''), created_at, updated_at`

// writeColumns are bound as $1..$29 in this order by writeArgs.
const writeColumns = `seminar_date, customer, time_location, contact_name, phone, email, other_email,
	instructor, instructor_cfp_id, webinar_completed, webinar_signin_link, cfp_board_attest_form, location,
	initial_materials_sent, all_materials_sent, attendees_count, roster_received, batch_number, batch_date,
	cfp_acknowledgment, invoice_sent, invoice_amount, invoice_received, settlement_report, evals_to_cfpb,
	notes, workshop_cost, workshop_description, materials_files`

const writeParams = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	$21, $22::float8, $23, $24, $25, $26, $27::float8, $28, $29`

func writeArgs(w *models.Workshop) []interface{} {
	return []interface{}{
		w.SeminarDate, w.Customer, w.TimeLocation, w.ContactName, w.Phone, w.Email, w.OtherEmail,
		w.Instructor, w.InstructorCFPID, w.WebinarCompleted, w.WebinarSigninLink, w.CFPBoardAttestForm, w.Location,
		w.InitialMaterialsSent, w.AllMaterialsSent, w.AttendeesCount, w.RosterReceived, w.BatchNumber, w.BatchDate,
		w.CFPAcknowledgment, w.InvoiceSent, w.InvoiceAmount, w.InvoiceReceived, w.SettlementReport, w.EvalsToCFPB,
		w.Notes, w.WorkshopCost, w.WorkshopDescription, w.MaterialsFiles,
	}
}

func scanWorkshop(row pgx.Row) (*models.Workshop, error) {
	var w models.Workshop
	err := row.Scan(&w.ID, &w.SeminarDate, &w.Customer,
		&w.TimeLocation, &w.ContactName, &w.Phone, &w.Email, &w.OtherEmail,
		&w.Instructor, &w.InstructorCFPID, &w.WebinarCompleted, &w.WebinarSigninLink,
		&w.CFPBoardAttestForm, &w.Location, &w.InitialMaterialsSent, &w.AllMaterialsSent, &w.AttendeesCount,
		&w.RosterReceived, &w.BatchNumber, &w.BatchDate, &w.CFPAcknowledgment, &w.InvoiceSent,
		&w.InvoiceAmount, &w.InvoiceReceived, &w.SettlementReport, &w.EvalsToCFPB, &w.Notes,
		&w.WorkshopCost, &w.WorkshopDescription, &w.MaterialsFiles, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func collect(rows pgx.Rows) ([]models.Workshop, error) {
	defer rows.Close()
	var list []models.Workshop
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, rows.Err()
}

// Create inserts a new workshop and fills its id and timestamps.
// A second workshop for the same chapter and date returns models.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, w *models.Workshop) error {
	q := `INSERT INTO workshops (` + writeColumns + `) VALUES (` + writeParams + `) RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, writeArgs(w)...).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return models.ErrDuplicate
	}
	return err
}

// GetByID returns a workshop by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	return scanWorkshop(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM workshops WHERE id = $1`, id))
}

// Update replaces every editable field of w.
func (r *Repository) Update(ctx context.Context, w *models.Workshop) error {
	q := `UPDATE workshops SET (` + writeColumns + `, updated_at) = (` + writeParams + `, NOW()) WHERE id = $30 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, append(writeArgs(w), w.ID)...).Scan(&w.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return models.ErrNotFound
	case database.IsUniqueViolation(err):
		return models.ErrDuplicate
	}
	return err
}

// Delete removes a workshop and, through the foreign key, its sign-ins.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workshops WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// filterClause builds the WHERE clause and arguments for f.
func filterClause(f models.WorkshopFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Upcoming != nil {
		if *f.Upcoming {
			conds = append(conds, "seminar_date >= CURRENT_DATE")
		} else {
			conds = append(conds, "seminar_date < CURRENT_DATE")
		}
	}
	if f.Chapter != "" {
		args = append(args, f.Chapter)
		conds = append(conds, fmt.Sprintf("customer = $%d", len(args)))
	}
	if f.UninvoicedOnly {
		conds = append(conds, "invoice_sent IS NULL")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns workshops matching f, upcoming ones soonest first and all others newest first.
func (r *Repository) List(ctx context.Context, f models.WorkshopFilter) ([]models.Workshop, error) {
	where, args := filterClause(f)
	order := " ORDER BY seminar_date DESC, customer"
	if f.Upcoming != nil && *f.Upcoming {
		order = " ORDER BY seminar_date ASC, customer"
	}
	q := `SELECT ` + selectColumns + ` FROM workshops` + where + order
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// Count returns the number of workshops matching f, ignoring its paging.
func (r *Repository) Count(ctx context.Context, f models.WorkshopFilter) (int, error) {
	where, args := filterClause(f)
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workshops`+where, args...).Scan(&n)
	return n, err
}

// ListChapters returns the distinct customer names in alphabetical order.
func (r *Repository) ListChapters(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT customer FROM workshops WHERE customer <> '' ORDER BY customer`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByDate returns the workshops held on date ordered by customer.
func (r *Repository) ListByDate(ctx context.Context, date time.Time) ([]models.Workshop, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM workshops WHERE seminar_date = $1 ORDER BY customer`, date)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// FindByDateAndCustomer returns the workshop keyed by (date, customer).
func (r *Repository) FindByDateAndCustomer(ctx context.Context, date time.Time, customer string) (*models.Workshop, error) {
	const q = `SELECT ` + selectColumns + ` FROM workshops WHERE seminar_date = $1 AND customer = $2`
	return scanWorkshop(r.pool.QueryRow(ctx, q, date, customer))
}

// FindOrCreate returns the workshop for (date, customer), inserting a placeholder when none exists.
// created reports whether this call inserted the row. Concurrent callers converge on one row.
func (r *Repository) FindOrCreate(ctx context.Context, date time.Time, customer string) (w *models.Workshop, created bool, err error) {
	w, err = r.FindByDateAndCustomer(ctx, date, customer)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}
	const q = `INSERT INTO workshops (seminar_date, customer, instructor, notes) VALUES ($1, $2, $3, $4)
		ON CONFLICT (seminar_date, customer) DO NOTHING RETURNING ` + selectColumns
	w, err = scanWorkshop(r.pool.QueryRow(ctx, q, date, customer, models.AutoCreatedInstructor, models.AutoCreatedNote))
	switch {
	case err == nil:
		return w, true, nil
	case errors.Is(err, models.ErrNotFound):
		// lost the insert race; the winner's row is visible now
		w, err = r.FindByDateAndCustomer(ctx, date, customer)
		if err != nil {
			return nil, false, fmt.Errorf("reload auto-created workshop: %w", err)
		}
		return w, false, nil
	default:
		return nil, false, fmt.Errorf("auto-create workshop: %w", err)
	}
}

// Upsert updates the workshop keyed by (date, customer) or inserts w. inserted reports which happened.
func (r *Repository) Upsert(ctx context.Context, w *models.Workshop) (inserted bool, err error) {
	existing, err := r.FindByDateAndCustomer(ctx, w.SeminarDate, w.Customer)
	switch {
	case err == nil:
		w.ID = existing.ID
		w.WorkshopCost = coalesceFloat(w.WorkshopCost, existing.WorkshopCost)
		if w.WorkshopDescription == "" {
			w.WorkshopDescription = existing.WorkshopDescription
		}
		if w.MaterialsFiles == "" {
			w.MaterialsFiles = existing.MaterialsFiles
		}
		return false, r.Update(ctx, w)
	case errors.Is(err, models.ErrNotFound):
		return true, r.Create(ctx, w)
	default:
		return false, err
	}
}

func coalesceFloat(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

// CountSince returns workshops on or after from.
func (r *Repository) CountSince(ctx context.Context, from time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workshops WHERE seminar_date >= $1`, from).Scan(&n)
	return n, err
}
