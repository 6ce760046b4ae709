package templates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/database"
)

const templateColumns = `id, template_name, template_type, file_path, original_filename, field_mappings, is_active, mirror_key, upload_date`

// Repository handles template persistence.
type Repository struct {
	pool database.Querier
}

// NewRepository creates a templates repository.
func NewRepository(pool database.Querier) *Repository {
	return &Repository{pool: pool}
}

func scanTemplate(row pgx.Row) (*models.Template, error) {
	var t models.Template
	err := row.Scan(&t.ID, &t.Name, &t.Type, &t.FilePath, &t.OriginalFilename, &t.FieldMappings, &t.IsActive, &t.MirrorKey, &t.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) query(ctx context.Context, q string, args ...interface{}) ([]models.Template, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// Create inserts t, filling its id and upload date. New templates are active.
func (r *Repository) Create(ctx context.Context, t *models.Template) error {
	const q = `INSERT INTO workshop_templates (template_name, template_type, file_path, original_filename, field_mappings)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, upload_date`
	return r.pool.QueryRow(ctx, q, t.Name, t.Type, t.FilePath, t.OriginalFilename, t.FieldMappings).
		Scan(&t.ID, &t.IsActive, &t.UploadedAt)
}

// List returns all templates, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Template, error) {
	return r.query(ctx, `SELECT `+templateColumns+` FROM workshop_templates ORDER BY upload_date DESC`)
}

// ListActive returns the active templates in upload order, the order materials are generated in.
func (r *Repository) ListActive(ctx context.Context) ([]models.Template, error) {
	return r.query(ctx, `SELECT `+templateColumns+` FROM workshop_templates WHERE is_active ORDER BY upload_date, id`)
}

// GetByID returns a template by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM workshop_templates WHERE id = $1`, id))
}

// Toggle flips the active flag and returns the updated template.
func (r *Repository) Toggle(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx,
		`UPDATE workshop_templates SET is_active = NOT is_active WHERE id = $1 RETURNING `+templateColumns, id))
}

// Delete removes the template row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workshop_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetMirrorKey records where the template file was mirrored in object storage.
func (r *Repository) SetMirrorKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE workshop_templates SET mirror_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountActive returns the number of active templates.
func (r *Repository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM workshop_templates WHERE is_active`).Scan(&n)
	return n, err
}
