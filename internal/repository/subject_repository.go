package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campus-core/uni-records-api/internal/models"
)

const subjectColumns = "code, name, description, created_at, updated_at"

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects filtered by an optional search term.
func (r *SubjectRepository) List(ctx context.Context, search string, page, size int) ([]models.Subject, int, error) {
	base := "FROM subjects WHERE 1=1"
	var args []interface{}
	if search != "" {
		base += fmt.Sprintf(" AND (LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY code ASC LIMIT %d OFFSET %d", subjectColumns, base, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// FindByCode returns a subject by its unique code.
func (r *SubjectRepository) FindByCode(ctx context.Context, code string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE code = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, code); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Exists checks whether a subject code is registered.
func (r *SubjectRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM subjects WHERE code = $1 LIMIT 1", code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject: %w", err)
	}
	return true, nil
}

// FindForUpdate loads a subject inside tx holding a row-level exclusive
// lock until the transaction ends.
func (r *SubjectRepository) FindForUpdate(ctx context.Context, tx *sqlx.Tx, code string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE code = $1 FOR UPDATE", subjectColumns)
	var subject models.Subject
	if err := tx.GetContext(ctx, &subject, query, code); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create persists a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (code, name, description, created_at, updated_at)
        VALUES (:code, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update rewrites the mutable attributes of a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, description = :description, updated_at = :updated_at WHERE code = :code`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the subject permanently.
func (r *SubjectRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM subjects WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
