package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-core/uni-records-api/internal/models"
)

const prerequisiteColumns = "id, subject_code, prerequisite_code, created_at, updated_at"

// PrerequisiteRepository handles persistence for subject prerequisites.
// The (subject_code, prerequisite_code) pair carries a unique index.
type PrerequisiteRepository struct {
	db *sqlx.DB
}

// NewPrerequisiteRepository creates a new repository instance.
func NewPrerequisiteRepository(db *sqlx.DB) *PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

// FindByID returns a prerequisite relation by surrogate id.
func (r *PrerequisiteRepository) FindByID(ctx context.Context, id string) (*models.Prerequisite, error) {
	query := fmt.Sprintf("SELECT %s FROM subject_prerequisites WHERE id = $1", prerequisiteColumns)
	var prerequisite models.Prerequisite
	if err := r.db.GetContext(ctx, &prerequisite, query, id); err != nil {
		return nil, err
	}
	return &prerequisite, nil
}

// ExistsByNaturalKey checks for a live relation with the same pair,
// optionally excluding one record (used when updating that record).
func (r *PrerequisiteRepository) ExistsByNaturalKey(ctx context.Context, subjectCode, prerequisiteCode, excludeID string) (bool, error) {
	query := "SELECT 1 FROM subject_prerequisites WHERE subject_code = $1 AND prerequisite_code = $2"
	args := []interface{}{subjectCode, prerequisiteCode}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check prerequisite: %w", err)
	}
	return true, nil
}

// ListBySubject returns the prerequisites of a subject.
func (r *PrerequisiteRepository) ListBySubject(ctx context.Context, subjectCode string) ([]models.Prerequisite, error) {
	query := fmt.Sprintf("SELECT %s FROM subject_prerequisites WHERE subject_code = $1 ORDER BY created_at ASC", prerequisiteColumns)
	var prerequisites []models.Prerequisite
	if err := r.db.SelectContext(ctx, &prerequisites, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list prerequisites by subject: %w", err)
	}
	return prerequisites, nil
}

// ListDependents returns the relations where a subject serves as the
// prerequisite.
func (r *PrerequisiteRepository) ListDependents(ctx context.Context, prerequisiteCode string) ([]models.Prerequisite, error) {
	query := fmt.Sprintf("SELECT %s FROM subject_prerequisites WHERE prerequisite_code = $1 ORDER BY created_at ASC", prerequisiteColumns)
	var prerequisites []models.Prerequisite
	if err := r.db.SelectContext(ctx, &prerequisites, query, prerequisiteCode); err != nil {
		return nil, fmt.Errorf("list prerequisite dependents: %w", err)
	}
	return prerequisites, nil
}

// Create persists a new prerequisite relation.
func (r *PrerequisiteRepository) Create(ctx context.Context, prerequisite *models.Prerequisite) error {
	if prerequisite.ID == "" {
		prerequisite.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if prerequisite.CreatedAt.IsZero() {
		prerequisite.CreatedAt = now
	}
	prerequisite.UpdatedAt = now
	const query = `INSERT INTO subject_prerequisites (id, subject_code, prerequisite_code, created_at, updated_at)
        VALUES (:id, :subject_code, :prerequisite_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, prerequisite); err != nil {
		return fmt.Errorf("create prerequisite: %w", err)
	}
	return nil
}

// Update rewrites the natural key of a prerequisite relation.
func (r *PrerequisiteRepository) Update(ctx context.Context, prerequisite *models.Prerequisite) error {
	prerequisite.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subject_prerequisites SET subject_code = :subject_code,
        prerequisite_code = :prerequisite_code, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, prerequisite)
	if err != nil {
		return fmt.Errorf("update prerequisite: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the prerequisite relation permanently.
func (r *PrerequisiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM subject_prerequisites WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete prerequisite: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
