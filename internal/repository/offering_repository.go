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

const offeringColumns = "id, subject_code, course_id, created_at, updated_at"

// OfferingRepository handles persistence for subject-course offerings.
// The (subject_code, course_id) pair carries a unique index; that index is
// the authoritative guard against concurrent duplicate creates.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository creates a new repository instance.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// FindByID returns an offering by surrogate id.
func (r *OfferingRepository) FindByID(ctx context.Context, id string) (*models.Offering, error) {
	query := fmt.Sprintf("SELECT %s FROM offerings WHERE id = $1", offeringColumns)
	var offering models.Offering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// ExistsByNaturalKey checks for a live offering with the same pair,
// optionally excluding one record (used when updating that record).
func (r *OfferingRepository) ExistsByNaturalKey(ctx context.Context, subjectCode string, courseID int64, excludeID string) (bool, error) {
	query := "SELECT 1 FROM offerings WHERE subject_code = $1 AND course_id = $2"
	args := []interface{}{subjectCode, courseID}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check offering: %w", err)
	}
	return true, nil
}

// ListBySubject returns offerings for a subject.
func (r *OfferingRepository) ListBySubject(ctx context.Context, subjectCode string) ([]models.Offering, error) {
	query := fmt.Sprintf("SELECT %s FROM offerings WHERE subject_code = $1 ORDER BY created_at ASC", offeringColumns)
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list offerings by subject: %w", err)
	}
	return offerings, nil
}

// ListByCourse returns offerings for a course section.
func (r *OfferingRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Offering, error) {
	query := fmt.Sprintf("SELECT %s FROM offerings WHERE course_id = $1 ORDER BY created_at ASC", offeringColumns)
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, courseID); err != nil {
		return nil, fmt.Errorf("list offerings by course: %w", err)
	}
	return offerings, nil
}

// Create persists a new offering.
func (r *OfferingRepository) Create(ctx context.Context, offering *models.Offering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if offering.CreatedAt.IsZero() {
		offering.CreatedAt = now
	}
	offering.UpdatedAt = now
	const query = `INSERT INTO offerings (id, subject_code, course_id, created_at, updated_at)
        VALUES (:id, :subject_code, :course_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

// Update rewrites the natural key of an offering.
func (r *OfferingRepository) Update(ctx context.Context, offering *models.Offering) error {
	offering.UpdatedAt = time.Now().UTC()
	const query = `UPDATE offerings SET subject_code = :subject_code, course_id = :course_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, offering)
	if err != nil {
		return fmt.Errorf("update offering: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the offering permanently.
func (r *OfferingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM offerings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
