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

const gradeColumns = "id, student_ci, course_id, evaluation, score, recorded_on, created_at, updated_at"

// GradeRepository handles persistence for grade records, backed by a
// unique index on (student_ci, course_id, lower(evaluation)).
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new repository instance.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindByID returns a grade record by surrogate id.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.GradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_records WHERE id = $1", gradeColumns)
	var grade models.GradeRecord
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// ExistsByNaturalKey checks for a record with the same triple, comparing
// the evaluation name case-insensitively, optionally excluding one record.
func (r *GradeRepository) ExistsByNaturalKey(ctx context.Context, studentCI string, courseID int64, evaluation string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM grade_records WHERE student_ci = $1 AND course_id = $2 AND LOWER(evaluation) = LOWER($3)"
	args := []interface{}{studentCI, courseID, evaluation}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check grade: %w", err)
	}
	return true, nil
}

// ListByStudent returns grade records for a student.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentCI string) ([]models.GradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_records WHERE student_ci = $1 ORDER BY recorded_on DESC", gradeColumns)
	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, studentCI); err != nil {
		return nil, fmt.Errorf("list grades by student: %w", err)
	}
	return records, nil
}

// ListByCourse returns grade records for a course section.
func (r *GradeRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.GradeRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM grade_records WHERE course_id = $1 ORDER BY recorded_on DESC", gradeColumns)
	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, courseID); err != nil {
		return nil, fmt.Errorf("list grades by course: %w", err)
	}
	return records, nil
}

// Create persists a new grade record.
func (r *GradeRepository) Create(ctx context.Context, grade *models.GradeRecord) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grade_records (id, student_ci, course_id, evaluation, score, recorded_on, created_at, updated_at)
        VALUES (:id, :student_ci, :course_id, :evaluation, :score, :recorded_on, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update rewrites the natural key, score and date of a record.
func (r *GradeRepository) Update(ctx context.Context, grade *models.GradeRecord) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_records SET student_ci = :student_ci, course_id = :course_id, evaluation = :evaluation,
        score = :score, recorded_on = :recorded_on, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, grade)
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the record permanently.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM grade_records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
