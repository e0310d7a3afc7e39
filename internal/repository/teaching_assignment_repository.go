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

const teachingAssignmentColumns = "id, subject_code, teacher_ci, created_at, updated_at"

// TeachingAssignmentRepository handles persistence for subject-teacher
// assignments, backed by a unique index on (subject_code, teacher_ci).
type TeachingAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeachingAssignmentRepository creates a new repository instance.
func NewTeachingAssignmentRepository(db *sqlx.DB) *TeachingAssignmentRepository {
	return &TeachingAssignmentRepository{db: db}
}

// FindByID returns an assignment by surrogate id.
func (r *TeachingAssignmentRepository) FindByID(ctx context.Context, id string) (*models.TeachingAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM teaching_assignments WHERE id = $1", teachingAssignmentColumns)
	var assignment models.TeachingAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ExistsByNaturalKey checks for a live assignment with the same pair,
// optionally excluding one record.
func (r *TeachingAssignmentRepository) ExistsByNaturalKey(ctx context.Context, subjectCode, teacherCI, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teaching_assignments WHERE subject_code = $1 AND teacher_ci = $2"
	args := []interface{}{subjectCode, teacherCI}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teaching assignment: %w", err)
	}
	return true, nil
}

// ListBySubject returns assignments for a subject.
func (r *TeachingAssignmentRepository) ListBySubject(ctx context.Context, subjectCode string) ([]models.TeachingAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM teaching_assignments WHERE subject_code = $1 ORDER BY created_at ASC", teachingAssignmentColumns)
	var assignments []models.TeachingAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list assignments by subject: %w", err)
	}
	return assignments, nil
}

// ListByTeacher returns assignments for a teacher.
func (r *TeachingAssignmentRepository) ListByTeacher(ctx context.Context, teacherCI string) ([]models.TeachingAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM teaching_assignments WHERE teacher_ci = $1 ORDER BY created_at ASC", teachingAssignmentColumns)
	var assignments []models.TeachingAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherCI); err != nil {
		return nil, fmt.Errorf("list assignments by teacher: %w", err)
	}
	return assignments, nil
}

// Create persists a new assignment.
func (r *TeachingAssignmentRepository) Create(ctx context.Context, assignment *models.TeachingAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO teaching_assignments (id, subject_code, teacher_ci, created_at, updated_at)
        VALUES (:id, :subject_code, :teacher_ci, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create teaching assignment: %w", err)
	}
	return nil
}

// Update rewrites the natural key of an assignment.
func (r *TeachingAssignmentRepository) Update(ctx context.Context, assignment *models.TeachingAssignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teaching_assignments SET subject_code = :subject_code, teacher_ci = :teacher_ci, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update teaching assignment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the assignment permanently.
func (r *TeachingAssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM teaching_assignments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete teaching assignment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
