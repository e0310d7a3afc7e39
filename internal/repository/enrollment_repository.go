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

const enrollmentColumns = "id, student_ci, subject_code, enrolled_on, created_at, updated_at"

// EnrollmentRepository handles persistence for enrollments, backed by a
// unique index on (student_ci, subject_code, enrolled_on).
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by surrogate id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and subject names.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_ci, e.subject_code, e.enrolled_on, e.created_at, e.updated_at,
        s.first_name || ' ' || s.last_name AS student_name, m.name AS subject_name
        FROM enrollments e
        LEFT JOIN students s ON s.ci = e.student_ci
        LEFT JOIN subjects m ON m.code = e.subject_code
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByNaturalKey checks for a live enrollment with the same triple,
// optionally excluding one record.
func (r *EnrollmentRepository) ExistsByNaturalKey(ctx context.Context, studentCI, subjectCode string, enrolledOn time.Time, excludeID string) (bool, error) {
	query := "SELECT 1 FROM enrollments WHERE student_ci = $1 AND subject_code = $2 AND enrolled_on = $3"
	args := []interface{}{studentCI, subjectCode, enrolledOn}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// FindLatestByPair returns the most recent enrollment for a student-subject
// pair ordered by enrollment date, or sql.ErrNoRows when the pair has none.
// "Most recent" is by date value, not creation order.
func (r *EnrollmentRepository) FindLatestByPair(ctx context.Context, studentCI, subjectCode string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_ci = $1 AND subject_code = $2 ORDER BY enrolled_on DESC LIMIT 1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentCI, subjectCode); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListAll returns every enrollment, newest enrollment date first.
func (r *EnrollmentRepository) ListAll(ctx context.Context) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments ORDER BY enrolled_on DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns enrollments for a student.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentCI string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_ci = $1 ORDER BY enrolled_on DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentCI); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

// ListBySubject returns enrollments for a subject.
func (r *EnrollmentRepository) ListBySubject(ctx context.Context, subjectCode string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE subject_code = $1 ORDER BY enrolled_on DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, subjectCode); err != nil {
		return nil, fmt.Errorf("list enrollments by subject: %w", err)
	}
	return enrollments, nil
}

// Create persists a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_ci, subject_code, enrolled_on, created_at, updated_at)
        VALUES (:id, :student_ci, :subject_code, :enrolled_on, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update rewrites the natural key of an enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET student_ci = :student_ci, subject_code = :subject_code,
        enrolled_on = :enrolled_on, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, enrollment)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the enrollment permanently.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM enrollments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
