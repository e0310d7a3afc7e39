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

const attendanceColumns = "id, student_ci, course_id, date, present, created_at, updated_at"

// AttendanceRepository handles persistence for attendance records, backed
// by a unique index on (student_ci, course_id, date).
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new repository instance.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindByID returns an attendance record by surrogate id.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	query := fmt.Sprintf("SELECT %s FROM attendances WHERE id = $1", attendanceColumns)
	var attendance models.Attendance
	if err := r.db.GetContext(ctx, &attendance, query, id); err != nil {
		return nil, err
	}
	return &attendance, nil
}

// ExistsByNaturalKey checks for a live record with the same triple,
// optionally excluding one record.
func (r *AttendanceRepository) ExistsByNaturalKey(ctx context.Context, studentCI string, courseID int64, date time.Time, excludeID string) (bool, error) {
	query := "SELECT 1 FROM attendances WHERE student_ci = $1 AND course_id = $2 AND date = $3"
	args := []interface{}{studentCI, courseID, date}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return true, nil
}

// ListByStudent returns attendance records for a student.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentCI string) ([]models.Attendance, error) {
	query := fmt.Sprintf("SELECT %s FROM attendances WHERE student_ci = $1 ORDER BY date DESC", attendanceColumns)
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, studentCI); err != nil {
		return nil, fmt.Errorf("list attendance by student: %w", err)
	}
	return records, nil
}

// ListByCourse returns attendance records for a course section.
func (r *AttendanceRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Attendance, error) {
	query := fmt.Sprintf("SELECT %s FROM attendances WHERE course_id = $1 ORDER BY date DESC", attendanceColumns)
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, courseID); err != nil {
		return nil, fmt.Errorf("list attendance by course: %w", err)
	}
	return records, nil
}

// Create persists a new attendance record.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if attendance.CreatedAt.IsZero() {
		attendance.CreatedAt = now
	}
	attendance.UpdatedAt = now
	const query = `INSERT INTO attendances (id, student_ci, course_id, date, present, created_at, updated_at)
        VALUES (:id, :student_ci, :course_id, :date, :present, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// Update rewrites the natural key and presence flag of a record.
func (r *AttendanceRepository) Update(ctx context.Context, attendance *models.Attendance) error {
	attendance.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendances SET student_ci = :student_ci, course_id = :course_id, date = :date,
        present = :present, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, attendance)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the record permanently.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM attendances WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
