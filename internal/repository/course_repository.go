package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campus-core/uni-records-api/internal/models"
)

const courseColumns = "id, weekday, time_slot, term, year, created_at, updated_at"

// CourseRepository handles persistence for course sections. Courses use a
// database-assigned integer surrogate id.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses filtered by term and year.
func (r *CourseRepository) List(ctx context.Context, term string, year, page, size int) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var args []interface{}
	if term != "" {
		base += fmt.Sprintf(" AND term = $%d", len(args)+1)
		args = append(args, term)
	}
	if year > 0 {
		base += fmt.Sprintf(" AND year = $%d", len(args)+1)
		args = append(args, year)
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY year DESC, term ASC, id ASC LIMIT %d OFFSET %d", courseColumns, base, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by surrogate id.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Exists checks whether a course with the given id is registered.
func (r *CourseRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM courses WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course: %w", err)
	}
	return true, nil
}

// FindForUpdate loads a course inside tx holding a row-level exclusive
// lock until the transaction ends.
func (r *CourseRepository) FindForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1 FOR UPDATE", courseColumns)
	var course models.Course
	if err := tx.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create persists a new course and fills in the assigned id.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (weekday, time_slot, term, year, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &course.ID, query, course.Weekday, course.TimeSlot, course.Term, course.Year, course.CreatedAt, course.UpdatedAt); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update rewrites the mutable attributes of a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET weekday = :weekday, time_slot = :time_slot, term = :term, year = :year,
        updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the course permanently.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
