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

const studentColumns = "ci, first_name, last_name, email, birth_date, registration_num, created_at, updated_at"

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new repository instance.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students filtered by an optional search term.
func (r *StudentRepository) List(ctx context.Context, search string, page, size int) ([]models.Student, int, error) {
	base := "FROM students WHERE 1=1"
	var args []interface{}
	if search != "" {
		base += fmt.Sprintf(" AND (LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR ci LIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY last_name ASC, first_name ASC LIMIT %d OFFSET %d", studentColumns, base, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByCI returns a student by national id.
func (r *StudentRepository) FindByCI(ctx context.Context, ci string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE ci = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, ci); err != nil {
		return nil, err
	}
	return &student, nil
}

// Exists checks whether a student with the given CI is registered.
func (r *StudentRepository) Exists(ctx context.Context, ci string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM students WHERE ci = $1 LIMIT 1", ci); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student: %w", err)
	}
	return true, nil
}

// FindForUpdate loads a student inside tx holding a row-level exclusive
// lock until the transaction ends.
func (r *StudentRepository) FindForUpdate(ctx context.Context, tx *sqlx.Tx, ci string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE ci = $1 FOR UPDATE", studentColumns)
	var student models.Student
	if err := tx.GetContext(ctx, &student, query, ci); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (ci, first_name, last_name, email, birth_date, registration_num, created_at, updated_at)
        VALUES (:ci, :first_name, :last_name, :email, :birth_date, :registration_num, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update rewrites the mutable attributes of a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, email = :email,
        birth_date = :birth_date, registration_num = :registration_num, updated_at = :updated_at WHERE ci = :ci`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the student permanently.
func (r *StudentRepository) Delete(ctx context.Context, ci string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE ci = $1", ci)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
