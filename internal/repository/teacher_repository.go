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

const teacherColumns = "ci, first_name, last_name, email, department, employee_num, created_at, updated_at"

// TeacherRepository handles persistence for teaching staff.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new repository instance.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers filtered by an optional search term or department.
func (r *TeacherRepository) List(ctx context.Context, search, department string, page, size int) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var args []interface{}
	if search != "" {
		base += fmt.Sprintf(" AND (LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR ci LIKE $%d)", len(args)+1, len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	if department != "" {
		base += fmt.Sprintf(" AND department = $%d", len(args)+1)
		args = append(args, department)
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY last_name ASC, first_name ASC LIMIT %d OFFSET %d", teacherColumns, base, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByCI returns a teacher by national id.
func (r *TeacherRepository) FindByCI(ctx context.Context, ci string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE ci = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, ci); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Exists checks whether a teacher with the given CI is registered.
func (r *TeacherRepository) Exists(ctx context.Context, ci string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM teachers WHERE ci = $1 LIMIT 1", ci); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher: %w", err)
	}
	return true, nil
}

// FindForUpdate loads a teacher inside tx holding a row-level exclusive
// lock until the transaction ends.
func (r *TeacherRepository) FindForUpdate(ctx context.Context, tx *sqlx.Tx, ci string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE ci = $1 FOR UPDATE", teacherColumns)
	var teacher models.Teacher
	if err := tx.GetContext(ctx, &teacher, query, ci); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create persists a new teacher.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (ci, first_name, last_name, email, department, employee_num, created_at, updated_at)
        VALUES (:ci, :first_name, :last_name, :email, :department, :employee_num, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update rewrites the mutable attributes of a teacher.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET first_name = :first_name, last_name = :last_name, email = :email,
        department = :department, employee_num = :employee_num, updated_at = :updated_at WHERE ci = :ci`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the teacher permanently.
func (r *TeacherRepository) Delete(ctx context.Context, ci string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM teachers WHERE ci = $1", ci)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
