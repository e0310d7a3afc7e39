package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campus-core/uni-records-api/internal/models"
)

func enrollmentRows(id string, enrolledOn time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_ci", "subject_code", "enrolled_on", "created_at", "updated_at"}).
		AddRow(id, "S1", "MATH101", enrolledOn, time.Now(), time.Now())
}

func TestEnrollmentRepositoryFindLatestByPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	latest := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_ci, subject_code, enrolled_on, created_at, updated_at FROM enrollments WHERE student_ci = $1 AND subject_code = $2 ORDER BY enrolled_on DESC LIMIT 1")).
		WithArgs("S1", "MATH101").
		WillReturnRows(enrollmentRows("e2", latest))

	enrollment, err := repo.FindLatestByPair(context.Background(), "S1", "MATH101")
	require.NoError(t, err)
	require.Equal(t, "e2", enrollment.ID)
	require.True(t, enrollment.EnrolledOn.Equal(latest))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsByNaturalKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	enrolledOn := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_ci = $1 AND subject_code = $2 AND enrolled_on = $3 LIMIT 1")).
		WithArgs("S1", "MATH101", enrolledOn).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByNaturalKey(context.Background(), "S1", "MATH101", enrolledOn, "")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsByNaturalKeyExcludesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	enrolledOn := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_ci = $1 AND subject_code = $2 AND enrolled_on = $3 AND id <> $4 LIMIT 1")).
		WithArgs("S1", "MATH101", enrolledOn, "e1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByNaturalKey(context.Background(), "S1", "MATH101", enrolledOn, "e1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.False(t, enrollment.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStudentOrdersByDateDesc(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_ci", "subject_code", "enrolled_on", "created_at", "updated_at"}).
		AddRow("e2", "S1", "MATH101", time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), time.Now(), time.Now()).
		AddRow("e1", "S1", "MATH101", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_ci, subject_code, enrolled_on, created_at, updated_at FROM enrollments WHERE student_ci = $1 ORDER BY enrolled_on DESC")).
		WithArgs("S1").
		WillReturnRows(rows)

	enrollments, err := repo.ListByStudent(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	require.Equal(t, "e2", enrollments[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
