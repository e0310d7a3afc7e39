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

func TestGradeRepositoryExistsByNaturalKeyIgnoresCase(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM grade_records WHERE student_ci = $1 AND course_id = $2 AND LOWER(evaluation) = LOWER($3) LIMIT 1")).
		WithArgs("S1", int64(1), "MIDTERM").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByNaturalKey(context.Background(), "S1", 1, "MIDTERM", "")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryExistsByNaturalKeyExcludesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM grade_records WHERE student_ci = $1 AND course_id = $2 AND LOWER(evaluation) = LOWER($3) AND id <> $4 LIMIT 1")).
		WithArgs("S1", int64(1), "Midterm", "grd-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsByNaturalKey(context.Background(), "S1", 1, "Midterm", "grd-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grade_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	grade := &models.GradeRecord{StudentCI: "S1", CourseID: 1, Evaluation: "Midterm", Score: 87.5, RecordedOn: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(context.Background(), grade))
	require.NotEmpty(t, grade.ID)
	require.False(t, grade.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
