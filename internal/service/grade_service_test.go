package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type mockGradeRepo struct {
	grades    map[string]models.GradeRecord
	createErr error
	nextID    int
}

func (m *mockGradeRepo) FindByID(ctx context.Context, id string) (*models.GradeRecord, error) {
	if g, ok := m.grades[id]; ok {
		return &g, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeRepo) ExistsByNaturalKey(ctx context.Context, studentCI string, courseID int64, evaluation string, excludeID string) (bool, error) {
	for _, g := range m.grades {
		if g.ID == excludeID {
			continue
		}
		if g.StudentCI == studentCI && g.CourseID == courseID && strings.EqualFold(g.Evaluation, evaluation) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGradeRepo) ListByStudent(ctx context.Context, studentCI string) ([]models.GradeRecord, error) {
	var list []models.GradeRecord
	for _, g := range m.grades {
		if g.StudentCI == studentCI {
			list = append(list, g)
		}
	}
	return list, nil
}

func (m *mockGradeRepo) ListByCourse(ctx context.Context, courseID int64) ([]models.GradeRecord, error) {
	var list []models.GradeRecord
	for _, g := range m.grades {
		if g.CourseID == courseID {
			list = append(list, g)
		}
	}
	return list, nil
}

func (m *mockGradeRepo) Create(ctx context.Context, grade *models.GradeRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.grades == nil {
		m.grades = make(map[string]models.GradeRecord)
	}
	if grade.ID == "" {
		m.nextID++
		grade.ID = "grd-" + string(rune('a'+m.nextID))
	}
	m.grades[grade.ID] = *grade
	return nil
}

func (m *mockGradeRepo) Update(ctx context.Context, grade *models.GradeRecord) error {
	if _, ok := m.grades[grade.ID]; !ok {
		return sql.ErrNoRows
	}
	m.grades[grade.ID] = *grade
	return nil
}

func (m *mockGradeRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.grades[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.grades, id)
	return nil
}

func newGradeTestService(repo *mockGradeRepo) *GradeService {
	students := &mockStudentStore{known: map[string]bool{"S1": true, "S2": true}}
	courses := &mockCourseStore{known: map[int64]bool{1: true, 2: true}}
	return NewGradeService(repo, students, courses, nil, validator.New(), zap.NewNop())
}

func gradeRequest(score float64) GradeRequest {
	return GradeRequest{
		StudentCI:  "S1",
		CourseID:   1,
		Evaluation: "Midterm",
		Score:      score,
		RecordedOn: date("2024-03-15"),
	}
}

func TestGradeServiceCreate(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeTestService(repo)

	grade, err := svc.Create(context.Background(), gradeRequest(87.5))
	require.NoError(t, err)
	assert.NotEmpty(t, grade.ID)
	assert.Equal(t, 87.5, grade.Score)
	assert.Equal(t, time.UTC, grade.RecordedOn.Location())
}

func TestGradeServiceCreateScoreOutOfRange(t *testing.T) {
	svc := newGradeTestService(&mockGradeRepo{})

	_, err := svc.Create(context.Background(), gradeRequest(100.5))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), gradeRequest(-1))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGradeServiceCreateFutureDate(t *testing.T) {
	svc := newGradeTestService(&mockGradeRepo{})

	req := gradeRequest(90)
	req.RecordedOn = time.Now().AddDate(0, 0, 2)
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGradeServiceCreateDuplicate(t *testing.T) {
	repo := &mockGradeRepo{grades: map[string]models.GradeRecord{
		"grd-1": {ID: "grd-1", StudentCI: "S1", CourseID: 1, Evaluation: "Midterm", Score: 70},
	}}
	svc := newGradeTestService(repo)

	_, err := svc.Create(context.Background(), gradeRequest(88))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestGradeServiceCreateDuplicateIgnoresEvaluationCase(t *testing.T) {
	repo := &mockGradeRepo{grades: map[string]models.GradeRecord{
		"grd-1": {ID: "grd-1", StudentCI: "S1", CourseID: 1, Evaluation: "MIDTERM", Score: 70},
	}}
	svc := newGradeTestService(repo)

	_, err := svc.Create(context.Background(), gradeRequest(88))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestGradeServiceCreateUniqueIndexRace(t *testing.T) {
	// The pre-check sees no duplicate, but a concurrent insert wins and
	// the database returns a unique violation on the write itself.
	repo := &mockGradeRepo{createErr: &pq.Error{Code: "23505"}}
	svc := newGradeTestService(repo)

	_, err := svc.Create(context.Background(), gradeRequest(88))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestGradeServiceCreateMissingReferences(t *testing.T) {
	svc := newGradeTestService(&mockGradeRepo{})

	req := gradeRequest(80)
	req.StudentCI = "GHOST"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))

	req = gradeRequest(80)
	req.CourseID = 99
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))
}

func TestGradeServiceUpdateSameEvaluationDifferentCase(t *testing.T) {
	repo := &mockGradeRepo{grades: map[string]models.GradeRecord{
		"grd-1": {ID: "grd-1", StudentCI: "S1", CourseID: 1, Evaluation: "Midterm", Score: 70, RecordedOn: date("2024-03-15")},
	}}
	svc := newGradeTestService(repo)

	// Re-casing the evaluation name keeps the same natural key, so the
	// score update goes through.
	req := gradeRequest(95)
	req.Evaluation = "midterm"
	grade, err := svc.Update(context.Background(), "grd-1", req)
	require.NoError(t, err)
	assert.Equal(t, 95.0, grade.Score)
}

func TestGradeServiceUpdateToExistingKey(t *testing.T) {
	repo := &mockGradeRepo{grades: map[string]models.GradeRecord{
		"grd-1": {ID: "grd-1", StudentCI: "S1", CourseID: 1, Evaluation: "Midterm", Score: 70, RecordedOn: date("2024-03-15")},
		"grd-2": {ID: "grd-2", StudentCI: "S1", CourseID: 1, Evaluation: "Final", Score: 80, RecordedOn: date("2024-06-20")},
	}}
	svc := newGradeTestService(repo)

	req := gradeRequest(80)
	req.Evaluation = "Final"
	_, err := svc.Update(context.Background(), "grd-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestGradeServiceDeleteNotFound(t *testing.T) {
	svc := newGradeTestService(&mockGradeRepo{})

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
