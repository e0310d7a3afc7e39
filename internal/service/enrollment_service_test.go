package service

import (
	"context"
	"database/sql"
	"sort"
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

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	created     *models.Enrollment
	updated     *models.Enrollment
	deleted     []string
	createErr   error
	nextID      int
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsByNaturalKey(ctx context.Context, studentCI, subjectCode string, enrolledOn time.Time, excludeID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.ID == excludeID {
			continue
		}
		if e.StudentCI == studentCI && e.SubjectCode == subjectCode && e.EnrolledOn.Equal(enrolledOn) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) FindLatestByPair(ctx context.Context, studentCI, subjectCode string) (*models.Enrollment, error) {
	var matches []models.Enrollment
	for _, e := range m.enrollments {
		if e.StudentCI == studentCI && e.SubjectCode == subjectCode {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return nil, sql.ErrNoRows
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].EnrolledOn.After(matches[j].EnrolledOn) })
	return &matches[0], nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentCI string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	for _, e := range m.enrollments {
		if e.StudentCI == studentCI {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockEnrollmentRepo) ListBySubject(ctx context.Context, subjectCode string) ([]models.Enrollment, error) {
	var list []models.Enrollment
	for _, e := range m.enrollments {
		if e.SubjectCode == subjectCode {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		m.nextID++
		enrollment.ID = "enr-" + time.Now().Format("150405") + "-" + string(rune('a'+m.nextID))
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Update(ctx context.Context, enrollment *models.Enrollment) error {
	if _, ok := m.enrollments[enrollment.ID]; !ok {
		return sql.ErrNoRows
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.updated = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.enrollments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStudentStore struct {
	known map[string]bool
}

func (m *mockStudentStore) Exists(ctx context.Context, ci string) (bool, error) {
	return m.known[ci], nil
}

type mockSubjectStore struct {
	known map[string]bool
}

func (m *mockSubjectStore) Exists(ctx context.Context, code string) (bool, error) {
	return m.known[code], nil
}

func date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func newEnrollmentTestService(repo *mockEnrollmentRepo) *EnrollmentService {
	students := &mockStudentStore{known: map[string]bool{"S1": true}}
	subjects := &mockSubjectStore{known: map[string]bool{"MATH101": true}}
	return NewEnrollmentService(repo, students, subjects, nil, validator.New(), zap.NewNop())
}

func TestEnrollmentServiceCreate(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentTestService(repo)

	enrollment, err := svc.Create(context.Background(), EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")})
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, date("2024-01-10"), enrollment.EnrolledOn)
	assert.NotNil(t, repo.created)
}

func TestEnrollmentServiceCooldown(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")},
	}}
	svc := newEnrollmentTestService(repo)

	_, err := svc.Create(context.Background(), EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-05-01")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCooldownViolation))
	assert.Contains(t, err.Error(), "2024-07-10")

	enrollment, err := svc.Create(context.Background(), EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-07-15")})
	require.NoError(t, err)
	assert.Equal(t, date("2024-07-15"), enrollment.EnrolledOn)
}

func TestEnrollmentServiceCooldownBoundary(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")},
	}}
	svc := newEnrollmentTestService(repo)

	// Exactly six months later is permitted.
	_, err := svc.Create(context.Background(), EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-07-10")})
	require.NoError(t, err)
}

func TestEnrollmentServiceCooldownTracksLatestByDate(t *testing.T) {
	// The newest date governs the window even when an older record was
	// created later.
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2025-01-01")},
		"e2": {ID: "e2", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")},
	}}
	svc := newEnrollmentTestService(repo)

	_, err := svc.Create(context.Background(), EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-08-01")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCooldownViolation))
	assert.Contains(t, err.Error(), "2025-07-01")
}

func TestEnrollmentServiceCreateMissingReference(t *testing.T) {
	svc := newEnrollmentTestService(&mockEnrollmentRepo{})

	_, err := svc.Create(context.Background(), EnrollmentRequest{StudentCI: "ghost", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))

	_, err = svc.Create(context.Background(), EnrollmentRequest{StudentCI: "S1", SubjectCode: "GHOST999", EnrolledOn: date("2024-01-10")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))
}

func TestEnrollmentServiceUpdateDateRegression(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")},
	}}
	svc := newEnrollmentTestService(repo)

	_, err := svc.Update(context.Background(), "e1", EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-05")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDateRegression))
	assert.Nil(t, repo.updated)

	updated, err := svc.Update(context.Background(), "e1", EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-02-01")})
	require.NoError(t, err)
	assert.Equal(t, date("2024-02-01"), updated.EnrolledOn)
}

func TestEnrollmentServiceUpdateSameDate(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")},
	}}
	svc := newEnrollmentTestService(repo)

	updated, err := svc.Update(context.Background(), "e1", EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")})
	require.NoError(t, err)
	assert.Equal(t, date("2024-01-10"), updated.EnrolledOn)
}

func TestEnrollmentServiceDuplicateTriple(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2023-01-10")},
	}}
	svc := newEnrollmentTestService(repo)

	_, err := svc.Create(context.Background(), EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2023-01-10")})
	require.Error(t, err)
	// The exact duplicate date is inside the cooldown window, so the
	// cooldown check fires first; either way the write is refused.
	assert.True(t, appErrors.Is(err, appErrors.ErrCooldownViolation) || appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestEnrollmentServiceCreateUniqueIndexRace(t *testing.T) {
	// The pre-check sees no duplicate, but a concurrent insert wins and
	// the database returns a unique violation on the write itself.
	repo := &mockEnrollmentRepo{createErr: &pq.Error{Code: "23505"}}
	svc := newEnrollmentTestService(repo)

	_, err := svc.Create(context.Background(), EnrollmentRequest{StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestEnrollmentServiceDeleteByPair(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2023-01-10")},
		"e2": {ID: "e2", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")},
	}}
	svc := newEnrollmentTestService(repo)

	require.NoError(t, svc.DeleteByPair(context.Background(), "S1", "MATH101"))
	assert.Equal(t, []string{"e2"}, repo.deleted)
	_, stillThere := repo.enrollments["e1"]
	assert.True(t, stillThere)
}

func TestEnrollmentServiceDeleteByPairNotFound(t *testing.T) {
	svc := newEnrollmentTestService(&mockEnrollmentRepo{})

	err := svc.DeleteByPair(context.Background(), "S1", "MATH101")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEnrollmentServiceGetByIDNotFound(t *testing.T) {
	svc := newEnrollmentTestService(&mockEnrollmentRepo{})

	_, err := svc.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
