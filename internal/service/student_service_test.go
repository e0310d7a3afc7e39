package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]*models.Student
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*models.Student)}
}

func (m *mockStudentRepo) List(_ context.Context, _ string, _, _ int) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByCI(_ context.Context, ci string) (*models.Student, error) {
	if s, ok := m.students[ci]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Exists(_ context.Context, ci string) (bool, error) {
	_, ok := m.students[ci]
	return ok, nil
}

func (m *mockStudentRepo) Create(_ context.Context, student *models.Student) error {
	m.students[student.CI] = student
	return nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *models.Student) error {
	if _, ok := m.students[student.CI]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.CI] = student
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, ci string) error {
	if _, ok := m.students[ci]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, ci)
	return nil
}

func studentRequest(ci string) StudentRequest {
	return StudentRequest{
		CI:              ci,
		FirstName:       "Ana",
		LastName:        "Lopez",
		Email:           "ana@uni.edu",
		BirthDate:       date("2000-04-01"),
		RegistrationNum: "R-100",
	}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, nil, nil, nil)

	student, err := svc.Create(context.Background(), studentRequest("S1"))
	require.NoError(t, err)
	require.Equal(t, "S1", student.CI)
	require.Equal(t, time.UTC, student.BirthDate.Location())
}

func TestStudentServiceCreateDuplicateCI(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), studentRequest("S1"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), studentRequest("S1"))
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestStudentServiceCreateInvalidEmail(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), nil, nil, nil)

	req := studentRequest("S1")
	req.Email = "not-an-email"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), nil, nil, nil)

	_, err := svc.GetByCI(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceUpdateKeepsCI(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), studentRequest("S1"))
	require.NoError(t, err)

	req := studentRequest("S1")
	req.FirstName = "Anita"
	updated, err := svc.Update(context.Background(), "S1", req)
	require.NoError(t, err)
	require.Equal(t, "S1", updated.CI)
	require.Equal(t, "Anita", updated.FirstName)
}

func TestStudentServiceDeleteNotFound(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), nil, nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
