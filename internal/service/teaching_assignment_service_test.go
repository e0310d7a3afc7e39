package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]models.TeachingAssignment
	nextID      int
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.TeachingAssignment, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ExistsByNaturalKey(ctx context.Context, subjectCode, teacherCI, excludeID string) (bool, error) {
	for _, a := range m.assignments {
		if a.ID == excludeID {
			continue
		}
		if a.SubjectCode == subjectCode && a.TeacherCI == teacherCI {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssignmentRepo) ListBySubject(ctx context.Context, subjectCode string) ([]models.TeachingAssignment, error) {
	var list []models.TeachingAssignment
	for _, a := range m.assignments {
		if a.SubjectCode == subjectCode {
			list = append(list, a)
		}
	}
	return list, nil
}

func (m *mockAssignmentRepo) ListByTeacher(ctx context.Context, teacherCI string) ([]models.TeachingAssignment, error) {
	var list []models.TeachingAssignment
	for _, a := range m.assignments {
		if a.TeacherCI == teacherCI {
			list = append(list, a)
		}
	}
	return list, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.TeachingAssignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]models.TeachingAssignment)
	}
	if assignment.ID == "" {
		m.nextID++
		assignment.ID = "asg-" + string(rune('a'+m.nextID))
	}
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.TeachingAssignment) error {
	if _, ok := m.assignments[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.assignments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.assignments, id)
	return nil
}

type mockTeacherStore struct {
	known map[string]bool
}

func (m *mockTeacherStore) Exists(ctx context.Context, ci string) (bool, error) {
	return m.known[ci], nil
}

func newAssignmentTestService(repo *mockAssignmentRepo) *TeachingAssignmentService {
	subjects := &mockSubjectStore{known: map[string]bool{"MATH101": true}}
	teachers := &mockTeacherStore{known: map[string]bool{"T1": true, "T2": true}}
	return NewTeachingAssignmentService(repo, subjects, teachers, nil, validator.New(), zap.NewNop())
}

func TestTeachingAssignmentServiceCreate(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentTestService(repo)

	assignment, err := svc.Create(context.Background(), TeachingAssignmentRequest{SubjectCode: "MATH101", TeacherCI: "T1"})
	require.NoError(t, err)
	assert.NotEmpty(t, assignment.ID)
}

func TestTeachingAssignmentServiceDuplicate(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: map[string]models.TeachingAssignment{
		"asg-1": {ID: "asg-1", SubjectCode: "MATH101", TeacherCI: "T1"},
	}}
	svc := newAssignmentTestService(repo)

	_, err := svc.Create(context.Background(), TeachingAssignmentRequest{SubjectCode: "MATH101", TeacherCI: "T1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))

	// A second teacher on the same subject is a different pair.
	assignment, err := svc.Create(context.Background(), TeachingAssignmentRequest{SubjectCode: "MATH101", TeacherCI: "T2"})
	require.NoError(t, err)
	assert.Equal(t, "T2", assignment.TeacherCI)
}

func TestTeachingAssignmentServiceMissingTeacher(t *testing.T) {
	svc := newAssignmentTestService(&mockAssignmentRepo{})

	_, err := svc.Create(context.Background(), TeachingAssignmentRequest{SubjectCode: "MATH101", TeacherCI: "ghost"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))
}

func TestTeachingAssignmentServiceUpdateReassign(t *testing.T) {
	repo := &mockAssignmentRepo{assignments: map[string]models.TeachingAssignment{
		"asg-1": {ID: "asg-1", SubjectCode: "MATH101", TeacherCI: "T1"},
	}}
	svc := newAssignmentTestService(repo)

	assignment, err := svc.Update(context.Background(), "asg-1", TeachingAssignmentRequest{SubjectCode: "MATH101", TeacherCI: "T2"})
	require.NoError(t, err)
	assert.Equal(t, "T2", assignment.TeacherCI)
}
