package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type mockPrerequisiteRepo struct {
	relations map[string]models.Prerequisite
	createErr error
	nextID    int
}

func (m *mockPrerequisiteRepo) FindByID(ctx context.Context, id string) (*models.Prerequisite, error) {
	if p, ok := m.relations[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPrerequisiteRepo) ExistsByNaturalKey(ctx context.Context, subjectCode, prerequisiteCode, excludeID string) (bool, error) {
	for _, p := range m.relations {
		if p.ID == excludeID {
			continue
		}
		if p.SubjectCode == subjectCode && p.PrerequisiteCode == prerequisiteCode {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPrerequisiteRepo) ListBySubject(ctx context.Context, subjectCode string) ([]models.Prerequisite, error) {
	var list []models.Prerequisite
	for _, p := range m.relations {
		if p.SubjectCode == subjectCode {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *mockPrerequisiteRepo) ListDependents(ctx context.Context, prerequisiteCode string) ([]models.Prerequisite, error) {
	var list []models.Prerequisite
	for _, p := range m.relations {
		if p.PrerequisiteCode == prerequisiteCode {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *mockPrerequisiteRepo) Create(ctx context.Context, prerequisite *models.Prerequisite) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.relations == nil {
		m.relations = make(map[string]models.Prerequisite)
	}
	if prerequisite.ID == "" {
		m.nextID++
		prerequisite.ID = "pre-" + string(rune('a'+m.nextID))
	}
	m.relations[prerequisite.ID] = *prerequisite
	return nil
}

func (m *mockPrerequisiteRepo) Update(ctx context.Context, prerequisite *models.Prerequisite) error {
	if _, ok := m.relations[prerequisite.ID]; !ok {
		return sql.ErrNoRows
	}
	m.relations[prerequisite.ID] = *prerequisite
	return nil
}

func (m *mockPrerequisiteRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.relations[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.relations, id)
	return nil
}

func newPrerequisiteTestService(repo *mockPrerequisiteRepo) *PrerequisiteService {
	subjects := &mockSubjectStore{known: map[string]bool{"MATH101": true, "MATH201": true, "PHY201": true}}
	return NewPrerequisiteService(repo, subjects, nil, validator.New(), zap.NewNop())
}

func TestPrerequisiteServiceCreate(t *testing.T) {
	repo := &mockPrerequisiteRepo{}
	svc := newPrerequisiteTestService(repo)

	relation, err := svc.Create(context.Background(), PrerequisiteRequest{SubjectCode: "MATH201", PrerequisiteCode: "MATH101"})
	require.NoError(t, err)
	assert.NotEmpty(t, relation.ID)
	assert.Equal(t, "MATH201", relation.SubjectCode)
	assert.Equal(t, "MATH101", relation.PrerequisiteCode)
}

func TestPrerequisiteServiceCreateSelfReference(t *testing.T) {
	repo := &mockPrerequisiteRepo{}
	svc := newPrerequisiteTestService(repo)

	_, err := svc.Create(context.Background(), PrerequisiteRequest{SubjectCode: "MATH101", PrerequisiteCode: "MATH101"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestPrerequisiteServiceCreateDuplicate(t *testing.T) {
	repo := &mockPrerequisiteRepo{relations: map[string]models.Prerequisite{
		"pre-1": {ID: "pre-1", SubjectCode: "MATH201", PrerequisiteCode: "MATH101"},
	}}
	svc := newPrerequisiteTestService(repo)

	_, err := svc.Create(context.Background(), PrerequisiteRequest{SubjectCode: "MATH201", PrerequisiteCode: "MATH101"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestPrerequisiteServiceCreateUniqueIndexRace(t *testing.T) {
	// The pre-check sees no duplicate, but a concurrent insert wins and
	// the database returns a unique violation on the write itself.
	repo := &mockPrerequisiteRepo{createErr: &pq.Error{Code: "23505"}}
	svc := newPrerequisiteTestService(repo)

	_, err := svc.Create(context.Background(), PrerequisiteRequest{SubjectCode: "MATH201", PrerequisiteCode: "MATH101"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestPrerequisiteServiceCreateMissingReferences(t *testing.T) {
	svc := newPrerequisiteTestService(&mockPrerequisiteRepo{})

	_, err := svc.Create(context.Background(), PrerequisiteRequest{SubjectCode: "GHOST999", PrerequisiteCode: "MATH101"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))

	_, err = svc.Create(context.Background(), PrerequisiteRequest{SubjectCode: "MATH201", PrerequisiteCode: "GHOST999"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))
}

func TestPrerequisiteServiceUpdateToExistingKey(t *testing.T) {
	repo := &mockPrerequisiteRepo{relations: map[string]models.Prerequisite{
		"pre-1": {ID: "pre-1", SubjectCode: "MATH201", PrerequisiteCode: "MATH101"},
		"pre-2": {ID: "pre-2", SubjectCode: "PHY201", PrerequisiteCode: "MATH101"},
	}}
	svc := newPrerequisiteTestService(repo)

	_, err := svc.Update(context.Background(), "pre-2", PrerequisiteRequest{SubjectCode: "MATH201", PrerequisiteCode: "MATH101"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestPrerequisiteServiceUpdateToSelfReference(t *testing.T) {
	repo := &mockPrerequisiteRepo{relations: map[string]models.Prerequisite{
		"pre-1": {ID: "pre-1", SubjectCode: "MATH201", PrerequisiteCode: "MATH101"},
	}}
	svc := newPrerequisiteTestService(repo)

	_, err := svc.Update(context.Background(), "pre-1", PrerequisiteRequest{SubjectCode: "MATH201", PrerequisiteCode: "MATH201"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestPrerequisiteServiceListDependents(t *testing.T) {
	repo := &mockPrerequisiteRepo{relations: map[string]models.Prerequisite{
		"pre-1": {ID: "pre-1", SubjectCode: "MATH201", PrerequisiteCode: "MATH101"},
		"pre-2": {ID: "pre-2", SubjectCode: "PHY201", PrerequisiteCode: "MATH101"},
	}}
	svc := newPrerequisiteTestService(repo)

	dependents, err := svc.ListDependents(context.Background(), "MATH101")
	require.NoError(t, err)
	assert.Len(t, dependents, 2)
}

func TestPrerequisiteServiceDeleteNotFound(t *testing.T) {
	svc := newPrerequisiteTestService(&mockPrerequisiteRepo{})

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
