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

type mockOfferingRepo struct {
	offerings map[string]models.Offering
	created   *models.Offering
	createErr error
	nextID    int
}

func (m *mockOfferingRepo) FindByID(ctx context.Context, id string) (*models.Offering, error) {
	if o, ok := m.offerings[id]; ok {
		return &o, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOfferingRepo) ExistsByNaturalKey(ctx context.Context, subjectCode string, courseID int64, excludeID string) (bool, error) {
	for _, o := range m.offerings {
		if o.ID == excludeID {
			continue
		}
		if o.SubjectCode == subjectCode && o.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOfferingRepo) ListBySubject(ctx context.Context, subjectCode string) ([]models.Offering, error) {
	var list []models.Offering
	for _, o := range m.offerings {
		if o.SubjectCode == subjectCode {
			list = append(list, o)
		}
	}
	return list, nil
}

func (m *mockOfferingRepo) ListByCourse(ctx context.Context, courseID int64) ([]models.Offering, error) {
	var list []models.Offering
	for _, o := range m.offerings {
		if o.CourseID == courseID {
			list = append(list, o)
		}
	}
	return list, nil
}

func (m *mockOfferingRepo) Create(ctx context.Context, offering *models.Offering) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.offerings == nil {
		m.offerings = make(map[string]models.Offering)
	}
	if offering.ID == "" {
		m.nextID++
		offering.ID = "off-" + string(rune('a'+m.nextID))
	}
	m.offerings[offering.ID] = *offering
	m.created = offering
	return nil
}

func (m *mockOfferingRepo) Update(ctx context.Context, offering *models.Offering) error {
	if _, ok := m.offerings[offering.ID]; !ok {
		return sql.ErrNoRows
	}
	m.offerings[offering.ID] = *offering
	return nil
}

func (m *mockOfferingRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.offerings[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.offerings, id)
	return nil
}

type mockCourseStore struct {
	known map[int64]bool
}

func (m *mockCourseStore) Exists(ctx context.Context, id int64) (bool, error) {
	return m.known[id], nil
}

func newOfferingTestService(repo *mockOfferingRepo) *OfferingService {
	subjects := &mockSubjectStore{known: map[string]bool{"MATH101": true, "PHY201": true}}
	courses := &mockCourseStore{known: map[int64]bool{1: true, 2: true}}
	return NewOfferingService(repo, subjects, courses, nil, validator.New(), zap.NewNop())
}

func TestOfferingServiceCreate(t *testing.T) {
	repo := &mockOfferingRepo{}
	svc := newOfferingTestService(repo)

	offering, err := svc.Create(context.Background(), OfferingRequest{SubjectCode: "MATH101", CourseID: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, offering.ID)
	assert.Equal(t, "MATH101", offering.SubjectCode)
}

func TestOfferingServiceCreateDuplicate(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": {ID: "off-1", SubjectCode: "MATH101", CourseID: 1},
	}}
	svc := newOfferingTestService(repo)

	_, err := svc.Create(context.Background(), OfferingRequest{SubjectCode: "MATH101", CourseID: 1})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestOfferingServiceCreateUniqueIndexRace(t *testing.T) {
	// The pre-check sees no duplicate, but a concurrent insert wins and
	// the database returns a unique violation on the write itself.
	repo := &mockOfferingRepo{createErr: &pq.Error{Code: "23505"}}
	svc := newOfferingTestService(repo)

	_, err := svc.Create(context.Background(), OfferingRequest{SubjectCode: "MATH101", CourseID: 1})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestOfferingServiceCreateMissingReferences(t *testing.T) {
	svc := newOfferingTestService(&mockOfferingRepo{})

	_, err := svc.Create(context.Background(), OfferingRequest{SubjectCode: "GHOST999", CourseID: 1})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))

	_, err = svc.Create(context.Background(), OfferingRequest{SubjectCode: "MATH101", CourseID: 99})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))
}

func TestOfferingServiceUpdateToExistingKey(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": {ID: "off-1", SubjectCode: "MATH101", CourseID: 1},
		"off-2": {ID: "off-2", SubjectCode: "PHY201", CourseID: 2},
	}}
	svc := newOfferingTestService(repo)

	_, err := svc.Update(context.Background(), "off-2", OfferingRequest{SubjectCode: "MATH101", CourseID: 1})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestOfferingServiceUpdateSameKey(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": {ID: "off-1", SubjectCode: "MATH101", CourseID: 1},
	}}
	svc := newOfferingTestService(repo)

	// Re-submitting the current key is a no-op, not a duplicate.
	offering, err := svc.Update(context.Background(), "off-1", OfferingRequest{SubjectCode: "MATH101", CourseID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), offering.CourseID)
}

func TestOfferingServiceDeleteNotFound(t *testing.T) {
	svc := newOfferingTestService(&mockOfferingRepo{})

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
