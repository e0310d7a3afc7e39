package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type mockAttendanceRepo struct {
	records map[string]models.Attendance
	created *models.Attendance
	nextID  int
}

func (m *mockAttendanceRepo) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	if a, ok := m.records[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) ExistsByNaturalKey(ctx context.Context, studentCI string, courseID int64, date time.Time, excludeID string) (bool, error) {
	for _, a := range m.records {
		if a.ID == excludeID {
			continue
		}
		if a.StudentCI == studentCI && a.CourseID == courseID && a.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAttendanceRepo) ListByStudent(ctx context.Context, studentCI string) ([]models.Attendance, error) {
	var list []models.Attendance
	for _, a := range m.records {
		if a.StudentCI == studentCI {
			list = append(list, a)
		}
	}
	return list, nil
}

func (m *mockAttendanceRepo) ListByCourse(ctx context.Context, courseID int64) ([]models.Attendance, error) {
	var list []models.Attendance
	for _, a := range m.records {
		if a.CourseID == courseID {
			list = append(list, a)
		}
	}
	return list, nil
}

func (m *mockAttendanceRepo) Create(ctx context.Context, attendance *models.Attendance) error {
	if m.records == nil {
		m.records = make(map[string]models.Attendance)
	}
	if attendance.ID == "" {
		m.nextID++
		attendance.ID = "att-" + string(rune('a'+m.nextID))
	}
	m.records[attendance.ID] = *attendance
	m.created = attendance
	return nil
}

func (m *mockAttendanceRepo) Update(ctx context.Context, attendance *models.Attendance) error {
	if _, ok := m.records[attendance.ID]; !ok {
		return sql.ErrNoRows
	}
	m.records[attendance.ID] = *attendance
	return nil
}

func (m *mockAttendanceRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.records, id)
	return nil
}

func newAttendanceTestService(repo *mockAttendanceRepo) *AttendanceService {
	students := &mockStudentStore{known: map[string]bool{"S1": true}}
	courses := &mockCourseStore{known: map[int64]bool{1: true}}
	return NewAttendanceService(repo, students, courses, nil, validator.New(), zap.NewNop())
}

func TestAttendanceServiceCreateNormalizesDate(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newAttendanceTestService(repo)

	noon := time.Date(2024, 3, 5, 12, 30, 45, 0, time.FixedZone("UTC-4", -4*3600))
	record, err := svc.Create(context.Background(), AttendanceRequest{StudentCI: "S1", CourseID: 1, Date: noon, Present: true})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), record.Date)
	assert.True(t, record.Present)
}

func TestAttendanceServiceDuplicateTriple(t *testing.T) {
	repo := &mockAttendanceRepo{records: map[string]models.Attendance{
		"att-1": {ID: "att-1", StudentCI: "S1", CourseID: 1, Date: date("2024-03-05")},
	}}
	svc := newAttendanceTestService(repo)

	_, err := svc.Create(context.Background(), AttendanceRequest{StudentCI: "S1", CourseID: 1, Date: date("2024-03-05")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateAssociation))
}

func TestAttendanceServiceSameDateDifferentCourse(t *testing.T) {
	repo := &mockAttendanceRepo{records: map[string]models.Attendance{
		"att-1": {ID: "att-1", StudentCI: "S1", CourseID: 2, Date: date("2024-03-05")},
	}}
	svc := newAttendanceTestService(repo)

	record, err := svc.Create(context.Background(), AttendanceRequest{StudentCI: "S1", CourseID: 1, Date: date("2024-03-05")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.CourseID)
}

func TestAttendanceServiceCreateMissingReference(t *testing.T) {
	svc := newAttendanceTestService(&mockAttendanceRepo{})

	_, err := svc.Create(context.Background(), AttendanceRequest{StudentCI: "ghost", CourseID: 1, Date: date("2024-03-05")})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrReferenceNotFound))
}

func TestAttendanceServiceUpdatePresenceOnly(t *testing.T) {
	repo := &mockAttendanceRepo{records: map[string]models.Attendance{
		"att-1": {ID: "att-1", StudentCI: "S1", CourseID: 1, Date: date("2024-03-05"), Present: false},
	}}
	svc := newAttendanceTestService(repo)

	record, err := svc.Update(context.Background(), "att-1", AttendanceRequest{StudentCI: "S1", CourseID: 1, Date: date("2024-03-05"), Present: true})
	require.NoError(t, err)
	assert.True(t, record.Present)
}
