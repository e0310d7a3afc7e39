package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/jobs"
	"github.com/campus-core/uni-records-api/pkg/storage"
)

type stubExportStudents struct {
	students []models.Student
	err      error
}

func (s *stubExportStudents) List(_ context.Context, _ string, page, size int) ([]models.Student, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	start := (page - 1) * size
	if start >= len(s.students) {
		return nil, len(s.students), nil
	}
	end := start + size
	if end > len(s.students) {
		end = len(s.students)
	}
	return s.students[start:end], len(s.students), nil
}

type stubExportEnrollments struct {
	enrollments []models.Enrollment
}

func (s *stubExportEnrollments) ListAll(context.Context) ([]models.Enrollment, error) {
	return s.enrollments, nil
}

func newExportTestService(t *testing.T, students *stubExportStudents, enrollments *stubExportEnrollments) *ExportService {
	t.Helper()
	store, err := storage.NewExportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewTokenSigner("test-secret", time.Hour)
	svc := NewExportService(students, enrollments, store, signer, jobs.PoolConfig{
		Workers:     1,
		MaxAttempts: 1,
		RetryDelay:  10 * time.Millisecond,
	}, zap.NewNop())
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func waitForStatus(t *testing.T, svc *ExportService, jobID, status string) *ExportJob {
	t.Helper()
	var job *ExportJob
	require.Eventually(t, func() bool {
		current, err := svc.Status(jobID)
		if err != nil {
			return false
		}
		job = current
		return job.Status == status
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestExportServiceStudentsCSV(t *testing.T) {
	students := &stubExportStudents{students: []models.Student{
		{CI: "S1", FirstName: "Ana", LastName: "Lopez", Email: "ana@uni.edu", BirthDate: date("2000-04-01"), RegistrationNum: "R-100"},
		{CI: "S2", FirstName: "Beto", LastName: "Mora", Email: "beto@uni.edu", BirthDate: date("1999-11-20"), RegistrationNum: "R-101"},
	}}
	svc := newExportTestService(t, students, &stubExportEnrollments{})

	job, err := svc.Request(context.Background(), "students", "csv")
	require.NoError(t, err)
	// The worker may already have picked the job up by the time the
	// snapshot is taken.
	require.Contains(t, []string{ExportStatusPending, ExportStatusCompleted}, job.Status)

	done := waitForStatus(t, svc, job.ID, ExportStatusCompleted)
	require.NotEmpty(t, done.DownloadToken)
	require.False(t, done.ExpiresAt.IsZero())

	path, filename, err := svc.Resolve(done.DownloadToken)
	require.NoError(t, err)
	require.Equal(t, job.ID+".csv", filename)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "ci,first_name,last_name,email,birth_date,registration_num", lines[0])
	require.Contains(t, lines[1], "S1")
	require.Contains(t, lines[1], "2000-04-01")
}

func TestExportServiceEnrollmentsCSV(t *testing.T) {
	enrollments := &stubExportEnrollments{enrollments: []models.Enrollment{
		{ID: "e1", StudentCI: "S1", SubjectCode: "MATH101", EnrolledOn: date("2024-01-10")},
	}}
	svc := newExportTestService(t, &stubExportStudents{}, enrollments)

	job, err := svc.Request(context.Background(), "enrollments", "csv")
	require.NoError(t, err)

	done := waitForStatus(t, svc, job.ID, ExportStatusCompleted)

	path, _, err := svc.Resolve(done.DownloadToken)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "e1,S1,MATH101,2024-01-10")
}

func TestExportServiceRejectsUnknownEntity(t *testing.T) {
	svc := newExportTestService(t, &stubExportStudents{}, &stubExportEnrollments{})

	_, err := svc.Request(context.Background(), "grades", "csv")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Request(context.Background(), "students", "xlsx")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceMarksFailedJobs(t *testing.T) {
	students := &stubExportStudents{err: errors.New("database offline")}
	svc := newExportTestService(t, students, &stubExportEnrollments{})

	job, err := svc.Request(context.Background(), "students", "csv")
	require.NoError(t, err)

	failed := waitForStatus(t, svc, job.ID, ExportStatusFailed)
	require.Contains(t, failed.Error, "database offline")
	require.Empty(t, failed.DownloadToken)
}

func TestExportServiceResolveRejectsBadToken(t *testing.T) {
	svc := newExportTestService(t, &stubExportStudents{}, &stubExportEnrollments{})

	_, _, err := svc.Resolve("not-a-real-token")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestExportServiceStatusUnknownJob(t *testing.T) {
	svc := newExportTestService(t, &stubExportStudents{}, &stubExportEnrollments{})

	_, err := svc.Status("missing")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
