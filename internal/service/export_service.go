package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
	"github.com/campus-core/uni-records-api/pkg/export"
	"github.com/campus-core/uni-records-api/pkg/jobs"
	"github.com/campus-core/uni-records-api/pkg/storage"
)

// Export entity and format identifiers accepted by Request.
const (
	ExportEntityStudents    = "students"
	ExportEntityEnrollments = "enrollments"

	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// Export job lifecycle states.
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

const exportPageSize = 100

type exportStudentLister interface {
	List(ctx context.Context, search string, page, size int) ([]models.Student, int, error)
}

type exportEnrollmentLister interface {
	ListAll(ctx context.Context) ([]models.Enrollment, error)
}

// ExportJob tracks one requested roster export.
type ExportJob struct {
	ID            string    `json:"id"`
	Entity        string    `json:"entity"`
	Format        string    `json:"format"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	DownloadToken string    `json:"download_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}

// ExportService renders roster files in the background. Results land on
// local storage and are handed out through signed, expiring download tokens.
type ExportService struct {
	students    exportStudentLister
	enrollments exportEnrollmentLister
	store       *storage.ExportStore
	signer      *storage.TokenSigner
	pool        *jobs.Pool
	logger      *zap.Logger

	mu      sync.RWMutex
	byJobID map[string]*ExportJob
}

// NewExportService constructs the service and its worker pool. The pool is
// idle until Start is called.
func NewExportService(students exportStudentLister, enrollments exportEnrollmentLister, store *storage.ExportStore, signer *storage.TokenSigner, poolCfg jobs.PoolConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if poolCfg.Logger == nil {
		poolCfg.Logger = logger
	}
	s := &ExportService{
		students:    students,
		enrollments: enrollments,
		store:       store,
		signer:      signer,
		logger:      logger,
		byJobID:     make(map[string]*ExportJob),
	}
	s.pool = jobs.NewPool("exports", s.process, poolCfg)
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

// Stop drains the workers.
func (s *ExportService) Stop() {
	s.pool.Stop()
}

// Request validates and enqueues a new export, returning its pending job.
func (s *ExportService) Request(ctx context.Context, entity, format string) (*ExportJob, error) {
	entity = strings.ToLower(strings.TrimSpace(entity))
	format = strings.ToLower(strings.TrimSpace(format))
	if entity != ExportEntityStudents && entity != ExportEntityEnrollments {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export entity %q", entity))
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export format %q", format))
	}

	job := &ExportJob{
		ID:          uuid.NewString(),
		Entity:      entity,
		Format:      format,
		Status:      ExportStatusPending,
		RequestedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.byJobID[job.ID] = job
	s.mu.Unlock()

	if err := s.pool.Submit(jobs.Task{ID: job.ID, Kind: entity, Payload: format}); err != nil {
		s.mu.Lock()
		delete(s.byJobID, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}

	return s.snapshot(job.ID)
}

// Status returns the current state of an export job.
func (s *ExportService) Status(jobID string) (*ExportJob, error) {
	return s.snapshot(jobID)
}

// Resolve validates a download token and returns the absolute file path plus
// a suggested download filename.
func (s *ExportService) Resolve(token string) (string, string, error) {
	claim, err := s.signer.Check(token)
	if err != nil {
		return "", "", appErrors.Clone(appErrors.ErrUnauthorized, "download token is invalid or expired")
	}
	if !s.store.Exists(claim.File) {
		return "", "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	abs, err := s.store.Path(claim.File)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve export file")
	}
	return abs, path.Base(claim.File), nil
}

func (s *ExportService) snapshot(jobID string) (*ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.byJobID[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	copied := *job
	return &copied, nil
}

func (s *ExportService) process(ctx context.Context, task jobs.Task) error {
	format, _ := task.Payload.(string)

	table, err := s.buildTable(ctx, task.Kind)
	if err != nil {
		s.markFailed(task.ID, err)
		return err
	}

	var rendered []byte
	switch format {
	case ExportFormatPDF:
		rendered, err = export.RenderPDF(table, task.Kind)
	default:
		rendered, err = export.RenderCSV(table)
	}
	if err != nil {
		s.markFailed(task.ID, err)
		return err
	}

	file := fmt.Sprintf("%s/%s.%s", task.Kind, task.ID, format)
	if _, err := s.store.Save(file, rendered); err != nil {
		s.markFailed(task.ID, err)
		return err
	}

	token, expiresAt, err := s.signer.Mint(task.ID, file)
	if err != nil {
		s.markFailed(task.ID, err)
		return err
	}

	s.mu.Lock()
	if tracked, ok := s.byJobID[task.ID]; ok {
		tracked.Status = ExportStatusCompleted
		tracked.Error = ""
		tracked.DownloadToken = token
		tracked.ExpiresAt = expiresAt
		tracked.CompletedAt = time.Now().UTC()
	}
	s.mu.Unlock()

	s.logger.Sugar().Infow("export completed", "job_id", task.ID, "entity", task.Kind, "format", format, "rows", len(table.Rows))
	return nil
}

func (s *ExportService) buildTable(ctx context.Context, entity string) (export.Table, error) {
	switch entity {
	case ExportEntityStudents:
		return s.studentTable(ctx)
	case ExportEntityEnrollments:
		return s.enrollmentTable(ctx)
	default:
		return export.Table{}, fmt.Errorf("unknown export entity %q", entity)
	}
}

func (s *ExportService) studentTable(ctx context.Context) (export.Table, error) {
	table := export.Table{
		Columns: []string{"ci", "first_name", "last_name", "email", "birth_date", "registration_num"},
	}
	for page := 1; ; page++ {
		students, total, err := s.students.List(ctx, "", page, exportPageSize)
		if err != nil {
			return export.Table{}, fmt.Errorf("list students for export: %w", err)
		}
		for _, student := range students {
			table.Rows = append(table.Rows, []string{
				student.CI,
				student.FirstName,
				student.LastName,
				student.Email,
				student.BirthDate.Format("2006-01-02"),
				student.RegistrationNum,
			})
		}
		if len(students) == 0 || len(table.Rows) >= total {
			return table, nil
		}
	}
}

func (s *ExportService) enrollmentTable(ctx context.Context) (export.Table, error) {
	enrollments, err := s.enrollments.ListAll(ctx)
	if err != nil {
		return export.Table{}, fmt.Errorf("list enrollments for export: %w", err)
	}
	table := export.Table{
		Columns: []string{"id", "student_ci", "subject_code", "enrolled_on"},
	}
	for _, enrollment := range enrollments {
		table.Rows = append(table.Rows, []string{
			enrollment.ID,
			enrollment.StudentCI,
			enrollment.SubjectCode,
			enrollment.EnrolledOn.Format("2006-01-02"),
		})
	}
	return table, nil
}

func (s *ExportService) markFailed(jobID string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.byJobID[jobID]; ok {
		job.Status = ExportStatusFailed
		job.Error = cause.Error()
	}
}
