package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	"github.com/campus-core/uni-records-api/internal/repository"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type attendanceRepository interface {
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	ExistsByNaturalKey(ctx context.Context, studentCI string, courseID int64, date time.Time, excludeID string) (bool, error)
	ListByStudent(ctx context.Context, studentCI string) ([]models.Attendance, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Attendance, error)
	Create(ctx context.Context, attendance *models.Attendance) error
	Update(ctx context.Context, attendance *models.Attendance) error
	Delete(ctx context.Context, id string) error
}

// AttendanceRequest carries an attendance record's natural key and its
// presence flag.
type AttendanceRequest struct {
	StudentCI string    `json:"student_ci" validate:"required"`
	CourseID  int64     `json:"course_id" validate:"required,gt=0"`
	Date      time.Time `json:"date" validate:"required"`
	Present   bool      `json:"present"`
}

// AttendanceService manages per-date attendance records. The same date may
// repeat for a student across courses, but the (student, course, date)
// triple is unique.
type AttendanceService struct {
	repo      attendanceRepository
	students  studentStore
	courses   courseStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, students studentStore, courses courseStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, students: students, courses: courses, cache: cache, validator: validate, logger: logger}
}

func attendanceByIDKey(id string) QueryKey {
	return NewQueryKey("attendance", "id", id)
}

func attendanceByStudentKey(studentCI string) QueryKey {
	return NewQueryKey("attendance", "student", studentCI)
}

func attendanceByCourseKey(courseID int64) QueryKey {
	return NewQueryKey("attendance", "course", strconv.FormatInt(courseID, 10))
}

// GetByID returns an attendance record, read through the cache.
func (s *AttendanceService) GetByID(ctx context.Context, id string) (*models.Attendance, error) {
	key := attendanceByIDKey(id)
	var cached models.Attendance
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	attendance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	_ = s.cache.Set(ctx, key, attendance)
	return attendance, nil
}

// ListByStudent returns a student's attendance history.
func (s *AttendanceService) ListByStudent(ctx context.Context, studentCI string) ([]models.Attendance, error) {
	key := attendanceByStudentKey(studentCI)
	var cached []models.Attendance
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	records, err := s.repo.ListByStudent(ctx, studentCI)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	_ = s.cache.Set(ctx, key, records)
	return records, nil
}

// ListByCourse returns the attendance roll for a course section.
func (s *AttendanceService) ListByCourse(ctx context.Context, courseID int64) ([]models.Attendance, error) {
	key := attendanceByCourseKey(courseID)
	var cached []models.Attendance
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	records, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	_ = s.cache.Set(ctx, key, records)
	return records, nil
}

// Create records a student's presence in a course on a date.
func (s *AttendanceService) Create(ctx context.Context, req AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if err := s.resolveReferences(ctx, req); err != nil {
		return nil, err
	}
	date := normalizeDate(req.Date)

	exists, err := s.repo.ExistsByNaturalKey(ctx, req.StudentCI, req.CourseID, date, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "attendance already recorded for this student, course, and date")
	}

	attendance := &models.Attendance{StudentCI: req.StudentCI, CourseID: req.CourseID, Date: date, Present: req.Present}
	if err := s.repo.Create(ctx, attendance); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "attendance already recorded for this student, course, and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance record")
	}

	s.cache.Invalidate(ctx, attendanceByStudentKey(attendance.StudentCI), attendanceByCourseKey(attendance.CourseID))
	return attendance, nil
}

// Update rewrites an attendance record, re-checking the triple when any
// natural-key component changed.
func (s *AttendanceService) Update(ctx context.Context, id string, req AttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if err := s.resolveReferences(ctx, req); err != nil {
		return nil, err
	}
	date := normalizeDate(req.Date)

	keyChanged := existing.StudentCI != req.StudentCI || existing.CourseID != req.CourseID || !existing.Date.Equal(date)
	if keyChanged {
		exists, err := s.repo.ExistsByNaturalKey(ctx, req.StudentCI, req.CourseID, date, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance uniqueness")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "attendance already recorded for this student, course, and date")
		}
	}

	oldStudent, oldCourse := existing.StudentCI, existing.CourseID
	existing.StudentCI = req.StudentCI
	existing.CourseID = req.CourseID
	existing.Date = date
	existing.Present = req.Present
	if err := s.repo.Update(ctx, existing); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "attendance already recorded for this student, course, and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance record")
	}

	s.cache.Evict(ctx, attendanceByIDKey(id))
	s.cache.Invalidate(ctx,
		attendanceByStudentKey(oldStudent), attendanceByCourseKey(oldCourse),
		attendanceByStudentKey(existing.StudentCI), attendanceByCourseKey(existing.CourseID),
	)
	return existing, nil
}

// Delete removes an attendance record.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance record")
	}
	s.cache.Evict(ctx, attendanceByIDKey(id))
	s.cache.Invalidate(ctx, attendanceByStudentKey(existing.StudentCI), attendanceByCourseKey(existing.CourseID))
	return nil
}

func (s *AttendanceService) resolveReferences(ctx context.Context, req AttendanceRequest) error {
	studentOK, err := s.students.Exists(ctx, req.StudentCI)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}
	if !studentOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "student "+req.StudentCI+" not found")
	}
	courseOK, err := s.courses.Exists(ctx, req.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course")
	}
	if !courseOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "course "+strconv.FormatInt(req.CourseID, 10)+" not found")
	}
	return nil
}
