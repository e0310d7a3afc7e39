package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	"github.com/campus-core/uni-records-api/internal/repository"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type gradeRepository interface {
	FindByID(ctx context.Context, id string) (*models.GradeRecord, error)
	ExistsByNaturalKey(ctx context.Context, studentCI string, courseID int64, evaluation string, excludeID string) (bool, error)
	ListByStudent(ctx context.Context, studentCI string) ([]models.GradeRecord, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.GradeRecord, error)
	Create(ctx context.Context, grade *models.GradeRecord) error
	Update(ctx context.Context, grade *models.GradeRecord) error
	Delete(ctx context.Context, id string) error
}

// GradeRequest carries a grade record's natural key, the score earned, and
// the date it was recorded.
type GradeRequest struct {
	StudentCI  string    `json:"student_ci" validate:"required"`
	CourseID   int64     `json:"course_id" validate:"required,gt=0"`
	Evaluation string    `json:"evaluation" validate:"required"`
	Score      float64   `json:"score" validate:"gte=0,lte=100"`
	RecordedOn time.Time `json:"recorded_on" validate:"required"`
}

// GradeService manages grade records. A student holds at most one score per
// evaluation of a course, with evaluation names compared case-insensitively.
type GradeService struct {
	repo      gradeRepository
	students  studentStore
	courses   courseStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeRepository, students studentStore, courses courseStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, students: students, courses: courses, cache: cache, validator: validate, logger: logger}
}

func gradeByIDKey(id string) QueryKey {
	return NewQueryKey("grade", "id", id)
}

func gradesByStudentKey(studentCI string) QueryKey {
	return NewQueryKey("grade", "student", studentCI)
}

func gradesByCourseKey(courseID int64) QueryKey {
	return NewQueryKey("grade", "course", strconv.FormatInt(courseID, 10))
}

// GetByID returns a grade record, read through the cache.
func (s *GradeService) GetByID(ctx context.Context, id string) (*models.GradeRecord, error) {
	key := gradeByIDKey(id)
	var cached models.GradeRecord
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade record")
	}
	_ = s.cache.Set(ctx, key, grade)
	return grade, nil
}

// ListByStudent returns a student's grade history.
func (s *GradeService) ListByStudent(ctx context.Context, studentCI string) ([]models.GradeRecord, error) {
	key := gradesByStudentKey(studentCI)
	var cached []models.GradeRecord
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	records, err := s.repo.ListByStudent(ctx, studentCI)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade records")
	}
	_ = s.cache.Set(ctx, key, records)
	return records, nil
}

// ListByCourse returns the grade sheet for a course section.
func (s *GradeService) ListByCourse(ctx context.Context, courseID int64) ([]models.GradeRecord, error) {
	key := gradesByCourseKey(courseID)
	var cached []models.GradeRecord
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	records, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade records")
	}
	_ = s.cache.Set(ctx, key, records)
	return records, nil
}

// Create records the score a student earned on an evaluation.
func (s *GradeService) Create(ctx context.Context, req GradeRequest) (*models.GradeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	recordedOn, err := s.checkDate(req.RecordedOn)
	if err != nil {
		return nil, err
	}
	if err := s.resolveReferences(ctx, req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNaturalKey(ctx, req.StudentCI, req.CourseID, req.Evaluation, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "a grade already exists for this student, course, and evaluation")
	}

	grade := &models.GradeRecord{
		StudentCI:  req.StudentCI,
		CourseID:   req.CourseID,
		Evaluation: req.Evaluation,
		Score:      req.Score,
		RecordedOn: recordedOn,
	}
	if err := s.repo.Create(ctx, grade); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "a grade already exists for this student, course, and evaluation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade record")
	}

	s.cache.Invalidate(ctx, gradesByStudentKey(grade.StudentCI), gradesByCourseKey(grade.CourseID))
	return grade, nil
}

// Update rewrites a grade record, re-checking the triple when any
// natural-key component changed.
func (s *GradeService) Update(ctx context.Context, id string, req GradeRequest) (*models.GradeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	recordedOn, err := s.checkDate(req.RecordedOn)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade record")
	}
	if err := s.resolveReferences(ctx, req); err != nil {
		return nil, err
	}

	keyChanged := existing.StudentCI != req.StudentCI || existing.CourseID != req.CourseID ||
		!strings.EqualFold(existing.Evaluation, req.Evaluation)
	if keyChanged {
		exists, err := s.repo.ExistsByNaturalKey(ctx, req.StudentCI, req.CourseID, req.Evaluation, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade uniqueness")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "a grade already exists for this student, course, and evaluation")
		}
	}

	oldStudent, oldCourse := existing.StudentCI, existing.CourseID
	existing.StudentCI = req.StudentCI
	existing.CourseID = req.CourseID
	existing.Evaluation = req.Evaluation
	existing.Score = req.Score
	existing.RecordedOn = recordedOn
	if err := s.repo.Update(ctx, existing); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "a grade already exists for this student, course, and evaluation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade record")
	}

	s.cache.Evict(ctx, gradeByIDKey(id))
	s.cache.Invalidate(ctx,
		gradesByStudentKey(oldStudent), gradesByCourseKey(oldCourse),
		gradesByStudentKey(existing.StudentCI), gradesByCourseKey(existing.CourseID),
	)
	return existing, nil
}

// Delete removes a grade record.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade record")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade record")
	}
	s.cache.Evict(ctx, gradeByIDKey(id))
	s.cache.Invalidate(ctx, gradesByStudentKey(existing.StudentCI), gradesByCourseKey(existing.CourseID))
	return nil
}

// checkDate normalizes the recording date and rejects future dates.
func (s *GradeService) checkDate(recordedOn time.Time) (time.Time, error) {
	date := normalizeDate(recordedOn)
	if date.After(normalizeDate(time.Now())) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "grade date cannot be in the future")
	}
	return date, nil
}

func (s *GradeService) resolveReferences(ctx context.Context, req GradeRequest) error {
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
