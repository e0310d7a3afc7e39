package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	"github.com/campus-core/uni-records-api/internal/repository"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

// cooldownMonths is the minimum gap between successive enrollments of the
// same student in the same subject.
const cooldownMonths = 6

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsByNaturalKey(ctx context.Context, studentCI, subjectCode string, enrolledOn time.Time, excludeID string) (bool, error)
	FindLatestByPair(ctx context.Context, studentCI, subjectCode string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentCI string) ([]models.Enrollment, error)
	ListBySubject(ctx context.Context, subjectCode string) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

// EnrollmentRequest carries the natural key of an enrollment.
type EnrollmentRequest struct {
	StudentCI   string    `json:"student_ci" validate:"required"`
	SubjectCode string    `json:"subject_code" validate:"required"`
	EnrolledOn  time.Time `json:"enrolled_on" validate:"required"`
}

// EnrollmentService admits students into subjects. On top of the generic
// association rules it enforces the retake cooldown: a new enrollment date
// must be at least six months after the pair's most recent enrollment.
//
// "Most recent" is by date value, not creation order, so an enrollment
// dated far in the future moves the cooldown window with it. That matches
// the recorded policy; tightening it is a policy decision, not a bug fix.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentStore
	subjects  subjectStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentStore, subjects subjectStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

func enrollmentByIDKey(id string) QueryKey {
	return NewQueryKey("enrollment", "id", id)
}

func enrollmentsByStudentKey(studentCI string) QueryKey {
	return NewQueryKey("enrollment", "student", studentCI)
}

func enrollmentsBySubjectKey(subjectCode string) QueryKey {
	return NewQueryKey("enrollment", "subject", subjectCode)
}

// GetByID returns an enrollment with student and subject names, read
// through the cache.
func (s *EnrollmentService) GetByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	key := enrollmentByIDKey(id)
	var cached models.EnrollmentDetail
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	_ = s.cache.Set(ctx, key, detail)
	return detail, nil
}

// ListByStudent returns a student's enrollments, most recent first.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentCI string) ([]models.Enrollment, error) {
	key := enrollmentsByStudentKey(studentCI)
	var cached []models.Enrollment
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	enrollments, err := s.repo.ListByStudent(ctx, studentCI)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	_ = s.cache.Set(ctx, key, enrollments)
	return enrollments, nil
}

// ListBySubject returns a subject's enrollments, most recent first.
func (s *EnrollmentService) ListBySubject(ctx context.Context, subjectCode string) ([]models.Enrollment, error) {
	key := enrollmentsBySubjectKey(subjectCode)
	var cached []models.Enrollment
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	enrollments, err := s.repo.ListBySubject(ctx, subjectCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	_ = s.cache.Set(ctx, key, enrollments)
	return enrollments, nil
}

// Create admits a student into a subject on a date.
func (s *EnrollmentService) Create(ctx context.Context, req EnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.resolveReferences(ctx, req.StudentCI, req.SubjectCode); err != nil {
		return nil, err
	}
	date := normalizeDate(req.EnrolledOn)

	latest, err := s.repo.FindLatestByPair(ctx, req.StudentCI, req.SubjectCode)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	if latest != nil {
		earliest := latest.EnrolledOn.AddDate(0, cooldownMonths, 0)
		if date.Before(earliest) {
			return nil, appErrors.Clone(appErrors.ErrCooldownViolation,
				fmt.Sprintf("student %s may re-enroll in %s no earlier than %s", req.StudentCI, req.SubjectCode, earliest.Format("2006-01-02")))
		}
	}

	exists, err := s.repo.ExistsByNaturalKey(ctx, req.StudentCI, req.SubjectCode, date, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "student is already enrolled in this subject on this date")
	}

	enrollment := &models.Enrollment{StudentCI: req.StudentCI, SubjectCode: req.SubjectCode, EnrolledOn: date}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "student is already enrolled in this subject on this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.cache.Invalidate(ctx, enrollmentsByStudentKey(enrollment.StudentCI), enrollmentsBySubjectKey(enrollment.SubjectCode))
	return enrollment, nil
}

// Update rewrites an enrollment's natural key. The date may never move
// earlier than the record's current date: relaxing that would let an
// update sidestep the cooldown applied at admission.
func (s *EnrollmentService) Update(ctx context.Context, id string, req EnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.resolveReferences(ctx, req.StudentCI, req.SubjectCode); err != nil {
		return nil, err
	}
	date := normalizeDate(req.EnrolledOn)

	if date.Before(existing.EnrolledOn) {
		return nil, appErrors.Clone(appErrors.ErrDateRegression,
			fmt.Sprintf("enrollment date may not move before %s", existing.EnrolledOn.Format("2006-01-02")))
	}

	keyChanged := existing.StudentCI != req.StudentCI || existing.SubjectCode != req.SubjectCode || !existing.EnrolledOn.Equal(date)
	if keyChanged {
		exists, err := s.repo.ExistsByNaturalKey(ctx, req.StudentCI, req.SubjectCode, date, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment uniqueness")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "student is already enrolled in this subject on this date")
		}
	}

	oldStudent, oldSubject := existing.StudentCI, existing.SubjectCode
	existing.StudentCI = req.StudentCI
	existing.SubjectCode = req.SubjectCode
	existing.EnrolledOn = date
	if err := s.repo.Update(ctx, existing); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "student is already enrolled in this subject on this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}

	s.cache.Evict(ctx, enrollmentByIDKey(id))
	s.cache.Invalidate(ctx,
		enrollmentsByStudentKey(oldStudent), enrollmentsBySubjectKey(oldSubject),
		enrollmentsByStudentKey(existing.StudentCI), enrollmentsBySubjectKey(existing.SubjectCode),
	)
	return existing, nil
}

// Delete removes an enrollment by surrogate id.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.cache.Evict(ctx, enrollmentByIDKey(id))
	s.cache.Invalidate(ctx, enrollmentsByStudentKey(existing.StudentCI), enrollmentsBySubjectKey(existing.SubjectCode))
	return nil
}

// DeleteByPair removes the most recent enrollment of a student in a
// subject without requiring the caller to know the surrogate id.
func (s *EnrollmentService) DeleteByPair(ctx context.Context, studentCI, subjectCode string) error {
	latest, err := s.repo.FindLatestByPair(ctx, studentCI, subjectCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "no enrollment found for this student and subject")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return s.Delete(ctx, latest.ID)
}

func (s *EnrollmentService) resolveReferences(ctx context.Context, studentCI, subjectCode string) error {
	studentOK, err := s.students.Exists(ctx, studentCI)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}
	if !studentOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "student "+studentCI+" not found")
	}
	subjectOK, err := s.subjects.Exists(ctx, subjectCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
	}
	if !subjectOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "subject "+subjectCode+" not found")
	}
	return nil
}
