package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	"github.com/campus-core/uni-records-api/internal/repository"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type teachingAssignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeachingAssignment, error)
	ExistsByNaturalKey(ctx context.Context, subjectCode, teacherCI, excludeID string) (bool, error)
	ListBySubject(ctx context.Context, subjectCode string) ([]models.TeachingAssignment, error)
	ListByTeacher(ctx context.Context, teacherCI string) ([]models.TeachingAssignment, error)
	Create(ctx context.Context, assignment *models.TeachingAssignment) error
	Update(ctx context.Context, assignment *models.TeachingAssignment) error
	Delete(ctx context.Context, id string) error
}

// TeachingAssignmentRequest carries the natural key of an assignment.
type TeachingAssignmentRequest struct {
	SubjectCode string `json:"subject_code" validate:"required"`
	TeacherCI   string `json:"teacher_ci" validate:"required"`
}

// TeachingAssignmentService manages which teacher teaches which subject.
type TeachingAssignmentService struct {
	repo      teachingAssignmentRepository
	subjects  subjectStore
	teachers  teacherStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeachingAssignmentService constructs TeachingAssignmentService.
func NewTeachingAssignmentService(repo teachingAssignmentRepository, subjects subjectStore, teachers teacherStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeachingAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeachingAssignmentService{repo: repo, subjects: subjects, teachers: teachers, cache: cache, validator: validate, logger: logger}
}

func assignmentByIDKey(id string) QueryKey {
	return NewQueryKey("assignment", "id", id)
}

func assignmentsBySubjectKey(subjectCode string) QueryKey {
	return NewQueryKey("assignment", "subject", subjectCode)
}

func assignmentsByTeacherKey(teacherCI string) QueryKey {
	return NewQueryKey("assignment", "teacher", teacherCI)
}

// GetByID returns an assignment, read through the cache.
func (s *TeachingAssignmentService) GetByID(ctx context.Context, id string) (*models.TeachingAssignment, error) {
	key := assignmentByIDKey(id)
	var cached models.TeachingAssignment
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching assignment")
	}
	_ = s.cache.Set(ctx, key, assignment)
	return assignment, nil
}

// ListBySubject returns the teachers assigned to a subject.
func (s *TeachingAssignmentService) ListBySubject(ctx context.Context, subjectCode string) ([]models.TeachingAssignment, error) {
	key := assignmentsBySubjectKey(subjectCode)
	var cached []models.TeachingAssignment
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	assignments, err := s.repo.ListBySubject(ctx, subjectCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching assignments")
	}
	_ = s.cache.Set(ctx, key, assignments)
	return assignments, nil
}

// ListByTeacher returns the subjects a teacher is assigned to.
func (s *TeachingAssignmentService) ListByTeacher(ctx context.Context, teacherCI string) ([]models.TeachingAssignment, error) {
	key := assignmentsByTeacherKey(teacherCI)
	var cached []models.TeachingAssignment
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	assignments, err := s.repo.ListByTeacher(ctx, teacherCI)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching assignments")
	}
	_ = s.cache.Set(ctx, key, assignments)
	return assignments, nil
}

// Create assigns a teacher to a subject.
func (s *TeachingAssignmentService) Create(ctx context.Context, req TeachingAssignmentRequest) (*models.TeachingAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if err := s.resolveReferences(ctx, req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNaturalKey(ctx, req.SubjectCode, req.TeacherCI, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "teacher is already assigned to this subject")
	}

	assignment := &models.TeachingAssignment{SubjectCode: req.SubjectCode, TeacherCI: req.TeacherCI}
	if err := s.repo.Create(ctx, assignment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "teacher is already assigned to this subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teaching assignment")
	}

	s.cache.Invalidate(ctx, assignmentsBySubjectKey(assignment.SubjectCode), assignmentsByTeacherKey(assignment.TeacherCI))
	return assignment, nil
}

// Update rewrites an assignment's natural key.
func (s *TeachingAssignmentService) Update(ctx context.Context, id string, req TeachingAssignmentRequest) (*models.TeachingAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching assignment")
	}
	if err := s.resolveReferences(ctx, req); err != nil {
		return nil, err
	}

	keyChanged := existing.SubjectCode != req.SubjectCode || existing.TeacherCI != req.TeacherCI
	if keyChanged {
		exists, err := s.repo.ExistsByNaturalKey(ctx, req.SubjectCode, req.TeacherCI, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "teacher is already assigned to this subject")
		}
	}

	oldSubject, oldTeacher := existing.SubjectCode, existing.TeacherCI
	existing.SubjectCode = req.SubjectCode
	existing.TeacherCI = req.TeacherCI
	if err := s.repo.Update(ctx, existing); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "teacher is already assigned to this subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teaching assignment")
	}

	s.cache.Evict(ctx, assignmentByIDKey(id))
	s.cache.Invalidate(ctx,
		assignmentsBySubjectKey(oldSubject), assignmentsByTeacherKey(oldTeacher),
		assignmentsBySubjectKey(existing.SubjectCode), assignmentsByTeacherKey(existing.TeacherCI),
	)
	return existing, nil
}

// Delete removes an assignment.
func (s *TeachingAssignmentService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teaching assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching assignment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teaching assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teaching assignment")
	}
	s.cache.Evict(ctx, assignmentByIDKey(id))
	s.cache.Invalidate(ctx, assignmentsBySubjectKey(existing.SubjectCode), assignmentsByTeacherKey(existing.TeacherCI))
	return nil
}

func (s *TeachingAssignmentService) resolveReferences(ctx context.Context, req TeachingAssignmentRequest) error {
	subjectOK, err := s.subjects.Exists(ctx, req.SubjectCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
	}
	if !subjectOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "subject "+req.SubjectCode+" not found")
	}
	teacherOK, err := s.teachers.Exists(ctx, req.TeacherCI)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
	}
	if !teacherOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "teacher "+req.TeacherCI+" not found")
	}
	return nil
}
