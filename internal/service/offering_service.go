package service

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	"github.com/campus-core/uni-records-api/internal/repository"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type offeringRepository interface {
	FindByID(ctx context.Context, id string) (*models.Offering, error)
	ExistsByNaturalKey(ctx context.Context, subjectCode string, courseID int64, excludeID string) (bool, error)
	ListBySubject(ctx context.Context, subjectCode string) ([]models.Offering, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Offering, error)
	Create(ctx context.Context, offering *models.Offering) error
	Update(ctx context.Context, offering *models.Offering) error
	Delete(ctx context.Context, id string) error
}

// OfferingRequest carries the natural key of an offering for create and
// update operations.
type OfferingRequest struct {
	SubjectCode string `json:"subject_code" validate:"required"`
	CourseID    int64  `json:"course_id" validate:"required,gt=0"`
}

// OfferingService manages subject-course offerings: uniqueness of the
// (subject, course) pair with the storage constraint as the race backstop.
type OfferingService struct {
	repo      offeringRepository
	subjects  subjectStore
	courses   courseStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfferingService constructs OfferingService.
func NewOfferingService(repo offeringRepository, subjects subjectStore, courses courseStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, subjects: subjects, courses: courses, cache: cache, validator: validate, logger: logger}
}

func offeringByIDKey(id string) QueryKey {
	return NewQueryKey("offering", "id", id)
}

func offeringsBySubjectKey(subjectCode string) QueryKey {
	return NewQueryKey("offering", "subject", subjectCode)
}

func offeringsByCourseKey(courseID int64) QueryKey {
	return NewQueryKey("offering", "course", strconv.FormatInt(courseID, 10))
}

// GetByID returns an offering, read through the cache.
func (s *OfferingService) GetByID(ctx context.Context, id string) (*models.Offering, error) {
	key := offeringByIDKey(id)
	var cached models.Offering
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	_ = s.cache.Set(ctx, key, offering)
	return offering, nil
}

// ListBySubject returns all offerings of a subject, read through the cache.
func (s *OfferingService) ListBySubject(ctx context.Context, subjectCode string) ([]models.Offering, error) {
	key := offeringsBySubjectKey(subjectCode)
	var cached []models.Offering
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	offerings, err := s.repo.ListBySubject(ctx, subjectCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	_ = s.cache.Set(ctx, key, offerings)
	return offerings, nil
}

// ListByCourse returns all offerings in a course section, read through the
// cache.
func (s *OfferingService) ListByCourse(ctx context.Context, courseID int64) ([]models.Offering, error) {
	key := offeringsByCourseKey(courseID)
	var cached []models.Offering
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	offerings, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	_ = s.cache.Set(ctx, key, offerings)
	return offerings, nil
}

// Create registers a subject as taught in a course section.
func (s *OfferingService) Create(ctx context.Context, req OfferingRequest) (*models.Offering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	if err := s.resolveReferences(ctx, req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNaturalKey(ctx, req.SubjectCode, req.CourseID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check offering uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "subject is already offered in this course")
	}

	offering := &models.Offering{SubjectCode: req.SubjectCode, CourseID: req.CourseID}
	if err := s.repo.Create(ctx, offering); err != nil {
		// The unique index is the authoritative check; a concurrent create
		// that won the race surfaces here as a constraint violation.
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "subject is already offered in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offering")
	}

	s.cache.Invalidate(ctx, offeringsBySubjectKey(offering.SubjectCode), offeringsByCourseKey(offering.CourseID))
	return offering, nil
}

// Update rewrites an offering's natural key, re-checking uniqueness when
// the key changed.
func (s *OfferingService) Update(ctx context.Context, id string, req OfferingRequest) (*models.Offering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if err := s.resolveReferences(ctx, req); err != nil {
		return nil, err
	}

	keyChanged := existing.SubjectCode != req.SubjectCode || existing.CourseID != req.CourseID
	if keyChanged {
		exists, err := s.repo.ExistsByNaturalKey(ctx, req.SubjectCode, req.CourseID, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check offering uniqueness")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "subject is already offered in this course")
		}
	}

	oldSubject, oldCourse := existing.SubjectCode, existing.CourseID
	existing.SubjectCode = req.SubjectCode
	existing.CourseID = req.CourseID
	if err := s.repo.Update(ctx, existing); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "subject is already offered in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update offering")
	}

	s.cache.Evict(ctx, offeringByIDKey(id))
	s.cache.Invalidate(ctx,
		offeringsBySubjectKey(oldSubject), offeringsByCourseKey(oldCourse),
		offeringsBySubjectKey(existing.SubjectCode), offeringsByCourseKey(existing.CourseID),
	)
	return existing, nil
}

// Delete removes an offering.
func (s *OfferingService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete offering")
	}
	s.cache.Evict(ctx, offeringByIDKey(id))
	s.cache.Invalidate(ctx, offeringsBySubjectKey(existing.SubjectCode), offeringsByCourseKey(existing.CourseID))
	return nil
}

func (s *OfferingService) resolveReferences(ctx context.Context, req OfferingRequest) error {
	subjectOK, err := s.subjects.Exists(ctx, req.SubjectCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
	}
	if !subjectOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "subject "+req.SubjectCode+" not found")
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
