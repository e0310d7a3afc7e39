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

type prerequisiteRepository interface {
	FindByID(ctx context.Context, id string) (*models.Prerequisite, error)
	ExistsByNaturalKey(ctx context.Context, subjectCode, prerequisiteCode, excludeID string) (bool, error)
	ListBySubject(ctx context.Context, subjectCode string) ([]models.Prerequisite, error)
	ListDependents(ctx context.Context, prerequisiteCode string) ([]models.Prerequisite, error)
	Create(ctx context.Context, prerequisite *models.Prerequisite) error
	Update(ctx context.Context, prerequisite *models.Prerequisite) error
	Delete(ctx context.Context, id string) error
}

// PrerequisiteRequest carries the natural key of a prerequisite relation.
type PrerequisiteRequest struct {
	SubjectCode      string `json:"subject_code" validate:"required"`
	PrerequisiteCode string `json:"prerequisite_code" validate:"required"`
}

// PrerequisiteService manages subject-prerequisite relations: both codes
// must resolve, a subject may not depend on itself, and the pair is unique.
type PrerequisiteService struct {
	repo      prerequisiteRepository
	subjects  subjectStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPrerequisiteService constructs PrerequisiteService.
func NewPrerequisiteService(repo prerequisiteRepository, subjects subjectStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PrerequisiteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrerequisiteService{repo: repo, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

func prerequisiteByIDKey(id string) QueryKey {
	return NewQueryKey("prerequisite", "id", id)
}

func prerequisitesBySubjectKey(subjectCode string) QueryKey {
	return NewQueryKey("prerequisite", "subject", subjectCode)
}

func prerequisiteDependentsKey(prerequisiteCode string) QueryKey {
	return NewQueryKey("prerequisite", "dependents", prerequisiteCode)
}

// GetByID returns a prerequisite relation, read through the cache.
func (s *PrerequisiteService) GetByID(ctx context.Context, id string) (*models.Prerequisite, error) {
	key := prerequisiteByIDKey(id)
	var cached models.Prerequisite
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	prerequisite, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite")
	}
	_ = s.cache.Set(ctx, key, prerequisite)
	return prerequisite, nil
}

// ListBySubject returns what a subject requires, read through the cache.
func (s *PrerequisiteService) ListBySubject(ctx context.Context, subjectCode string) ([]models.Prerequisite, error) {
	key := prerequisitesBySubjectKey(subjectCode)
	var cached []models.Prerequisite
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	prerequisites, err := s.repo.ListBySubject(ctx, subjectCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list prerequisites")
	}
	_ = s.cache.Set(ctx, key, prerequisites)
	return prerequisites, nil
}

// ListDependents returns the relations that require a subject, read through
// the cache.
func (s *PrerequisiteService) ListDependents(ctx context.Context, prerequisiteCode string) ([]models.Prerequisite, error) {
	key := prerequisiteDependentsKey(prerequisiteCode)
	var cached []models.Prerequisite
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	prerequisites, err := s.repo.ListDependents(ctx, prerequisiteCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list prerequisite dependents")
	}
	_ = s.cache.Set(ctx, key, prerequisites)
	return prerequisites, nil
}

// Create registers a prerequisite relation between two subjects.
func (s *PrerequisiteService) Create(ctx context.Context, req PrerequisiteRequest) (*models.Prerequisite, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}
	if err := s.checkRelation(ctx, req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByNaturalKey(ctx, req.SubjectCode, req.PrerequisiteCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "this prerequisite relation already exists")
	}

	prerequisite := &models.Prerequisite{SubjectCode: req.SubjectCode, PrerequisiteCode: req.PrerequisiteCode}
	if err := s.repo.Create(ctx, prerequisite); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "this prerequisite relation already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create prerequisite")
	}

	s.cache.Invalidate(ctx, prerequisitesBySubjectKey(prerequisite.SubjectCode), prerequisiteDependentsKey(prerequisite.PrerequisiteCode))
	return prerequisite, nil
}

// Update rewrites a prerequisite relation, re-checking uniqueness when the
// pair changed.
func (s *PrerequisiteService) Update(ctx context.Context, id string, req PrerequisiteRequest) (*models.Prerequisite, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite")
	}
	if err := s.checkRelation(ctx, req); err != nil {
		return nil, err
	}

	keyChanged := existing.SubjectCode != req.SubjectCode || existing.PrerequisiteCode != req.PrerequisiteCode
	if keyChanged {
		exists, err := s.repo.ExistsByNaturalKey(ctx, req.SubjectCode, req.PrerequisiteCode, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite uniqueness")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "this prerequisite relation already exists")
		}
	}

	oldSubject, oldPrerequisite := existing.SubjectCode, existing.PrerequisiteCode
	existing.SubjectCode = req.SubjectCode
	existing.PrerequisiteCode = req.PrerequisiteCode
	if err := s.repo.Update(ctx, existing); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateAssociation, "this prerequisite relation already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update prerequisite")
	}

	s.cache.Evict(ctx, prerequisiteByIDKey(id))
	s.cache.Invalidate(ctx,
		prerequisitesBySubjectKey(oldSubject), prerequisiteDependentsKey(oldPrerequisite),
		prerequisitesBySubjectKey(existing.SubjectCode), prerequisiteDependentsKey(existing.PrerequisiteCode),
	)
	return existing, nil
}

// Delete removes a prerequisite relation.
func (s *PrerequisiteService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete prerequisite")
	}
	s.cache.Evict(ctx, prerequisiteByIDKey(id))
	s.cache.Invalidate(ctx, prerequisitesBySubjectKey(existing.SubjectCode), prerequisiteDependentsKey(existing.PrerequisiteCode))
	return nil
}

func (s *PrerequisiteService) checkRelation(ctx context.Context, req PrerequisiteRequest) error {
	if req.SubjectCode == req.PrerequisiteCode {
		return appErrors.Clone(appErrors.ErrValidation, "a subject cannot be its own prerequisite")
	}
	subjectOK, err := s.subjects.Exists(ctx, req.SubjectCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
	}
	if !subjectOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "subject "+req.SubjectCode+" not found")
	}
	prerequisiteOK, err := s.subjects.Exists(ctx, req.PrerequisiteCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve prerequisite subject")
	}
	if !prerequisiteOK {
		return appErrors.Clone(appErrors.ErrReferenceNotFound, "subject "+req.PrerequisiteCode+" not found")
	}
	return nil
}
