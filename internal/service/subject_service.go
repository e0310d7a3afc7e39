package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	"github.com/campus-core/uni-records-api/internal/repository"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, search string, page, size int) ([]models.Subject, int, error)
	FindByCode(ctx context.Context, code string) (*models.Subject, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, code string) error
}

// SubjectRequest is the write payload for a subject record.
type SubjectRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// SubjectService manages the subject catalog keyed by unique code.
type SubjectService struct {
	repo      subjectRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(repo subjectRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, cache: cache, validator: validate, logger: logger}
}

func subjectByCodeKey(code string) QueryKey {
	return NewQueryKey("subject", "code", code)
}

func subjectListKey(search string, page, size int) QueryKey {
	return NewQueryKey("subject", "list", search, fmt.Sprint(page), fmt.Sprint(size))
}

// GetByCode returns a subject by its unique code, read through the cache.
func (s *SubjectService) GetByCode(ctx context.Context, code string) (*models.Subject, error) {
	key := subjectByCodeKey(code)
	var cached models.Subject
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	subject, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	_ = s.cache.Set(ctx, key, subject)
	return subject, nil
}

type subjectPage struct {
	Items      []models.Subject  `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// List returns subjects matching an optional search, paginated.
func (s *SubjectService) List(ctx context.Context, search string, page, size int) ([]models.Subject, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	key := subjectListKey(search, page, size)
	var cached subjectPage
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached.Items, &cached.Pagination, nil
	}
	subjects, total, err := s.repo.List(ctx, search, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	pagination := models.Pagination{Page: page, PageSize: size, TotalCount: total}
	_ = s.cache.Set(ctx, key, subjectPage{Items: subjects, Pagination: pagination})
	return subjects, &pagination, nil
}

// Create adds a subject to the catalog.
func (s *SubjectService) Create(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	exists, err := s.repo.Exists(ctx, req.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a subject with this code already exists")
	}
	subject := &models.Subject{Code: req.Code, Name: req.Name, Description: req.Description}
	if err := s.repo.Create(ctx, subject); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a subject with this code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.cache.Invalidate(ctx, NewQueryKey("subject", "list"))
	return subject, nil
}

// Update replaces a subject's name and description. The code is immutable:
// associations reference it.
func (s *SubjectService) Update(ctx context.Context, code string, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	existing.Name = req.Name
	existing.Description = req.Description
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	s.cache.Evict(ctx, subjectByCodeKey(code))
	s.cache.Invalidate(ctx, NewQueryKey("subject", "list"))
	return existing, nil
}

// Delete removes a subject from the catalog.
func (s *SubjectService) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, code); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.cache.Evict(ctx, subjectByCodeKey(code))
	s.cache.Invalidate(ctx, NewQueryKey("subject", "list"))
	return nil
}
