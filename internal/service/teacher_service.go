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

type teacherRepository interface {
	List(ctx context.Context, search, department string, page, size int) ([]models.Teacher, int, error)
	FindByCI(ctx context.Context, ci string) (*models.Teacher, error)
	Exists(ctx context.Context, ci string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, ci string) error
}

// TeacherRequest is the write payload for a teacher record.
type TeacherRequest struct {
	CI          string `json:"ci" validate:"required"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Department  string `json:"department" validate:"required"`
	EmployeeNum string `json:"employee_num" validate:"required"`
}

// TeacherService manages teacher records keyed by national identity number.
type TeacherService struct {
	repo      teacherRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(repo teacherRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, validator: validate, logger: logger}
}

func teacherByCIKey(ci string) QueryKey {
	return NewQueryKey("teacher", "ci", ci)
}

func teacherListKey(search, department string, page, size int) QueryKey {
	return NewQueryKey("teacher", "list", search, department, fmt.Sprint(page), fmt.Sprint(size))
}

// GetByCI returns a teacher by identity number, read through the cache.
func (s *TeacherService) GetByCI(ctx context.Context, ci string) (*models.Teacher, error) {
	key := teacherByCIKey(ci)
	var cached models.Teacher
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	teacher, err := s.repo.FindByCI(ctx, ci)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	_ = s.cache.Set(ctx, key, teacher)
	return teacher, nil
}

type teacherPage struct {
	Items      []models.Teacher  `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// List returns teachers matching an optional name search and department
// filter, paginated.
func (s *TeacherService) List(ctx context.Context, search, department string, page, size int) ([]models.Teacher, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	key := teacherListKey(search, department, page, size)
	var cached teacherPage
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached.Items, &cached.Pagination, nil
	}
	teachers, total, err := s.repo.List(ctx, search, department, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	pagination := models.Pagination{Page: page, PageSize: size, TotalCount: total}
	_ = s.cache.Set(ctx, key, teacherPage{Items: teachers, Pagination: pagination})
	return teachers, &pagination, nil
}

// Create registers a new teacher.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	exists, err := s.repo.Exists(ctx, req.CI)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a teacher with this CI already exists")
	}
	teacher := &models.Teacher{
		CI:          req.CI,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Department:  req.Department,
		EmployeeNum: req.EmployeeNum,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a teacher with this CI already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.cache.Invalidate(ctx, NewQueryKey("teacher", "list"))
	return teacher, nil
}

// Update replaces a teacher's mutable fields.
func (s *TeacherService) Update(ctx context.Context, ci string, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	existing, err := s.repo.FindByCI(ctx, ci)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	existing.FirstName = req.FirstName
	existing.LastName = req.LastName
	existing.Email = req.Email
	existing.Department = req.Department
	existing.EmployeeNum = req.EmployeeNum
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	s.cache.Evict(ctx, teacherByCIKey(ci))
	s.cache.Invalidate(ctx, NewQueryKey("teacher", "list"))
	return existing, nil
}

// Delete removes a teacher record.
func (s *TeacherService) Delete(ctx context.Context, ci string) error {
	if err := s.repo.Delete(ctx, ci); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	s.cache.Evict(ctx, teacherByCIKey(ci))
	s.cache.Invalidate(ctx, NewQueryKey("teacher", "list"))
	return nil
}
