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

type studentRepository interface {
	List(ctx context.Context, search string, page, size int) ([]models.Student, int, error)
	FindByCI(ctx context.Context, ci string) (*models.Student, error)
	Exists(ctx context.Context, ci string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, ci string) error
}

// StudentRequest is the write payload for a student record.
type StudentRequest struct {
	CI              string    `json:"ci" validate:"required"`
	FirstName       string    `json:"first_name" validate:"required"`
	LastName        string    `json:"last_name" validate:"required"`
	Email           string    `json:"email" validate:"required,email"`
	BirthDate       time.Time `json:"birth_date" validate:"required"`
	RegistrationNum string    `json:"registration_num" validate:"required"`
}

// StudentService manages student records keyed by national identity number.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

func studentByCIKey(ci string) QueryKey {
	return NewQueryKey("student", "ci", ci)
}

func studentListKey(search string, page, size int) QueryKey {
	return NewQueryKey("student", "list", search, fmt.Sprint(page), fmt.Sprint(size))
}

// GetByCI returns a student by identity number, read through the cache.
func (s *StudentService) GetByCI(ctx context.Context, ci string) (*models.Student, error) {
	key := studentByCIKey(ci)
	var cached models.Student
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	student, err := s.repo.FindByCI(ctx, ci)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	_ = s.cache.Set(ctx, key, student)
	return student, nil
}

type studentPage struct {
	Items      []models.Student  `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// List returns students matching an optional name search, paginated.
func (s *StudentService) List(ctx context.Context, search string, page, size int) ([]models.Student, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	key := studentListKey(search, page, size)
	var cached studentPage
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached.Items, &cached.Pagination, nil
	}
	students, total, err := s.repo.List(ctx, search, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	pagination := models.Pagination{Page: page, PageSize: size, TotalCount: total}
	_ = s.cache.Set(ctx, key, studentPage{Items: students, Pagination: pagination})
	return students, &pagination, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.Exists(ctx, req.CI)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this CI already exists")
	}
	student := &models.Student{
		CI:              req.CI,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		BirthDate:       normalizeDate(req.BirthDate),
		RegistrationNum: req.RegistrationNum,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this CI already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.cache.Invalidate(ctx, NewQueryKey("student", "list"))
	return student, nil
}

// Update replaces a student's mutable fields.
func (s *StudentService) Update(ctx context.Context, ci string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.repo.FindByCI(ctx, ci)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	existing.FirstName = req.FirstName
	existing.LastName = req.LastName
	existing.Email = req.Email
	existing.BirthDate = normalizeDate(req.BirthDate)
	existing.RegistrationNum = req.RegistrationNum
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.cache.Evict(ctx, studentByCIKey(ci))
	s.cache.Invalidate(ctx, NewQueryKey("student", "list"))
	return existing, nil
}

// Delete removes a student record.
func (s *StudentService) Delete(ctx context.Context, ci string) error {
	if err := s.repo.Delete(ctx, ci); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.cache.Evict(ctx, studentByCIKey(ci))
	s.cache.Invalidate(ctx, NewQueryKey("student", "list"))
	return nil
}
