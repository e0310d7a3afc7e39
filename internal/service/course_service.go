package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, term string, year, page, size int) ([]models.Course, int, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

// CourseRequest is the write payload for a scheduled course section.
type CourseRequest struct {
	Weekday  string `json:"weekday" validate:"required,oneof=monday tuesday wednesday thursday friday saturday"`
	TimeSlot string `json:"time_slot" validate:"required"`
	Term     string `json:"term" validate:"required"`
	Year     int    `json:"year" validate:"required,gte=2000"`
}

// CourseService manages scheduled course sections. Courses carry no
// natural key, so creation never conflicts.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger}
}

func courseByIDKey(id int64) QueryKey {
	return NewQueryKey("course", "id", fmt.Sprint(id))
}

func courseListKey(term string, year, page, size int) QueryKey {
	return NewQueryKey("course", "list", term, fmt.Sprint(year), fmt.Sprint(page), fmt.Sprint(size))
}

// GetByID returns a course section, read through the cache.
func (s *CourseService) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	key := courseByIDKey(id)
	var cached models.Course
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	_ = s.cache.Set(ctx, key, course)
	return course, nil
}

type coursePage struct {
	Items      []models.Course   `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// List returns course sections filtered by term and year, paginated.
func (s *CourseService) List(ctx context.Context, term string, year, page, size int) ([]models.Course, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	key := courseListKey(term, year, page, size)
	var cached coursePage
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached.Items, &cached.Pagination, nil
	}
	courses, total, err := s.repo.List(ctx, term, year, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	pagination := models.Pagination{Page: page, PageSize: size, TotalCount: total}
	_ = s.cache.Set(ctx, key, coursePage{Items: courses, Pagination: pagination})
	return courses, &pagination, nil
}

// Create schedules a new course section and returns it with its assigned id.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Weekday: req.Weekday, TimeSlot: req.TimeSlot, Term: req.Term, Year: req.Year}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.cache.Invalidate(ctx, NewQueryKey("course", "list"))
	return course, nil
}

// Update replaces a course section's schedule fields.
func (s *CourseService) Update(ctx context.Context, id int64, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	existing.Weekday = req.Weekday
	existing.TimeSlot = req.TimeSlot
	existing.Term = req.Term
	existing.Year = req.Year
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.cache.Evict(ctx, courseByIDKey(id))
	s.cache.Invalidate(ctx, NewQueryKey("course", "list"))
	return existing, nil
}

// Delete removes a course section.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.cache.Evict(ctx, courseByIDKey(id))
	s.cache.Invalidate(ctx, NewQueryKey("course", "list"))
	return nil
}
