package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type studentLocker interface {
	FindForUpdate(ctx context.Context, tx *sqlx.Tx, ci string) (*models.Student, error)
}

type teacherLocker interface {
	FindForUpdate(ctx context.Context, tx *sqlx.Tx, ci string) (*models.Teacher, error)
}

type subjectLocker interface {
	FindForUpdate(ctx context.Context, tx *sqlx.Tx, code string) (*models.Subject, error)
}

type courseLocker interface {
	FindForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Course, error)
}

// LockService reads a record under a row lock and keeps the lock for a
// configured hold duration before committing. A second request for the
// same record blocks inside the database until the first transaction
// commits, which makes lock contention observable end to end without
// touching production data.
//
// Cancelling the request context during either the wait or the hold
// rolls the transaction back and reports ErrLockInterrupted.
type LockService struct {
	db       *sqlx.DB
	students studentLocker
	teachers teacherLocker
	subjects subjectLocker
	courses  courseLocker
	hold     time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewLockService constructs LockService. hold is how long each acquired
// lock is kept before commit.
func NewLockService(db *sqlx.DB, students studentLocker, teachers teacherLocker, subjects subjectLocker, courses courseLocker, hold time.Duration, metrics *MetricsService, logger *zap.Logger) *LockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockService{db: db, students: students, teachers: teachers, subjects: subjects, courses: courses, hold: hold, metrics: metrics, logger: logger}
}

// fetchWithLock runs find inside a transaction, holds the row lock for
// s.hold, then commits. find must issue a SELECT ... FOR UPDATE.
func fetchWithLock[T any](ctx context.Context, s *LockService, entity, notFoundMsg string, find func(ctx context.Context, tx *sqlx.Tx) (*T, error)) (*T, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, appErrors.Clone(appErrors.ErrLockInterrupted, "lock acquisition was interrupted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}

	waitStart := time.Now()
	record, err := find(ctx, tx)
	if s.metrics != nil {
		s.metrics.ObserveLockWait(entity, time.Since(waitStart))
	}
	if err != nil {
		_ = tx.Rollback()
		if ctx.Err() != nil {
			return nil, appErrors.Clone(appErrors.ErrLockInterrupted, "lock acquisition was interrupted")
		}
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire record lock")
	}

	holdStart := time.Now()
	timer := time.NewTimer(s.hold)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		_ = tx.Rollback()
		if s.metrics != nil {
			s.metrics.ObserveLockHold(entity, time.Since(holdStart))
		}
		s.logger.Warn("record lock hold interrupted",
			zap.String("entity", entity),
			zap.Duration("held", time.Since(holdStart)))
		return nil, appErrors.Clone(appErrors.ErrLockInterrupted, "lock hold was interrupted")
	}
	if s.metrics != nil {
		s.metrics.ObserveLockHold(entity, time.Since(holdStart))
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release record lock")
	}
	return record, nil
}

// FetchStudentWithLock reads a student while holding an exclusive row lock.
func (s *LockService) FetchStudentWithLock(ctx context.Context, ci string) (*models.Student, error) {
	return fetchWithLock(ctx, s, "student", "student not found", func(ctx context.Context, tx *sqlx.Tx) (*models.Student, error) {
		return s.students.FindForUpdate(ctx, tx, ci)
	})
}

// FetchTeacherWithLock reads a teacher while holding an exclusive row lock.
func (s *LockService) FetchTeacherWithLock(ctx context.Context, ci string) (*models.Teacher, error) {
	return fetchWithLock(ctx, s, "teacher", "teacher not found", func(ctx context.Context, tx *sqlx.Tx) (*models.Teacher, error) {
		return s.teachers.FindForUpdate(ctx, tx, ci)
	})
}

// FetchSubjectWithLock reads a subject while holding an exclusive row lock.
func (s *LockService) FetchSubjectWithLock(ctx context.Context, code string) (*models.Subject, error) {
	return fetchWithLock(ctx, s, "subject", "subject not found", func(ctx context.Context, tx *sqlx.Tx) (*models.Subject, error) {
		return s.subjects.FindForUpdate(ctx, tx, code)
	})
}

// FetchCourseWithLock reads a course while holding an exclusive row lock.
func (s *LockService) FetchCourseWithLock(ctx context.Context, id int64) (*models.Course, error) {
	return fetchWithLock(ctx, s, "course", "course not found", func(ctx context.Context, tx *sqlx.Tx) (*models.Course, error) {
		return s.courses.FindForUpdate(ctx, tx, id)
	})
}
