package service

import "context"

// Entity stores resolve the primary records that association writes
// reference. A missing reference surfaces as REFERENCE_NOT_FOUND in the
// calling service, never as a partial write.

type studentStore interface {
	Exists(ctx context.Context, ci string) (bool, error)
}

type teacherStore interface {
	Exists(ctx context.Context, ci string) (bool, error)
}

type subjectStore interface {
	Exists(ctx context.Context, code string) (bool, error)
}

type courseStore interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
