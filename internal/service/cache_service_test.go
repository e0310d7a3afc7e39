package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-core/uni-records-api/internal/models"
	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
	failing bool
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.failing {
		return errors.New("redis down")
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.failing {
		return errors.New("redis down")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, key string) error {
	if m.failing {
		return errors.New("redis down")
	}
	delete(m.entries, key)
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	if m.failing {
		return errors.New("redis down")
	}
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestQueryKeyString(t *testing.T) {
	key := NewQueryKey("enrollment", "student", "S1")
	assert.Equal(t, "uni:enrollment:student:S1", key.String())
	assert.Equal(t, "uni:enrollment:student:S1*", key.Pattern())
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	key := NewQueryKey("student", "ci", "S1")
	require.NoError(t, svc.Set(context.Background(), key, models.Student{CI: "S1", FirstName: "Ana"}))

	var got models.Student
	hit, err := svc.Get(context.Background(), key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Ana", got.FirstName)
}

func TestCacheServiceMiss(t *testing.T) {
	svc := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true)

	var got models.Student
	hit, err := svc.Get(context.Background(), NewQueryKey("student", "ci", "missing"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceInvalidateLeavesUnrelatedKeys(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	enrollmentKey := NewQueryKey("enrollment", "student", "S1")
	subjectKey := NewQueryKey("subject", "code", "MATH101")
	require.NoError(t, svc.Set(ctx, enrollmentKey, []models.Enrollment{{ID: "e1"}}))
	require.NoError(t, svc.Set(ctx, subjectKey, models.Subject{Code: "MATH101"}))

	svc.Invalidate(ctx, enrollmentKey)

	var enrollments []models.Enrollment
	hit, err := svc.Get(ctx, enrollmentKey, &enrollments)
	require.NoError(t, err)
	assert.False(t, hit, "invalidated key must not serve stale data")

	var subject models.Subject
	hit, err = svc.Get(ctx, subjectKey, &subject)
	require.NoError(t, err)
	assert.True(t, hit, "unrelated key must survive invalidation")
}

func TestCacheServiceEvictRemovesOnlyExactKey(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	exact := NewQueryKey("enrollment", "id", "e1")
	sibling := NewQueryKey("enrollment", "id", "e10")
	require.NoError(t, svc.Set(ctx, exact, models.Enrollment{ID: "e1"}))
	require.NoError(t, svc.Set(ctx, sibling, models.Enrollment{ID: "e10"}))

	svc.Evict(ctx, exact)

	var got models.Enrollment
	hit, err := svc.Get(ctx, exact, &got)
	require.NoError(t, err)
	assert.False(t, hit, "evicted key must not serve stale data")

	// A point delete must not sweep keys that merely share the prefix.
	hit, err = svc.Get(ctx, sibling, &got)
	require.NoError(t, err)
	assert.True(t, hit, "prefix sibling must survive a point eviction")
}

func TestCacheServiceInvalidatePatternCoversListVariants(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, NewQueryKey("student", "list", "", "1", "20"), []models.Student{{CI: "S1"}}))
	require.NoError(t, svc.Set(ctx, NewQueryKey("student", "list", "ana", "2", "50"), []models.Student{{CI: "S2"}}))

	svc.Invalidate(ctx, NewQueryKey("student", "list"))

	assert.Empty(t, repo.entries)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)

	key := NewQueryKey("student", "ci", "S1")
	require.NoError(t, svc.Set(context.Background(), key, models.Student{CI: "S1"}))
	assert.Empty(t, repo.entries)

	var got models.Student
	hit, err := svc.Get(context.Background(), key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceNilReceiverIsInert(t *testing.T) {
	var svc *CacheService

	var got models.Student
	hit, err := svc.Get(context.Background(), NewQueryKey("student", "ci", "S1"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Set(context.Background(), NewQueryKey("student", "ci", "S1"), got))
	svc.Invalidate(context.Background(), NewQueryKey("student", "ci", "S1"))
	svc.Evict(context.Background(), NewQueryKey("student", "ci", "S1"))
}

func TestCacheServiceInvalidateBestEffort(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.failing = true
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	// Must not panic or propagate the failure.
	svc.Invalidate(context.Background(), NewQueryKey("student", "ci", "S1"))
}
