package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-insights/internal/application/port"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), Config{Address: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), Config{Address: addr}, zap.NewNop())
	assert.Error(t, err)
}

func TestRedisReportCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	c := NewRedisReportCache(rdb, "test", zap.NewNop())

	_, ok, err := c.Get(ctx, "u1", "summary")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "u1", "summary", []byte(`{"a":1}`), time.Minute))
	require.NoError(t, c.Set(ctx, "u1", "monthly:6", []byte(`[]`), time.Minute))
	require.NoError(t, c.Set(ctx, "u2", "summary", []byte(`{"b":2}`), time.Minute))

	got, ok, err := c.Get(ctx, "u1", "summary")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got))

	members, err := mr.Members("test:report-index:u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test:report:u1:summary", "test:report:u1:monthly:6"}, members)
	assert.Equal(t, time.Minute, mr.TTL("test:report-index:u1"))

	require.NoError(t, c.Invalidate(ctx, "u1"))

	_, ok, err = c.Get(ctx, "u1", "summary")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "u1", "monthly:6")
	assert.False(t, ok)
	assert.False(t, mr.Exists("test:report-index:u1"))

	got, ok, err = c.Get(ctx, "u2", "summary")
	require.NoError(t, err)
	assert.True(t, ok, "other users keep their entries")
	assert.Equal(t, `{"b":2}`, string(got))
}

func TestRedisReportCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	c := NewRedisReportCache(rdb, "", zap.NewNop())

	require.NoError(t, c.Set(ctx, "u1", "summary", []byte("x"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "u1", "summary")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisReportCache_InvalidateEmpty(t *testing.T) {
	_, rdb := newTestRedis(t)
	c := NewRedisReportCache(rdb, "test", zap.NewNop())

	assert.NoError(t, c.Invalidate(context.Background(), "nobody"))
}

func TestRedisReportCache_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	c := NewRedisReportCache(rdb, "test", zap.NewNop())
	mr.Close()

	_, _, err := c.Get(ctx, "u1", "summary")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "u1", "summary", []byte("x"), time.Minute))
	assert.Error(t, c.Invalidate(ctx, "u1"))
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, "test")

	lock, err := locker.Obtain(ctx, "invoice:inv-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:invoice:inv-1"))

	_, err = locker.Obtain(ctx, "invoice:inv-1", time.Minute)
	assert.ErrorIs(t, err, port.ErrLockNotObtained)

	other, err := locker.Obtain(ctx, "invoice:inv-2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lock.Release(ctx))
	again, err := locker.Obtain(ctx, "invoice:inv-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locker := NewRedisLocker(rdb, "test")
	mr.Close()

	_, err := locker.Obtain(context.Background(), "invoice:inv-1", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, port.ErrLockNotObtained)
}
