package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-service/internal/model"
)

// countingStore records how often FindByID reaches the backing store.
type countingStore struct {
	*MemoryUserStore
	findByID int
}

func (c *countingStore) FindByID(ctx context.Context, id string) (model.User, error) {
	c.findByID++
	return c.MemoryUserStore.FindByID(ctx, id)
}

func newCachedStore(t *testing.T) (*CachedUserStore, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	backing := &countingStore{MemoryUserStore: NewMemoryUserStore()}
	return NewCachedUserStore(backing, rdb, time.Minute, "test", nil), backing, mr
}

func TestCachedUserStoreServesRepeatReadsFromRedis(t *testing.T) {
	s, backing, mr := newCachedStore(t)
	ctx := context.Background()
	u, err := s.Create(ctx, model.User{Email: "a@b.com", PasswordHash: "hash"})
	require.NoError(t, err)

	first, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	second, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, backing.findByID)
	assert.True(t, mr.Exists("test:user:"+u.ID))
	assert.Equal(t, first.Email, second.Email)
}

func TestCachedUserStoreNeverStoresPasswordHash(t *testing.T) {
	s, _, mr := newCachedStore(t)
	ctx := context.Background()
	u, err := s.Create(ctx, model.User{Email: "a@b.com", PasswordHash: "secret-hash"})
	require.NoError(t, err)

	_, err = s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	cached, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)

	raw, err := mr.Get("test:user:" + u.ID)
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-hash")
	assert.Empty(t, cached.PasswordHash)

	fromStore, err := Authoritative(s).FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret-hash", fromStore.PasswordHash)
}

func TestAuthoritativeWithoutCache(t *testing.T) {
	m := NewMemoryUserStore()
	assert.Same(t, m, Authoritative(m))
}

func TestCachedUserStoreInvalidatesOnUpdate(t *testing.T) {
	s, backing, mr := newCachedStore(t)
	ctx := context.Background()
	u, err := s.Create(ctx, model.User{Email: "a@b.com", PasswordHash: "old"})
	require.NoError(t, err)
	_, err = s.FindByID(ctx, u.ID)
	require.NoError(t, err)

	name := "new"
	_, err = s.UpdateByID(ctx, u.ID, model.UserPatch{Name: &name})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:user:"+u.ID))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, 2, backing.findByID)
}

func TestCachedUserStoreRefusesUpdateWhenInvalidationFails(t *testing.T) {
	s, backing, mr := newCachedStore(t)
	ctx := context.Background()
	u, err := s.Create(ctx, model.User{Email: "a@b.com", Name: "old"})
	require.NoError(t, err)
	_, err = s.FindByID(ctx, u.ID)
	require.NoError(t, err)

	mr.SetError("ERR cache unavailable")
	name := "new"
	_, err = s.UpdateByID(ctx, u.ID, model.UserPatch{Name: &name})
	require.Error(t, err)
	mr.SetError("")

	stored, err := backing.MemoryUserStore.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "old", stored.Name)
	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Name, got.Name)
}

// pausingStore holds the first FindByID after it has read the record until
// release is closed.
type pausingStore struct {
	*MemoryUserStore
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingStore) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := p.MemoryUserStore.FindByID(ctx, id)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return u, err
}

func TestCachedUserStoreRacingReaderCannotRefillStaleRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	backing := &pausingStore{
		MemoryUserStore: NewMemoryUserStore(),
		read:            make(chan struct{}),
		release:         make(chan struct{}),
	}
	s := NewCachedUserStore(backing, rdb, time.Minute, "test", nil)
	ctx := context.Background()
	u, err := backing.MemoryUserStore.Create(ctx, model.User{Email: "a@b.com", Name: "old"})
	require.NoError(t, err)

	done := make(chan model.User)
	go func() {
		got, _ := s.FindByID(ctx, u.ID)
		done <- got
	}()
	<-backing.read

	name := "new"
	_, err = s.UpdateByID(ctx, u.ID, model.UserPatch{Name: &name})
	require.NoError(t, err)
	close(backing.release)
	assert.Equal(t, "old", (<-done).Name)

	assert.False(t, mr.Exists("test:user:"+u.ID))
	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
}

func TestCachedUserStoreFallsBackWhenRedisDown(t *testing.T) {
	s, backing, mr := newCachedStore(t)
	ctx := context.Background()
	u, err := s.Create(ctx, model.User{Email: "a@b.com"})
	require.NoError(t, err)

	mr.Close()

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 1, backing.findByID)
}

func TestCachedUserStoreDoesNotCacheMisses(t *testing.T) {
	s, _, mr := newCachedStore(t)

	_, err := s.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, mr.Keys())
}
