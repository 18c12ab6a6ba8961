package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/account-service/internal/model"
)

// fillScript stores a cache entry only if the record's generation counter
// still holds the value read before the store lookup. Writers bump the
// counter around every update, so a reader that raced a write cannot put
// the pre-write record back.
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if (gen == false and ARGV[2] == '') or gen == ARGV[2] then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
	return 1
end
return 0
`)

// CachedUserStore caches FindByID results in Redis in front of another
// UserStore. Email lookups always go to the backing store since login and
// registration need the authoritative record. Password hashes are never
// written to Redis; records served from the cache have an empty
// PasswordHash and credential checks must read through Authoritative.
//
// Read failures fall through to the backing store. An update whose cache
// entry cannot be invalidated first is refused.
type CachedUserStore struct {
	next   UserStore
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	log    *slog.Logger
}

func NewCachedUserStore(next UserStore, rdb redis.Cmdable, ttl time.Duration, prefix string, log *slog.Logger) *CachedUserStore {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedUserStore{next: next, rdb: rdb, ttl: ttl, prefix: prefix, log: log}
}

// Uncached returns the backing store.
func (s *CachedUserStore) Uncached() UserStore { return s.next }

func (s *CachedUserStore) key(id string) string    { return s.prefix + ":user:" + id }
func (s *CachedUserStore) genKey(id string) string { return s.key(id) + ":gen" }

func (s *CachedUserStore) FindByID(ctx context.Context, id string) (model.User, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	switch {
	case err == nil:
		var u model.User
		if jerr := json.Unmarshal(raw, &u); jerr == nil {
			return u, nil
		}
		s.log.WarnContext(ctx, "user cache entry unreadable", "user_id", id)
	case !errors.Is(err, redis.Nil):
		s.log.WarnContext(ctx, "user cache read failed", "user_id", id, "error", err)
		return s.next.FindByID(ctx, id)
	}

	gen, err := s.rdb.Get(ctx, s.genKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.WarnContext(ctx, "user cache read failed", "user_id", id, "error", err)
		return s.next.FindByID(ctx, id)
	}

	u, err := s.next.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	s.fill(ctx, u, gen)
	return u, nil
}

func (s *CachedUserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return s.next.FindByEmail(ctx, email)
}

func (s *CachedUserStore) Create(ctx context.Context, u model.User) (model.User, error) {
	return s.next.Create(ctx, u)
}

// UpdateByID invalidates the cached copy before and after writing through.
// If the first invalidation fails the write is not attempted.
func (s *CachedUserStore) UpdateByID(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	if err := s.invalidate(ctx, id); err != nil {
		return model.User{}, fmt.Errorf("invalidate user cache: %w", err)
	}
	u, err := s.next.UpdateByID(ctx, id, patch)
	if err != nil {
		return model.User{}, err
	}
	if err := s.invalidate(ctx, id); err != nil {
		s.log.WarnContext(ctx, "user cache invalidation failed", "user_id", id, "error", err)
	}
	return u, nil
}

// invalidate bumps the generation counter and drops the entry.
func (s *CachedUserStore) invalidate(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, s.genKey(id))
	pipe.PExpire(ctx, s.genKey(id), 2*s.ttl)
	pipe.Del(ctx, s.key(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *CachedUserStore) fill(ctx context.Context, u model.User, gen string) {
	b, err := json.Marshal(u)
	if err != nil {
		return
	}
	keys := []string{s.key(u.ID), s.genKey(u.ID)}
	if err := fillScript.Run(ctx, s.rdb, keys, b, gen, s.ttl.Milliseconds()).Err(); err != nil {
		s.log.WarnContext(ctx, "user cache write failed", "user_id", u.ID, "error", err)
	}
}
