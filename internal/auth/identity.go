package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/authz"
	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/pkg/apperr"
)

const (
	identityKeyPrefix   = "identity:"
	generationKeyPrefix = "identity:gen:"
	// generationTTL must outlive any in-flight Load.
	generationTTL = 24 * time.Hour
)

// storeIfCurrent writes the snapshot only while the user's generation still
// matches the one read before the store lookup.
var storeIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// UserSource reads users with their role projection.
type UserSource interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// IdentityCache loads the per-request identity snapshot, caching it in Redis
// until the user's roles change. With a nil Redis client every load reads the store.
type IdentityCache struct {
	users  UserSource
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewIdentityCache creates an identity loader. rdb may be nil.
func NewIdentityCache(users UserSource, rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *IdentityCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityCache{users: users, rdb: rdb, ttl: ttl, logger: logger}
}

func identityKey(id uuid.UUID) string {
	return identityKeyPrefix + id.String()
}

func generationKey(id uuid.UUID) string {
	return generationKeyPrefix + id.String()
}

// Load returns the identity snapshot of userID. A user that no longer exists is unauthenticated.
func (c *IdentityCache) Load(ctx context.Context, userID uuid.UUID) (*authz.Identity, error) {
	gen, cacheable := "", false
	if c.rdb != nil {
		gen, cacheable = c.generation(ctx, userID)
		if cacheable {
			if id := c.cached(ctx, userID); id != nil {
				return id, nil
			}
		}
	}

	u, err := c.users.GetUserByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	id := authz.IdentityFromUser(u)

	if cacheable {
		c.store(ctx, userID, gen, id)
	}
	return id, nil
}

// generation reads the invalidation counter of userID. ok is false when Redis is unreachable.
func (c *IdentityCache) generation(ctx context.Context, userID uuid.UUID) (string, bool) {
	gen, err := c.rdb.Get(ctx, generationKey(userID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		c.logger.Warn("identity cache read failed", zap.Error(err))
		return "", false
	}
	return gen, true
}

func (c *IdentityCache) cached(ctx context.Context, userID uuid.UUID) *authz.Identity {
	raw, err := c.rdb.Get(ctx, identityKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("identity cache read failed", zap.Error(err))
		}
		return nil
	}
	var id authz.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		c.logger.Warn("discarding unreadable identity cache entry", zap.String("user_id", userID.String()))
		return nil
	}
	return &id
}

// store caches id unless an invalidation ran since gen was read.
func (c *IdentityCache) store(ctx context.Context, userID uuid.UUID, gen string, id *authz.Identity) {
	raw, err := json.Marshal(id)
	if err != nil {
		c.logger.Warn("identity cache write failed", zap.Error(err))
		return
	}
	keys := []string{generationKey(userID), identityKey(userID)}
	written, err := storeIfCurrent.Run(ctx, c.rdb, keys, gen, raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.Warn("identity cache write failed", zap.Error(err))
		return
	}
	if written == 0 {
		c.logger.Debug("identity snapshot superseded", zap.String("user_id", userID.String()))
	}
}

// Invalidate drops cached snapshots and bumps each user's generation so a
// concurrent Load cannot write back what it read before the change.
// Its signature matches store.RolesChangedFunc.
func (c *IdentityCache) Invalidate(ctx context.Context, userIDs []uuid.UUID) {
	if c.rdb == nil || len(userIDs) == 0 {
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Expire(ctx, generationKey(id), generationTTL)
			pipe.Del(ctx, identityKey(id))
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("identity cache invalidation failed", zap.Error(err), zap.Int("users", len(userIDs)))
	}
}
