package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/model"
)

// Lease is a held creation lock. Release is safe to call on error paths; it
// only deletes the lock when this lease still owns it.
type Lease interface {
	Release(ctx context.Context)
}

// LockManager guards challenge creation so two workers racing on the same
// issue cannot create duplicate challenges. Acquire fails hard with
// ErrChallengeCreating when the lock is held; the caller abandons the attempt
// and relies on redelivery.
type LockManager interface {
	Acquire(ctx context.Context, provider model.Provider, repositoryID string, number int) (Lease, error)
	ForceRelease(ctx context.Context, provider model.Provider, repositoryID string, number int) error
}

// releaseScript deletes the lock only when the stored owner token matches,
// so an expired lease reclaimed by another worker is never released by the
// original holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLockManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLockManager builds a Redis-leased lock manager. The ttl bounds how long
// a crashed worker can hold an issue hostage before another replica may
// reclaim it.
func NewLockManager(client *redis.Client, ttl time.Duration) LockManager {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisLockManager{client: client, ttl: ttl}
}

func lockKey(provider model.Provider, repositoryID string, number int) string {
	return fmt.Sprintf("tcx:lock:%s:%s:%d", provider, repositoryID, number)
}

func (m *redisLockManager) Acquire(ctx context.Context, provider model.Provider, repositoryID string, number int) (Lease, error) {
	key := lockKey(provider, repositoryID, number)
	owner := uuid.NewString()

	ok, err := m.client.SetNX(ctx, key, owner, m.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring creation lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChallengeCreating, key)
	}

	return &redisLease{client: m.client, key: key, owner: owner}, nil
}

func (m *redisLockManager) ForceRelease(ctx context.Context, provider model.Provider, repositoryID string, number int) error {
	key := lockKey(provider, repositoryID, number)
	if err := m.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("force releasing creation lock: %w", err)
	}
	return nil
}

type redisLease struct {
	client *redis.Client
	key    string
	owner  string
}

func (l *redisLease) Release(ctx context.Context) {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil {
		slog.ErrorContext(ctx, "releasing creation lock", "key", l.key, "error", err)
	}
}
