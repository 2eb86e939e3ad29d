// Package session keeps the list of revoked session tokens until they expire.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/smartclass/portal/core"
)

const keyPrefix = "session:revoked:"

// Revoker tracks session tokens invalidated before their expiry (logout).
type Revoker interface {
	// Revoke marks tokenID as revoked until the token expires on its own.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevoker stores revoked token ids as expiring redis keys.
type RedisRevoker struct {
	Client *redis.Client
}

var (
	_ Revoker            = (*RedisRevoker)(nil)
	_ core.HealthChecker = (*RedisRevoker)(nil)
)

// NewRedisRevoker connects to redis with short timeouts.
func NewRedisRevoker(conf core.RedisConfig) *RedisRevoker {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Password:     conf.Password,
		DB:           conf.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &RedisRevoker{Client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return errors.Wrap(r.Client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(), "revoking session")
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.Client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking session")
	}
	return n > 0, nil
}

// Healthy verifies redis connectivity.
func (r *RedisRevoker) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

func (r *RedisRevoker) Close() error {
	return r.Client.Close()
}

// MemoryRevoker keeps revoked token ids in process memory.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time // {tokenID: expiresAt}
	nowFunc func() time.Time
}

var _ Revoker = (*MemoryRevoker)(nil)

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), nowFunc: time.Now}
}

func (r *MemoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
	if expiresAt.After(now) {
		r.revoked[tokenID] = expiresAt
	}
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[tokenID]
	return ok && exp.After(r.nowFunc()), nil
}
