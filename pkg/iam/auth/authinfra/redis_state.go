package authinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/clientportal/pkg/iam"
	"github.com/Abraxas-365/clientportal/pkg/iam/auth"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStateManager stores OAuth states in Redis so any instance can finish a
// flow another one started.
type RedisStateManager struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ auth.StateManager = (*RedisStateManager)(nil)

func NewRedisStateManager(rdb *redis.Client, ttl time.Duration) *RedisStateManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStateManager{rdb: rdb, ttl: ttl}
}

func stateKey(state string) string { return fmt.Sprintf("oauth:state:%s", state) }

func (m *RedisStateManager) Generate(ctx context.Context, redirectTo string) (string, error) {
	state := uuid.NewString()
	if err := m.rdb.Set(ctx, stateKey(state), redirectTo, m.ttl).Err(); err != nil {
		return "", iam.ErrUnavailable(err).WithDetail("op", "oauth_state.set")
	}
	return state, nil
}

// Consume uses GETDEL so a state can be redeemed once across all instances.
func (m *RedisStateManager) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", auth.ErrInvalidState()
	}
	redirectTo, err := m.rdb.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", auth.ErrInvalidState()
	}
	if err != nil {
		return "", iam.ErrUnavailable(err).WithDetail("op", "oauth_state.getdel")
	}
	return redirectTo, nil
}
