package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	"github.com/redis/go-redis/v9"
)

var _ repositories.PrizeLocker = (*PrizeLocker)(nil)

// unlockScript deletes the key only when it still holds the caller's owner token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PrizeLocker is a lease lock backed by SET NX PX
type PrizeLocker struct {
	client *redis.Client
	prefix string
}

// NewPrizeLocker connects to Redis and returns a PrizeLocker
func NewPrizeLocker(ctx context.Context, addr, password string, db int) (*PrizeLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewPrizeLockerWithClient(client), nil
}

// NewPrizeLockerWithClient wraps an existing client
func NewPrizeLockerWithClient(client *redis.Client) *PrizeLocker {
	return &PrizeLocker{client: client, prefix: "prizedraw:lock:"}
}

func (l *PrizeLocker) Lock(ctx context.Context, key, owner string, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, l.prefix+key, owner, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repositories.ErrLockHeld
	}
	return nil
}

func (l *PrizeLocker) Unlock(ctx context.Context, key, owner string) error {
	err := unlockScript.Run(ctx, l.client, []string{l.prefix + key}, owner).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (l *PrizeLocker) Close() error {
	return l.client.Close()
}
