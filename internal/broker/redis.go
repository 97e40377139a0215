// Package broker wraps go-redis v9 as the durable FIFO stage between
// ingest and the drain worker. Tickets are pushed onto the list head and
// popped from the tail, so the broker preserves submission order.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by BlockingPopRight when the timeout expires with
// no record available. Callers loop on it.
var ErrEmpty = errors.New("broker queue empty")

// RedisBroker is the go-redis backed FIFO adapter.
type RedisBroker struct {
	rdb *redis.Client
	key string
}

// New connects to Redis at addr. A failed startup ping is logged but
// not fatal: broker outage surfaces as 503 on ingest and as retries in
// the drain worker, and the client reconnects on its own.
func New(addr, key string) *RedisBroker {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  -1, // BRPOP manages its own timeout
		WriteTimeout: 2 * time.Second,
		PoolSize:     20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("broker unreachable at startup, operations will retry", "addr", addr, "error", err)
	} else {
		slog.Info("broker connected", "addr", addr, "key", key)
	}
	return &RedisBroker{rdb: rdb, key: key}
}

// NewWithClient wraps an existing client. Used by tests with miniredis.
func NewWithClient(rdb *redis.Client, key string) *RedisBroker {
	return &RedisBroker{rdb: rdb, key: key}
}

// Close shuts down the underlying client.
func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}

// PushLeft appends a record at the head of the FIFO (LPUSH).
func (b *RedisBroker) PushLeft(ctx context.Context, value []byte) error {
	return b.rdb.LPush(ctx, b.key, value).Err()
}

// BlockingPopRight pops the oldest record from the tail (BRPOP),
// blocking up to timeout. Returns ErrEmpty on timeout.
func (b *RedisBroker) BlockingPopRight(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := b.rdb.BRPop(ctx, timeout, b.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrEmpty
		}
		return nil, err
	}
	// BRPOP returns (key, value).
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}
	return []byte(res[1]), nil
}

// Depth returns the number of records waiting in the FIFO (LLEN).
func (b *RedisBroker) Depth(ctx context.Context) (int64, error) {
	return b.rdb.LLen(ctx, b.key).Result()
}
