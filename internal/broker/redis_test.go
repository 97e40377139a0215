package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	b := NewWithClient(client, "ticket_queue")
	t.Cleanup(func() { b.Close() })
	return b, srv
}

func TestPushPopFIFO(t *testing.T) {
	b, _ := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.PushLeft(ctx, []byte("first")))
	require.NoError(t, b.PushLeft(ctx, []byte("second")))
	require.NoError(t, b.PushLeft(ctx, []byte("third")))

	depth, err := b.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), depth)

	// Pop from the tail: submission order preserved.
	for _, want := range []string{"first", "second", "third"} {
		got, err := b.BlockingPopRight(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	depth, err = b.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestBlockingPopTimesOutEmpty(t *testing.T) {
	b, _ := newTestBroker(t)

	_, err := b.BlockingPopRight(context.Background(), 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDepthOnClosedServer(t *testing.T) {
	b, srv := newTestBroker(t)
	srv.Close()

	_, err := b.Depth(context.Background())
	assert.Error(t, err)
}
