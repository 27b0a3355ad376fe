package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdesk/internal/models"
)

func TestRedisQueueFIFO(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewRedis(client)
	q.wait = 50 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, models.ValidationLog{Email: "a@x.com", Score: 90}))
	require.NoError(t, q.Push(ctx, models.ValidationLog{Email: "b@x.com", Score: 10}))

	first, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", first.Email)
	assert.Equal(t, 90, first.Score)

	second, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", second.Email)

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrEmpty)

	mr.Lpush(QueueName, "{garbage")
	_, err = q.Pop(ctx)
	assert.ErrorContains(t, err, "malformed")
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemory(1)
	q.wait = 20 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, models.ValidationLog{Email: "a@x.com"}))
	assert.Error(t, q.Push(ctx, models.ValidationLog{Email: "b@x.com"}), "buffer is full")

	l, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", l.Email)

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrEmpty)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Pop(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}
