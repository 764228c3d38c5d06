package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, mr, cleanup
}

func TestQueue_PushPop(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "payout_queue")
	ctx := context.Background()

	msg := &PayoutMessage{
		PayoutID:    42,
		UserID:      7,
		Amount:      12.50,
		Method:      "paypal",
		RequestedAt: time.Now().Unix(),
	}
	require.NoError(t, q.Push(ctx, msg))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *msg, *got)

	length, err = q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), length)
}

func TestQueue_FIFO(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "payout_fifo")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Push(ctx, &PayoutMessage{PayoutID: int64(i)}))
	}

	for i := 1; i <= 3; i++ {
		got, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(i), got.PayoutID)
	}
}

func TestQueue_PopEmpty(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "payout_empty")

	got, err := q.Pop(context.Background(), 10*time.Millisecond)
	// miniredis 对 BRPOP 超时的支持不完整，出错时不做断言
	if err == nil {
		assert.Nil(t, got)
	}
}

func TestQueue_PopMalformed(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "payout_bad")
	_, err := mr.Lpush("payout_bad", "{not json")
	require.NoError(t, err)

	got, err := q.Pop(context.Background(), time.Second)
	assert.Error(t, err)
	assert.Nil(t, got)
}
