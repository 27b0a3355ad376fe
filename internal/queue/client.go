// Package queue carries validation logs from request handlers to the recorder.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vetdesk/internal/models"
)

// ErrEmpty is returned by Pop when nothing arrived before its poll interval.
var ErrEmpty = errors.New("queue: empty")

// QueueName is the Redis list holding pending logs.
const QueueName = "vetdesk:validation_logs"

type Queue interface {
	Push(ctx context.Context, l models.ValidationLog) error
	// Pop waits briefly for the next log and returns ErrEmpty if none came.
	Pop(ctx context.Context) (models.ValidationLog, error)
}

// Redis is a queue shared between stub instances.
type Redis struct {
	client *redis.Client
	wait   time.Duration
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, wait: time.Second}
}

func (q *Redis) Push(ctx context.Context, l models.ValidationLog) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, QueueName, data).Err()
}

func (q *Redis) Pop(ctx context.Context) (models.ValidationLog, error) {
	var l models.ValidationLog

	// BLPOP returns: [queue_name, value]
	result, err := q.client.BLPop(ctx, q.wait, QueueName).Result()
	if errors.Is(err, redis.Nil) {
		return l, ErrEmpty
	}
	if err != nil {
		return l, err
	}
	if err := json.Unmarshal([]byte(result[1]), &l); err != nil {
		return l, fmt.Errorf("malformed log %q: %w", result[1], err)
	}
	return l, nil
}

// Memory is an in-process queue. Push fails when the buffer is full.
type Memory struct {
	ch   chan models.ValidationLog
	wait time.Duration
}

func NewMemory(size int) *Memory {
	return &Memory{ch: make(chan models.ValidationLog, size), wait: time.Second}
}

func (q *Memory) Push(ctx context.Context, l models.ValidationLog) error {
	select {
	case q.ch <- l:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("queue: full")
	}
}

func (q *Memory) Pop(ctx context.Context) (models.ValidationLog, error) {
	t := time.NewTimer(q.wait)
	defer t.Stop()
	select {
	case l := <-q.ch:
		return l, nil
	case <-ctx.Done():
		return models.ValidationLog{}, ctx.Err()
	case <-t.C:
		return models.ValidationLog{}, ErrEmpty
	}
}
