package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"translation-backend/pkg/models"
)

const blockTimeout = 5 * time.Second

func connectToRedis(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	var err error
	for i := 0; i < MaxConnectRetry; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), blockTimeout)
		err = client.Ping(ctx).Err()
		cancel()
		if err == nil {
			slog.Info("connected to redis", "addr", addr)
			return client, nil
		}
		slog.Warn("failed to connect to redis", "attempt", i+1, "max_attempts", MaxConnectRetry, "error", err)
		time.Sleep(RetryDelay)
	}
	client.Close()
	return nil, fmt.Errorf("failed to connect to redis at %s after %d attempts: %w", addr, MaxConnectRetry, err)
}

// RedisPublisher appends tasks to the tail of the queue list. The initial
// job record must already be stored before publishing so a poller can never
// observe an unknown id for an accepted request.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(addr string) (*RedisPublisher, error) {
	client, err := connectToRedis(addr)
	if err != nil {
		return nil, err
	}
	return &RedisPublisher{client: client}, nil
}

func (p *RedisPublisher) PublishTranslationTask(ctx context.Context, payload models.TranslationTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal translation task payload: %w", err)
	}

	if err := p.client.RPush(ctx, TranslationQueue, body).Err(); err != nil {
		return fmt.Errorf("failed to push task to %s: %w", TranslationQueue, err)
	}

	return nil
}

func (p *RedisPublisher) Close() {
	if err := p.client.Close(); err != nil {
		slog.Error("error closing redis connection", "error", err)
	}
}

type redisTask struct {
	payload []byte
}

func (t *redisTask) Type() string {
	return TranslationQueue
}

func (t *redisTask) Payload() []byte {
	return t.payload
}

// BLPOP already removed the message from the list, so there is nothing to
// settle. Failed tasks are recorded in the result store, never redelivered.
func (t *redisTask) Ack() error {
	return nil
}

func (t *redisTask) Nack() error {
	return nil
}

func (t *redisTask) Reject() error {
	return nil
}

// RedisReciever pops tasks from the head of the queue list and forwards
// them on a channel. The blocking pop parks the consumer while the queue is
// empty instead of busy-polling.
type RedisReciever struct {
	client *redis.Client
	tasks  chan Task
	stop   chan struct{}
}

func NewRedisReciever(addr string) (*RedisReciever, error) {
	client, err := connectToRedis(addr)
	if err != nil {
		return nil, err
	}

	c := &RedisReciever{
		client: client,
		tasks:  make(chan Task),
		stop:   make(chan struct{}),
	}

	go c.consume()

	return c, nil
}

func (c *RedisReciever) consume() {
	defer close(c.tasks)

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		res, err := c.client.BLPop(context.Background(), blockTimeout, TranslationQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			select {
			case <-c.stop:
				return
			default:
			}
			slog.Warn("error popping task from redis queue", "error", err)
			time.Sleep(RetryDelay)
			continue
		}

		// BLPOP returns [key, value].
		c.tasks <- &redisTask{payload: []byte(res[1])}
	}
}

func (c *RedisReciever) Tasks() <-chan Task {
	return c.tasks
}

func (c *RedisReciever) Close() {
	close(c.stop)
	if err := c.client.Close(); err != nil {
		slog.Error("error closing redis connection", "error", err)
	}
}
