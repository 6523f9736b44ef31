package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"translation-backend/pkg/models"
)

const (
	resultKeyPrefix = "translation_result:"
	cacheKeyPrefix  = "translation_cache:"
)

// RedisStore keeps job records and cached translations as JSON values with
// TTLs enforced natively by redis. All records carry the longer result TTL
// so a slow poller still finds its result; once a poller has seen a
// terminal state the remaining lifetime drops to the terminal TTL.
type RedisStore struct {
	client      *redis.Client
	resultTTL   time.Duration
	terminalTTL time.Duration
}

func NewRedisStore(addr string, resultTTL, terminalTTL time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, resultTTL: resultTTL, terminalTTL: terminalTTL}, nil
}

func resultKey(id uuid.UUID) string {
	return resultKeyPrefix + id.String()
}

func cacheKey(fingerprint string) string {
	return cacheKeyPrefix + fingerprint
}

func marshalRecord(record models.JobRecord) ([]byte, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job record: %w", err)
	}
	return body, nil
}

func (s *RedisStore) PutInitial(ctx context.Context, id uuid.UUID) error {
	body, err := marshalRecord(models.QueuedRecord())
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, resultKey(id), body, s.resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to store initial job record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) GetStatus(ctx context.Context, id uuid.UUID) (models.JobRecord, error) {
	body, err := s.client.Get(ctx, resultKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.JobRecord{}, ErrNotFound
		}
		return models.JobRecord{}, fmt.Errorf("failed to read job record %s: %w", id, err)
	}

	var record models.JobRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return models.JobRecord{}, fmt.Errorf("failed to unmarshal job record %s: %w", id, err)
	}
	return record, nil
}

func (s *RedisStore) PutTerminal(ctx context.Context, id uuid.UUID, record models.JobRecord) error {
	body, err := marshalRecord(record)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, resultKey(id), body, s.resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to store job record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) DeleteIfTerminal(ctx context.Context, id uuid.UUID) error {
	record, err := s.GetStatus(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if !record.Status.Terminal() {
		return nil
	}

	if err := s.client.Del(ctx, resultKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete job record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) ExpireIfTerminal(ctx context.Context, id uuid.UUID) error {
	record, err := s.GetStatus(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if !record.Status.Terminal() {
		return nil
	}

	if err := s.client.Expire(ctx, resultKey(id), s.terminalTTL).Err(); err != nil {
		return fmt.Errorf("failed to expire job record %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) WriteBatch(ctx context.Context, records map[uuid.UUID]models.JobRecord, entries []CacheEntry) error {
	pipe := s.client.TxPipeline()

	for id, record := range records {
		body, err := marshalRecord(record)
		if err != nil {
			return err
		}
		pipe.Set(ctx, resultKey(id), body, s.resultTTL)
	}

	for _, entry := range entries {
		pipe.Set(ctx, cacheKey(entry.Fingerprint), entry.Text, entry.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write batch of %d records: %w", len(records), err)
	}

	slog.Info("saved batch results", "records", len(records), "cache_entries", len(entries))
	return nil
}

func (s *RedisStore) GetCached(ctx context.Context, fingerprint string) (string, bool, error) {
	text, err := s.client.Get(ctx, cacheKey(fingerprint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read translation cache: %w", err)
	}
	return text, true, nil
}

func (s *RedisStore) PutCached(ctx context.Context, fingerprint, text string, ttl time.Duration) error {
	if err := s.client.Set(ctx, cacheKey(fingerprint), text, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write translation cache: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() {
	if err := s.client.Close(); err != nil {
		slog.Error("error closing redis connection", "error", err)
	}
}
