package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisRecordingRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRecordingRepository(client *redis.Client) ports.RecordingRepository {
	return &RedisRecordingRepository{
		client: client,
		prefix: "remoteeye:recording:",
	}
}

func (r *RedisRecordingRepository) recordingKey(id string) string {
	return r.prefix + id
}

func (r *RedisRecordingRepository) deviceKey(deviceID domain.DeviceID) string {
	return r.prefix + "device:" + string(deviceID)
}

func (r *RedisRecordingRepository) Create(ctx context.Context, rec *domain.Recording) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.recordingKey(rec.ID), data, 0)
	pipe.ZAdd(ctx, r.deviceKey(rec.DeviceID), redis.Z{
		Score:  float64(rec.CreatedAt.UnixNano()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store recording: %w", err)
	}
	return nil
}

func (r *RedisRecordingRepository) GetByID(ctx context.Context, id string) (*domain.Recording, error) {
	data, err := r.client.Get(ctx, r.recordingKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRecordingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording from Redis: %w", err)
	}

	var rec domain.Recording
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recording: %w", err)
	}
	return &rec, nil
}

func (r *RedisRecordingRepository) Delete(ctx context.Context, id string) error {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.recordingKey(id))
	pipe.ZRem(ctx, r.deviceKey(rec.DeviceID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}

func (r *RedisRecordingRepository) List(ctx context.Context, deviceID domain.DeviceID, limit, offset int) ([]*domain.Recording, int, error) {
	total, err := r.client.ZCard(ctx, r.deviceKey(deviceID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count recordings: %w", err)
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	ids, err := r.client.ZRevRange(ctx, r.deviceKey(deviceID), int64(offset), stop).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recordings: %w", err)
	}

	out := make([]*domain.Recording, 0, len(ids))
	for _, id := range ids {
		rec, err := r.GetByID(ctx, id)
		if err == domain.ErrRecordingNotFound {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, int(total), nil
}
