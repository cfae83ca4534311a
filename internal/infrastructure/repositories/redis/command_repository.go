package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisCommandRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisCommandRepository(client *redis.Client) ports.CommandRepository {
	return &RedisCommandRepository{
		client: client,
		prefix: "remoteeye:command:",
	}
}

func (r *RedisCommandRepository) commandKey(id domain.CommandID) string {
	return r.prefix + string(id)
}

// pendingKey is the per-device FIFO of pending command ids.
func (r *RedisCommandRepository) pendingKey(deviceID domain.DeviceID) string {
	return r.prefix + "pending:" + string(deviceID)
}

// globalPendingKey indexes every pending command by creation time for the
// expiry sweep.
func (r *RedisCommandRepository) globalPendingKey() string {
	return r.prefix + "pending"
}

// historyKey indexes a device's full command history by creation time.
func (r *RedisCommandRepository) historyKey(deviceID domain.DeviceID) string {
	return r.prefix + "history:" + string(deviceID)
}

func (r *RedisCommandRepository) Create(ctx context.Context, cmd *domain.Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.commandKey(cmd.ID), data, 0)
	pipe.RPush(ctx, r.pendingKey(cmd.DeviceID), string(cmd.ID))
	pipe.ZAdd(ctx, r.globalPendingKey(), redis.Z{
		Score:  float64(cmd.CreatedAt.UnixNano()),
		Member: string(cmd.ID),
	})
	pipe.ZAdd(ctx, r.historyKey(cmd.DeviceID), redis.Z{
		Score:  float64(cmd.CreatedAt.UnixNano()),
		Member: string(cmd.ID),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store command: %w", err)
	}
	return nil
}

func (r *RedisCommandRepository) GetByID(ctx context.Context, id domain.CommandID) (*domain.Command, error) {
	data, err := r.client.Get(ctx, r.commandKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrCommandNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get command from Redis: %w", err)
	}

	var cmd domain.Command
	if err := json.Unmarshal([]byte(data), &cmd); err != nil {
		return nil, fmt.Errorf("failed to unmarshal command: %w", err)
	}
	return &cmd, nil
}

func (r *RedisCommandRepository) Update(ctx context.Context, cmd *domain.Command) error {
	exists, err := r.client.Exists(ctx, r.commandKey(cmd.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check command existence: %w", err)
	}
	if exists == 0 {
		return domain.ErrCommandNotFound
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.commandKey(cmd.ID), data, 0)
	if cmd.Status != domain.CommandPending {
		// Leaving PENDING removes the command from both pending indexes.
		pipe.LRem(ctx, r.pendingKey(cmd.DeviceID), 1, string(cmd.ID))
		pipe.ZRem(ctx, r.globalPendingKey(), string(cmd.ID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update command: %w", err)
	}
	return nil
}

func (r *RedisCommandRepository) ListPending(ctx context.Context, deviceID domain.DeviceID) ([]*domain.Command, error) {
	ids, err := r.client.LRange(ctx, r.pendingKey(deviceID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending commands: %w", err)
	}
	return r.fetchAll(ctx, ids)
}

func (r *RedisCommandRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Command, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.globalPendingKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixNano(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending commands: %w", err)
	}
	return r.fetchAll(ctx, ids)
}

func (r *RedisCommandRepository) ListByDevice(ctx context.Context, deviceID domain.DeviceID, status domain.CommandStatus, limit, offset int) ([]*domain.Command, int, error) {
	// Newest first for history listings.
	ids, err := r.client.ZRevRange(ctx, r.historyKey(deviceID), 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list device commands: %w", err)
	}

	all, err := r.fetchAll(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	var matched []*domain.Command
	for _, cmd := range all {
		if status != "" && cmd.Status != status {
			continue
		}
		matched = append(matched, cmd)
	}

	total := len(matched)
	if offset >= total {
		return []*domain.Command{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *RedisCommandRepository) fetchAll(ctx context.Context, ids []string) ([]*domain.Command, error) {
	out := make([]*domain.Command, 0, len(ids))
	for _, id := range ids {
		cmd, err := r.GetByID(ctx, domain.CommandID(id))
		if err == domain.ErrCommandNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, nil
}
