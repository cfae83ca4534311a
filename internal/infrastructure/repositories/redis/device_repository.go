package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisDeviceRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisDeviceRepository(client *redis.Client) ports.DeviceRepository {
	return &RedisDeviceRepository{
		client: client,
		prefix: "remoteeye:device:",
	}
}

func (r *RedisDeviceRepository) deviceKey(id domain.DeviceID) string {
	return r.prefix + string(id)
}

func (r *RedisDeviceRepository) allDevicesKey() string {
	return r.prefix + "all"
}

func (r *RedisDeviceRepository) Create(ctx context.Context, device *domain.Device) error {
	key := r.deviceKey(device.ID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check device existence: %w", err)
	}
	if exists > 0 {
		return domain.ErrDuplicateDevice
	}

	data, err := json.Marshal(fromDomain(device))
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}

	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set device in Redis: %w", err)
	}
	if err := r.client.ZAdd(ctx, r.allDevicesKey(), redis.Z{
		Score:  float64(device.CreatedAt.UnixNano()),
		Member: string(device.ID),
	}).Err(); err != nil {
		return fmt.Errorf("failed to index device: %w", err)
	}
	return nil
}

func (r *RedisDeviceRepository) GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	data, err := r.client.Get(ctx, r.deviceKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device from Redis: %w", err)
	}

	var device deviceRecord
	if err := json.Unmarshal([]byte(data), &device); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device: %w", err)
	}
	return device.toDomain(), nil
}

func (r *RedisDeviceRepository) Update(ctx context.Context, device *domain.Device) error {
	key := r.deviceKey(device.ID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check device existence: %w", err)
	}
	if exists == 0 {
		return domain.ErrDeviceNotFound
	}

	data, err := json.Marshal(fromDomain(device))
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update device in Redis: %w", err)
	}
	return nil
}

func (r *RedisDeviceRepository) UpdatePresence(ctx context.Context, id domain.DeviceID, presence domain.Presence, lastSeen time.Time) error {
	device, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	device.Presence = presence
	device.LastSeen = lastSeen
	device.UpdatedAt = lastSeen
	return r.Update(ctx, device)
}

func (r *RedisDeviceRepository) Delete(ctx context.Context, id domain.DeviceID) error {
	removed, err := r.client.Del(ctx, r.deviceKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete device from Redis: %w", err)
	}
	if removed == 0 {
		return domain.ErrDeviceNotFound
	}
	if err := r.client.ZRem(ctx, r.allDevicesKey(), string(id)).Err(); err != nil {
		return fmt.Errorf("failed to unindex device: %w", err)
	}
	return nil
}

func (r *RedisDeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	ids, err := r.client.ZRange(ctx, r.allDevicesKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]*domain.Device, 0, len(ids))
	for _, id := range ids {
		device, err := r.GetByID(ctx, domain.DeviceID(id))
		if err == domain.ErrDeviceNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// deviceRecord mirrors domain.Device with the secret hash included; the
// domain type hides it from JSON responses, but the store must keep it.
type deviceRecord struct {
	ID         domain.DeviceID        `json:"id"`
	Name       string                 `json:"name"`
	SecretHash string                 `json:"secret_hash"`
	Presence   domain.Presence        `json:"presence"`
	LastSeen   time.Time              `json:"last_seen"`
	Info       map[string]interface{} `json:"info,omitempty"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func fromDomain(d *domain.Device) *deviceRecord {
	return &deviceRecord{
		ID:         d.ID,
		Name:       d.Name,
		SecretHash: d.SecretHash,
		Presence:   d.Presence,
		LastSeen:   d.LastSeen,
		Info:       d.Info,
		Settings:   d.Settings,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (rec *deviceRecord) toDomain() *domain.Device {
	return &domain.Device{
		ID:         rec.ID,
		Name:       rec.Name,
		SecretHash: rec.SecretHash,
		Presence:   rec.Presence,
		LastSeen:   rec.LastSeen,
		Info:       rec.Info,
		Settings:   rec.Settings,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}
