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

// redeemScript flips the Used flag atomically so concurrent redeems of the
// same code cannot both win.
var redeemScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return 0
end
local code = cjson.decode(data)
if code.used then
  return 0
end
code.used = true
code.device_id = ARGV[1]
redis.call('SET', KEYS[1], cjson.encode(code))
return 1
`)

type RedisPairingCodeRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisPairingCodeRepository(client *redis.Client) ports.PairingCodeRepository {
	return &RedisPairingCodeRepository{
		client: client,
		prefix: "remoteeye:pairing:",
	}
}

func (r *RedisPairingCodeRepository) codeKey(code string) string {
	return r.prefix + code
}

func (r *RedisPairingCodeRepository) indexKey() string {
	return r.prefix + "all"
}

func (r *RedisPairingCodeRepository) Create(ctx context.Context, code *domain.PairingCode) error {
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal pairing code: %w", err)
	}

	// The key itself expires a little after the code does; redeemed codes
	// linger long enough for a device to retry a lost response.
	ttl := time.Until(code.ExpiresAt) + time.Hour

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.codeKey(code.Code), data, ttl)
	pipe.SAdd(ctx, r.indexKey(), code.Code)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store pairing code: %w", err)
	}
	return nil
}

func (r *RedisPairingCodeRepository) GetByCode(ctx context.Context, code string) (*domain.PairingCode, error) {
	data, err := r.client.Get(ctx, r.codeKey(code)).Result()
	if err == redis.Nil {
		return nil, domain.ErrPairingCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pairing code from Redis: %w", err)
	}

	var pairing domain.PairingCode
	if err := json.Unmarshal([]byte(data), &pairing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pairing code: %w", err)
	}
	return &pairing, nil
}

func (r *RedisPairingCodeRepository) Redeem(ctx context.Context, code string, deviceID domain.DeviceID) error {
	won, err := redeemScript.Run(ctx, r.client, []string{r.codeKey(code)}, string(deviceID)).Int()
	if err != nil {
		return fmt.Errorf("failed to redeem pairing code: %w", err)
	}
	if won == 0 {
		return domain.ErrPairingCodeNotFound
	}
	return nil
}

func (r *RedisPairingCodeRepository) FindActiveByClaim(ctx context.Context, claim string) (*domain.PairingCode, error) {
	codes, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pairing codes: %w", err)
	}

	now := time.Now()
	for _, code := range codes {
		pairing, err := r.GetByCode(ctx, code)
		if err == domain.ErrPairingCodeNotFound {
			r.client.SRem(ctx, r.indexKey(), code)
			continue
		}
		if err != nil {
			return nil, err
		}
		if pairing.Claim == claim && pairing.Active(now) {
			return pairing, nil
		}
	}
	return nil, domain.ErrPairingCodeNotFound
}

func (r *RedisPairingCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	codes, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list pairing codes: %w", err)
	}

	removed := 0
	for _, code := range codes {
		pairing, err := r.GetByCode(ctx, code)
		if err == domain.ErrPairingCodeNotFound {
			r.client.SRem(ctx, r.indexKey(), code)
			continue
		}
		if err != nil {
			return removed, err
		}
		if now.After(pairing.ExpiresAt) {
			pipe := r.client.TxPipeline()
			pipe.Del(ctx, r.codeKey(code))
			pipe.SRem(ctx, r.indexKey(), code)
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("failed to delete expired pairing code: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}
