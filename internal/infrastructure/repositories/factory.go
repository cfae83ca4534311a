package repositories

import (
	"remoteeye/internal/core/ports"
	"remoteeye/internal/infrastructure/repositories/memory"
	redisrepo "remoteeye/internal/infrastructure/repositories/redis"
	"remoteeye/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreateDeviceRepository creates a device repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateDeviceRepository() ports.DeviceRepository {
	if f.useRedis && f.redisClient != nil {
		return NewGuardedDeviceRepository(redisrepo.NewRedisDeviceRepository(f.redisClient), f.logger)
	}
	return memory.NewMemoryDeviceRepository()
}

// CreateCommandRepository creates a command repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateCommandRepository() ports.CommandRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisCommandRepository(f.redisClient)
	}
	return memory.NewMemoryCommandRepository()
}

// CreatePairingCodeRepository creates a pairing code repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreatePairingCodeRepository() ports.PairingCodeRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisPairingCodeRepository(f.redisClient)
	}
	return memory.NewMemoryPairingCodeRepository()
}

// CreateRecordingRepository creates a recording repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateRecordingRepository() ports.RecordingRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisRecordingRepository(f.redisClient)
	}
	return memory.NewMemoryRecordingRepository()
}

// RedisClient returns the underlying client when Redis repositories are in
// use, nil otherwise.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	if f.useRedis {
		return f.redisClient
	}
	return nil
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}
