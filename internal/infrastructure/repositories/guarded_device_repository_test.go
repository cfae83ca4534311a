package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
	"remoteeye/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// flakyDeviceRepository fails every call once armed.
type flakyDeviceRepository struct {
	ports.DeviceRepository
	failing bool
}

var errBackendDown = errors.New("backend down")

func (f *flakyDeviceRepository) GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	if f.failing {
		return nil, errBackendDown
	}
	return f.DeviceRepository.GetByID(ctx, id)
}

func (f *flakyDeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	if f.failing {
		return nil, errBackendDown
	}
	return f.DeviceRepository.List(ctx)
}

func newGuardedFixture(t *testing.T) (ports.DeviceRepository, *flakyDeviceRepository) {
	t.Helper()
	flaky := &flakyDeviceRepository{DeviceRepository: memory.NewMemoryDeviceRepository()}
	return NewGuardedDeviceRepository(flaky, zaptest.NewLogger(t).Sugar()), flaky
}

func seedDevice(t *testing.T, repo ports.DeviceRepository, id string) {
	t.Helper()
	err := repo.Create(context.Background(), &domain.Device{
		ID:        domain.DeviceID(id),
		Name:      "test device",
		Presence:  domain.PresenceOffline,
		Settings:  map[string]interface{}{"quality": "high"},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
}

func TestGuardedRepositoryServesFromCacheWhileBackendDown(t *testing.T) {
	repo, flaky := newGuardedFixture(t)
	seedDevice(t, repo, "dev-1")

	// Prime the cache
	dev, err := repo.GetByID(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Equal(t, "test device", dev.Name)

	flaky.failing = true

	dev, err = repo.GetByID(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "test device", dev.Name)
}

func TestGuardedRepositoryCachedCopyIsIsolated(t *testing.T) {
	repo, _ := newGuardedFixture(t)
	seedDevice(t, repo, "dev-1")

	first, err := repo.GetByID(context.Background(), "dev-1")
	require.NoError(t, err)
	first.Name = "mutated"
	first.Settings["quality"] = "low"

	second, err := repo.GetByID(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "test device", second.Name)
	assert.Equal(t, "high", second.Settings["quality"])
}

func TestGuardedRepositoryInvalidatesOnWrite(t *testing.T) {
	repo, _ := newGuardedFixture(t)
	seedDevice(t, repo, "dev-1")

	dev, err := repo.GetByID(context.Background(), "dev-1")
	require.NoError(t, err)

	dev.Name = "renamed"
	require.NoError(t, repo.Update(context.Background(), dev))

	fresh, err := repo.GetByID(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", fresh.Name)
}

func TestGuardedRepositoryNotFoundDoesNotTripBreaker(t *testing.T) {
	repo, _ := newGuardedFixture(t)
	seedDevice(t, repo, "dev-1")

	// Well past the failure threshold
	for i := 0; i < 20; i++ {
		_, err := repo.GetByID(context.Background(), "missing")
		require.ErrorIs(t, err, domain.ErrDeviceNotFound)
	}

	dev, err := repo.GetByID(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceID("dev-1"), dev.ID)
}

func TestGuardedRepositoryBreakerOpensOnRepeatedFailures(t *testing.T) {
	repo, flaky := newGuardedFixture(t)
	flaky.failing = true

	var lastErr error
	for i := 0; i < 10; i++ {
		_, lastErr = repo.GetByID(context.Background(), "dev-1")
		require.Error(t, lastErr)
	}

	// Once open, calls fail fast without reaching the backend
	assert.NotErrorIs(t, lastErr, errBackendDown)
}

func TestGuardedRepositoryListCaches(t *testing.T) {
	repo, flaky := newGuardedFixture(t)
	seedDevice(t, repo, "dev-1")
	seedDevice(t, repo, "dev-2")

	devices, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	flaky.failing = true

	devices, err = repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 2)
}
