package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"remoteeye/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRepository_CloneSemantics(t *testing.T) {
	repo := NewMemoryDeviceRepository()
	ctx := context.Background()

	device := &domain.Device{ID: "dev-1", Name: "phone", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, device))

	// Mutating the caller's struct must not leak into the store.
	device.Name = "mutated"
	got, err := repo.GetByID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "phone", got.Name)

	assert.ErrorIs(t, repo.Create(ctx, &domain.Device{ID: "dev-1"}), domain.ErrDuplicateDevice)
}

func TestDeviceRepository_UpdatePresence(t *testing.T) {
	repo := NewMemoryDeviceRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Device{ID: "dev-1", Presence: domain.PresenceOffline}))

	seen := time.Now()
	require.NoError(t, repo.UpdatePresence(ctx, "dev-1", domain.PresenceOnline, seen))

	got, err := repo.GetByID(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOnline, got.Presence)
	assert.Equal(t, seen, got.LastSeen)

	assert.ErrorIs(t, repo.UpdatePresence(ctx, "missing", domain.PresenceOnline, seen), domain.ErrDeviceNotFound)
}

func TestCommandRepository_ListPendingIsFIFO(t *testing.T) {
	repo := NewMemoryCommandRepository()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []domain.CommandID{"c-1", "c-2", "c-3"} {
		require.NoError(t, repo.Create(ctx, &domain.Command{
			ID:        id,
			DeviceID:  "dev-1",
			Status:    domain.CommandPending,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}
	// Another device's backlog must not bleed in.
	require.NoError(t, repo.Create(ctx, &domain.Command{
		ID: "other", DeviceID: "dev-2", Status: domain.CommandPending, CreatedAt: base,
	}))

	pending, err := repo.ListPending(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, domain.CommandID("c-1"), pending[0].ID)
	assert.Equal(t, domain.CommandID("c-2"), pending[1].ID)
	assert.Equal(t, domain.CommandID("c-3"), pending[2].ID)

	// Delivered commands leave the pending listing.
	pending[1].Status = domain.CommandDelivered
	require.NoError(t, repo.Update(ctx, pending[1]))
	pending, err = repo.ListPending(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.CommandID("c-1"), pending[0].ID)
	assert.Equal(t, domain.CommandID("c-3"), pending[1].ID)
}

func TestCommandRepository_ListPendingBefore(t *testing.T) {
	repo := NewMemoryCommandRepository()
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, &domain.Command{
		ID: "stale", DeviceID: "dev-1", Status: domain.CommandPending, CreatedAt: old,
	}))
	require.NoError(t, repo.Create(ctx, &domain.Command{
		ID: "fresh", DeviceID: "dev-1", Status: domain.CommandPending, CreatedAt: time.Now(),
	}))

	stale, err := repo.ListPendingBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, domain.CommandID("stale"), stale[0].ID)
}

func TestCommandRepository_ListByDevicePagination(t *testing.T) {
	repo := NewMemoryCommandRepository()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Command{
			ID:        domain.CommandID(rune('a' + i)),
			DeviceID:  "dev-1",
			Status:    domain.CommandCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, total, err := repo.ListByDevice(ctx, "dev-1", domain.CommandCompleted, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	// Newest first: indices 4,3 on page one, 2,1 here.
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))
}

func TestPairingCodeRepository_RedeemOnce(t *testing.T) {
	repo := NewMemoryPairingCodeRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.PairingCode{
		Code:      "A1B2C3",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}))

	// Many concurrent redeems, exactly one winner.
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := repo.Redeem(ctx, "A1B2C3", domain.DeviceID(rune('a'+n))); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)

	got, err := repo.GetByCode(ctx, "A1B2C3")
	require.NoError(t, err)
	assert.True(t, got.Used)
}

func TestPairingCodeRepository_FindActiveByClaim(t *testing.T) {
	repo := NewMemoryPairingCodeRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.PairingCode{
		Code: "DEAD00", Claim: "user@example.com", ExpiresAt: time.Now().Add(-time.Minute),
	}))
	_, err := repo.FindActiveByClaim(ctx, "user@example.com")
	assert.ErrorIs(t, err, domain.ErrPairingCodeNotFound)

	require.NoError(t, repo.Create(ctx, &domain.PairingCode{
		Code: "BEEF00", Claim: "user@example.com", ExpiresAt: time.Now().Add(time.Minute),
	}))
	active, err := repo.FindActiveByClaim(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "BEEF00", active.Code)
}

func TestPairingCodeRepository_DeleteExpired(t *testing.T) {
	repo := NewMemoryPairingCodeRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.PairingCode{Code: "OLD000", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, &domain.PairingCode{Code: "NEW000", ExpiresAt: time.Now().Add(time.Minute)}))

	removed, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.GetByCode(ctx, "OLD000")
	assert.ErrorIs(t, err, domain.ErrPairingCodeNotFound)
}

func TestRecordingRepository_ListByDevice(t *testing.T) {
	repo := NewMemoryRecordingRepository()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Recording{
			ID:        string(rune('a' + i)),
			DeviceID:  "dev-1",
			Type:      domain.RecordingAudio,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recs, total, err := repo.List(ctx, "dev-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[0].ID)
}
