package memory

import (
	"context"
	"sync"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
)

type MemoryPairingCodeRepository struct {
	codes map[string]*domain.PairingCode
	mu    sync.Mutex
}

func NewMemoryPairingCodeRepository() ports.PairingCodeRepository {
	return &MemoryPairingCodeRepository{
		codes: make(map[string]*domain.PairingCode),
	}
}

func (r *MemoryPairingCodeRepository) Create(ctx context.Context, code *domain.PairingCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *code
	r.codes[code.Code] = &clone
	return nil
}

func (r *MemoryPairingCodeRepository) GetByCode(ctx context.Context, code string) (*domain.PairingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairing, exists := r.codes[code]
	if !exists {
		return nil, domain.ErrPairingCodeNotFound
	}

	clone := *pairing
	return &clone, nil
}

func (r *MemoryPairingCodeRepository) Redeem(ctx context.Context, code string, deviceID domain.DeviceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairing, exists := r.codes[code]
	if !exists {
		return domain.ErrPairingCodeNotFound
	}
	if pairing.Used {
		return domain.ErrPairingCodeNotFound
	}

	pairing.Used = true
	pairing.DeviceID = deviceID
	return nil
}

func (r *MemoryPairingCodeRepository) FindActiveByClaim(ctx context.Context, claim string) (*domain.PairingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, pairing := range r.codes {
		if pairing.Claim == claim && pairing.Active(now) {
			clone := *pairing
			return &clone, nil
		}
	}
	return nil, domain.ErrPairingCodeNotFound
}

func (r *MemoryPairingCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for code, pairing := range r.codes {
		if now.After(pairing.ExpiresAt) {
			delete(r.codes, code)
			removed++
		}
	}
	return removed, nil
}
