package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
)

type MemoryDeviceRepository struct {
	devices map[domain.DeviceID]*domain.Device
	mu      sync.RWMutex
}

func NewMemoryDeviceRepository() ports.DeviceRepository {
	return &MemoryDeviceRepository{
		devices: make(map[domain.DeviceID]*domain.Device),
	}
}

func (r *MemoryDeviceRepository) Create(ctx context.Context, device *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[device.ID]; exists {
		return domain.ErrDuplicateDevice
	}

	clone := *device
	r.devices[device.ID] = &clone
	return nil
}

func (r *MemoryDeviceRepository) GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, exists := r.devices[id]
	if !exists {
		return nil, domain.ErrDeviceNotFound
	}

	clone := *device
	return &clone, nil
}

func (r *MemoryDeviceRepository) Update(ctx context.Context, device *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[device.ID]; !exists {
		return domain.ErrDeviceNotFound
	}

	clone := *device
	r.devices[device.ID] = &clone
	return nil
}

func (r *MemoryDeviceRepository) UpdatePresence(ctx context.Context, id domain.DeviceID, presence domain.Presence, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[id]
	if !exists {
		return domain.ErrDeviceNotFound
	}

	device.Presence = presence
	device.LastSeen = lastSeen
	device.UpdatedAt = lastSeen
	return nil
}

func (r *MemoryDeviceRepository) Delete(ctx context.Context, id domain.DeviceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[id]; !exists {
		return domain.ErrDeviceNotFound
	}

	delete(r.devices, id)
	return nil
}

func (r *MemoryDeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Device, 0, len(r.devices))
	for _, d := range r.devices {
		clone := *d
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
