package repositories

import (
	"context"
	"errors"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
	"remoteeye/pkg/cache"
	"remoteeye/pkg/circuitbreaker"

	"go.uber.org/zap"
)

const (
	deviceCacheTTL = 5 * time.Second
	deviceListKey  = "devices:all"
)

// guardedDeviceRepository decorates a device repository with a short-lived
// read cache and a circuit breaker. Device records sit on the hot path of
// every auth and presence check, so a Redis hiccup must not stall the relay:
// reads are served from cache while fresh, and a tripped breaker fails fast
// instead of piling up blocked connections.
type guardedDeviceRepository struct {
	next    ports.DeviceRepository
	cache   *cache.Cache
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

// NewGuardedDeviceRepository wraps next with caching and a circuit breaker.
func NewGuardedDeviceRepository(next ports.DeviceRepository, logger *zap.SugaredLogger) ports.DeviceRepository {
	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("device repository circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})
	return &guardedDeviceRepository{
		next:    next,
		cache:   cache.NewCache(deviceCacheTTL),
		breaker: breaker,
		logger:  logger,
	}
}

func deviceCacheKey(id domain.DeviceID) string {
	return "device:" + string(id)
}

// execute runs op through the breaker. Not-found is a valid answer, not a
// backend fault, so it must not count against the failure threshold.
func (r *guardedDeviceRepository) execute(ctx context.Context, op func() error) error {
	var opErr error
	err := r.breaker.Execute(ctx, func() error {
		opErr = op()
		if errors.Is(opErr, domain.ErrDeviceNotFound) || errors.Is(opErr, domain.ErrDuplicateDevice) {
			return nil
		}
		return opErr
	})
	if err != nil {
		return err
	}
	return opErr
}

func (r *guardedDeviceRepository) Create(ctx context.Context, device *domain.Device) error {
	if err := r.execute(ctx, func() error { return r.next.Create(ctx, device) }); err != nil {
		return err
	}
	r.invalidate(device.ID)
	return nil
}

func (r *guardedDeviceRepository) GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	if v, ok := r.cache.Get(deviceCacheKey(id)); ok {
		return copyDevice(v.(*domain.Device)), nil
	}

	var dev *domain.Device
	err := r.execute(ctx, func() error {
		var opErr error
		dev, opErr = r.next.GetByID(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	r.cache.Set(deviceCacheKey(id), copyDevice(dev))
	return dev, nil
}

func (r *guardedDeviceRepository) Update(ctx context.Context, device *domain.Device) error {
	if err := r.execute(ctx, func() error { return r.next.Update(ctx, device) }); err != nil {
		return err
	}
	r.invalidate(device.ID)
	return nil
}

func (r *guardedDeviceRepository) UpdatePresence(ctx context.Context, id domain.DeviceID, presence domain.Presence, lastSeen time.Time) error {
	if err := r.execute(ctx, func() error { return r.next.UpdatePresence(ctx, id, presence, lastSeen) }); err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

func (r *guardedDeviceRepository) Delete(ctx context.Context, id domain.DeviceID) error {
	if err := r.execute(ctx, func() error { return r.next.Delete(ctx, id) }); err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

func (r *guardedDeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	if v, ok := r.cache.Get(deviceListKey); ok {
		cached := v.([]*domain.Device)
		out := make([]*domain.Device, len(cached))
		for i, d := range cached {
			out[i] = copyDevice(d)
		}
		return out, nil
	}

	var devices []*domain.Device
	err := r.execute(ctx, func() error {
		var opErr error
		devices, opErr = r.next.List(ctx)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	snapshot := make([]*domain.Device, len(devices))
	for i, d := range devices {
		snapshot[i] = copyDevice(d)
	}
	r.cache.Set(deviceListKey, snapshot)
	return devices, nil
}

func (r *guardedDeviceRepository) invalidate(id domain.DeviceID) {
	r.cache.Delete(deviceCacheKey(id))
	r.cache.Delete(deviceListKey)
}

func copyDevice(d *domain.Device) *domain.Device {
	if d == nil {
		return nil
	}
	out := *d
	if d.Info != nil {
		out.Info = make(map[string]interface{}, len(d.Info))
		for k, v := range d.Info {
			out.Info[k] = v
		}
	}
	if d.Settings != nil {
		out.Settings = make(map[string]interface{}, len(d.Settings))
		for k, v := range d.Settings {
			out.Settings[k] = v
		}
	}
	return &out
}
