package services

import (
	"context"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"go.uber.org/zap"
)

// DeviceService serves the REST-facing device catalog: listing, lookup,
// settings updates, and unpairing.
type DeviceService interface {
	List(ctx context.Context) ([]*domain.Device, error)
	Get(ctx context.Context, id domain.DeviceID) (*domain.Device, error)
	UpdateSettings(ctx context.Context, id domain.DeviceID, name string, settings map[string]interface{}) (*domain.Device, error)
	Delete(ctx context.Context, id domain.DeviceID) error
}

type deviceService struct {
	devices ports.DeviceRepository
	logger  *zap.SugaredLogger
}

func NewDeviceService(devices ports.DeviceRepository, logger *zap.SugaredLogger) DeviceService {
	return &deviceService{devices: devices, logger: logger}
}

func (s *deviceService) List(ctx context.Context) ([]*domain.Device, error) {
	return s.devices.List(ctx)
}

func (s *deviceService) Get(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	return s.devices.GetByID(ctx, id)
}

func (s *deviceService) UpdateSettings(ctx context.Context, id domain.DeviceID, name string, settings map[string]interface{}) (*domain.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		device.Name = name
	}
	if settings != nil {
		if device.Settings == nil {
			device.Settings = map[string]interface{}{}
		}
		for k, v := range settings {
			device.Settings[k] = v
		}
	}
	device.UpdatedAt = time.Now()

	if err := s.devices.Update(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *deviceService) Delete(ctx context.Context, id domain.DeviceID) error {
	if _, err := s.devices.GetByID(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("device unpaired", "device_id", id)
	return s.devices.Delete(ctx, id)
}
