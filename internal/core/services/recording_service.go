package services

import (
	"context"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/google/uuid"
)

// RecordingService tracks metadata about captures a device reported. The
// relay never stores the media bytes themselves.
type RecordingService interface {
	Register(ctx context.Context, deviceID domain.DeviceID, recType domain.RecordingType, filename string, duration int, size int64, triggeredBy string) (*domain.Recording, error)
	Get(ctx context.Context, id string) (*domain.Recording, error)
	List(ctx context.Context, deviceID domain.DeviceID, limit, offset int) ([]*domain.Recording, int, error)
	Delete(ctx context.Context, id string) error
}

type recordingService struct {
	recordings ports.RecordingRepository
	devices    ports.DeviceRepository
}

func NewRecordingService(recordings ports.RecordingRepository, devices ports.DeviceRepository) RecordingService {
	return &recordingService{recordings: recordings, devices: devices}
}

func (s *recordingService) Register(ctx context.Context, deviceID domain.DeviceID, recType domain.RecordingType, filename string, duration int, size int64, triggeredBy string) (*domain.Recording, error) {
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return nil, err
	}

	rec := &domain.Recording{
		ID:          uuid.New().String(),
		DeviceID:    deviceID,
		Type:        recType,
		Filename:    filename,
		Duration:    duration,
		Size:        size,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now(),
	}
	if err := s.recordings.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *recordingService) Get(ctx context.Context, id string) (*domain.Recording, error) {
	return s.recordings.GetByID(ctx, id)
}

func (s *recordingService) List(ctx context.Context, deviceID domain.DeviceID, limit, offset int) ([]*domain.Recording, int, error) {
	return s.recordings.List(ctx, deviceID, limit, offset)
}

func (s *recordingService) Delete(ctx context.Context, id string) error {
	return s.recordings.Delete(ctx, id)
}
