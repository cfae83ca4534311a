package services

import (
	"context"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockDeviceRepository struct {
	mock.Mock
}

func (m *MockDeviceRepository) Create(ctx context.Context, device *domain.Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockDeviceRepository) GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) Update(ctx context.Context, device *domain.Device) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockDeviceRepository) UpdatePresence(ctx context.Context, id domain.DeviceID, presence domain.Presence, lastSeen time.Time) error {
	args := m.Called(ctx, id, presence, lastSeen)
	return args.Error(0)
}

func (m *MockDeviceRepository) Delete(ctx context.Context, id domain.DeviceID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Device), args.Error(1)
}

type MockCommandRepository struct {
	mock.Mock
}

func (m *MockCommandRepository) Create(ctx context.Context, cmd *domain.Command) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockCommandRepository) GetByID(ctx context.Context, id domain.CommandID) (*domain.Command, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Command), args.Error(1)
}

func (m *MockCommandRepository) Update(ctx context.Context, cmd *domain.Command) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockCommandRepository) ListPending(ctx context.Context, deviceID domain.DeviceID) ([]*domain.Command, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Command), args.Error(1)
}

func (m *MockCommandRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Command, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Command), args.Error(1)
}

func (m *MockCommandRepository) ListByDevice(ctx context.Context, deviceID domain.DeviceID, status domain.CommandStatus, limit, offset int) ([]*domain.Command, int, error) {
	args := m.Called(ctx, deviceID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Command), args.Int(1), args.Error(2)
}

type MockPairingCodeRepository struct {
	mock.Mock
}

func (m *MockPairingCodeRepository) Create(ctx context.Context, code *domain.PairingCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockPairingCodeRepository) GetByCode(ctx context.Context, code string) (*domain.PairingCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PairingCode), args.Error(1)
}

func (m *MockPairingCodeRepository) Redeem(ctx context.Context, code string, deviceID domain.DeviceID) error {
	args := m.Called(ctx, code, deviceID)
	return args.Error(0)
}

func (m *MockPairingCodeRepository) FindActiveByClaim(ctx context.Context, claim string) (*domain.PairingCode, error) {
	args := m.Called(ctx, claim)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PairingCode), args.Error(1)
}

func (m *MockPairingCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type MockDeviceSender struct {
	mock.Mock
}

func (m *MockDeviceSender) SendCommand(ctx context.Context, deviceID domain.DeviceID, cmd *domain.Command) error {
	args := m.Called(ctx, deviceID, cmd)
	return args.Error(0)
}

func (m *MockDeviceSender) IsDeviceOnline(deviceID domain.DeviceID) bool {
	args := m.Called(deviceID)
	return args.Bool(0)
}

type MockControllerBroadcaster struct {
	mock.Mock
}

func (m *MockControllerBroadcaster) BroadcastStatus(deviceID domain.DeviceID, event ports.StatusEvent) {
	m.Called(deviceID, event)
}
