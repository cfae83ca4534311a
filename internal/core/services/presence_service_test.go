package services

import (
	"context"
	"testing"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockCommandService struct {
	mock.Mock
}

func (m *MockCommandService) Enqueue(ctx context.Context, deviceID domain.DeviceID, action domain.CommandAction, params map[string]interface{}) (*domain.Command, bool, error) {
	args := m.Called(ctx, deviceID, action, params)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Command), args.Bool(1), args.Error(2)
}

func (m *MockCommandService) Drain(ctx context.Context, deviceID domain.DeviceID) {
	m.Called(ctx, deviceID)
}

func (m *MockCommandService) Acknowledge(ctx context.Context, deviceID domain.DeviceID, id domain.CommandID, status domain.CommandStatus, errMsg string) (*domain.Command, error) {
	args := m.Called(ctx, deviceID, id, status, errMsg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Command), args.Error(1)
}

func (m *MockCommandService) GetCommand(ctx context.Context, id domain.CommandID) (*domain.Command, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Command), args.Error(1)
}

func (m *MockCommandService) History(ctx context.Context, deviceID domain.DeviceID, status domain.CommandStatus, limit, offset int) ([]*domain.Command, int, error) {
	args := m.Called(ctx, deviceID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Command), args.Int(1), args.Error(2)
}

func (m *MockCommandService) Run(ctx context.Context) {
	m.Called(ctx)
}

func TestPresenceService_DeviceOnline(t *testing.T) {
	devices := new(MockDeviceRepository)
	broadcaster := new(MockControllerBroadcaster)
	commands := new(MockCommandService)
	svc := NewPresenceService(devices, broadcaster, commands, zaptest.NewLogger(t).Sugar())

	devices.On("UpdatePresence", mock.Anything, domain.DeviceID("dev-1"), domain.PresenceOnline, mock.AnythingOfType("time.Time")).Return(nil)
	broadcaster.On("BroadcastStatus", domain.DeviceID("dev-1"), mock.MatchedBy(func(e ports.StatusEvent) bool {
		return e.Online && e.DeviceID == "dev-1"
	})).Return()
	commands.On("Drain", mock.Anything, domain.DeviceID("dev-1")).Return()

	svc.DeviceOnline(context.Background(), "dev-1")

	devices.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
	commands.AssertExpectations(t)
}

func TestPresenceService_DeviceOnline_PersistFailureStillBroadcasts(t *testing.T) {
	devices := new(MockDeviceRepository)
	broadcaster := new(MockControllerBroadcaster)
	commands := new(MockCommandService)
	svc := NewPresenceService(devices, broadcaster, commands, zaptest.NewLogger(t).Sugar())

	devices.On("UpdatePresence", mock.Anything, domain.DeviceID("dev-1"), domain.PresenceOnline, mock.AnythingOfType("time.Time")).
		Return(assert.AnError)
	broadcaster.On("BroadcastStatus", domain.DeviceID("dev-1"), mock.AnythingOfType("ports.StatusEvent")).Return()
	commands.On("Drain", mock.Anything, domain.DeviceID("dev-1")).Return()

	svc.DeviceOnline(context.Background(), "dev-1")

	broadcaster.AssertExpectations(t)
	commands.AssertExpectations(t)
}

func TestPresenceService_DeviceOffline(t *testing.T) {
	devices := new(MockDeviceRepository)
	broadcaster := new(MockControllerBroadcaster)
	commands := new(MockCommandService)
	svc := NewPresenceService(devices, broadcaster, commands, zaptest.NewLogger(t).Sugar())

	devices.On("UpdatePresence", mock.Anything, domain.DeviceID("dev-1"), domain.PresenceOffline, mock.AnythingOfType("time.Time")).Return(nil)
	broadcaster.On("BroadcastStatus", domain.DeviceID("dev-1"), mock.MatchedBy(func(e ports.StatusEvent) bool {
		return !e.Online
	})).Return()

	svc.DeviceOffline(context.Background(), "dev-1")

	commands.AssertNotCalled(t, "Drain", mock.Anything, mock.Anything)
	broadcaster.AssertExpectations(t)
}

func TestPresenceService_ReportStatus(t *testing.T) {
	devices := new(MockDeviceRepository)
	broadcaster := new(MockControllerBroadcaster)
	commands := new(MockCommandService)
	svc := NewPresenceService(devices, broadcaster, commands, zaptest.NewLogger(t).Sugar())

	status := map[string]interface{}{"battery": 73, "camera": "active"}
	devices.On("UpdatePresence", mock.Anything, domain.DeviceID("dev-1"), domain.PresenceOnline, mock.AnythingOfType("time.Time")).Return(nil)
	broadcaster.On("BroadcastStatus", domain.DeviceID("dev-1"), mock.MatchedBy(func(e ports.StatusEvent) bool {
		return e.Online && e.Status["camera"] == "active"
	})).Return()

	svc.ReportStatus(context.Background(), "dev-1", status)

	broadcaster.AssertExpectations(t)
}

func TestPresenceService_Status(t *testing.T) {
	devices := new(MockDeviceRepository)
	svc := NewPresenceService(devices, new(MockControllerBroadcaster), new(MockCommandService), zaptest.NewLogger(t).Sugar())

	device := &domain.Device{ID: "dev-1", Presence: domain.PresenceOnline}
	devices.On("GetByID", mock.Anything, domain.DeviceID("dev-1")).Return(device, nil)

	got, err := svc.Status(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PresenceOnline, got.Presence)
}
