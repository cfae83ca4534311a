package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"remoteeye/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(devices *MockDeviceRepository, pairings *MockPairingCodeRepository) AuthService {
	return NewAuthService(
		"test-secret-key-at-least-32-chars!!",
		time.Hour,
		7*24*time.Hour,
		10*time.Minute,
		devices,
		pairings,
	)
}

func TestAuthService_IssuePairingCode(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	pairings.On("DeleteExpired", mock.Anything, mock.Anything).Return(0, nil)
	pairings.On("FindActiveByClaim", mock.Anything, "user@example.com").
		Return(nil, domain.ErrPairingCodeNotFound)
	pairings.On("Create", mock.Anything, mock.AnythingOfType("*domain.PairingCode")).Return(nil)

	code, err := svc.IssuePairingCode(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Len(t, code.Code, 6)
	assert.Regexp(t, "^[0-9A-F]{6}$", code.Code)
	assert.False(t, code.Used)
	assert.True(t, code.ExpiresAt.After(time.Now()))
	pairings.AssertExpectations(t)
}

func TestAuthService_IssuePairingCode_ActiveCodeExists(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	active := &domain.PairingCode{
		Code:      "A1B2C3",
		Claim:     "user@example.com",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
	pairings.On("DeleteExpired", mock.Anything, mock.Anything).Return(0, nil)
	pairings.On("FindActiveByClaim", mock.Anything, "user@example.com").Return(active, nil)

	_, err := svc.IssuePairingCode(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, ErrPairingCodeActive)
}

func TestAuthService_RedeemPairingCode(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	pairing := &domain.PairingCode{
		Code:      "0F0F0F",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	pairings.On("GetByCode", mock.Anything, "0F0F0F").Return(pairing, nil)
	devices.On("Create", mock.Anything, mock.AnythingOfType("*domain.Device")).Return(nil)
	pairings.On("Redeem", mock.Anything, "0F0F0F", mock.AnythingOfType("domain.DeviceID")).Return(nil)

	result, err := svc.RedeemPairingCode(context.Background(), "0F0F0F", "Kitchen Phone", map[string]interface{}{"model": "Pixel 6"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Device.ID)
	assert.Equal(t, "Kitchen Phone", result.Device.Name)
	assert.Len(t, result.Secret, 32)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)

	// The access token must admit a device-role session.
	claims, err := svc.VerifyAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDevice, claims.Role)
	assert.Equal(t, string(result.Device.ID), claims.Subject)
}

func TestAuthService_RedeemPairingCode_ExpiredOrUsed(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	tests := []struct {
		name    string
		pairing *domain.PairingCode
	}{
		{
			name: "expired",
			pairing: &domain.PairingCode{
				Code:      "AAAAAA",
				ExpiresAt: time.Now().Add(-time.Minute),
			},
		},
		{
			name: "already used",
			pairing: &domain.PairingCode{
				Code:      "BBBBBB",
				ExpiresAt: time.Now().Add(time.Minute),
				Used:      true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairings.On("GetByCode", mock.Anything, tt.pairing.Code).Return(tt.pairing, nil).Once()
			_, err := svc.RedeemPairingCode(context.Background(), tt.pairing.Code, "x", nil)
			assert.ErrorIs(t, err, ErrInvalidPairingCode)
		})
	}
}

func TestAuthService_RedeemPairingCode_LostRaceCreatesNoDevice(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	pairing := &domain.PairingCode{
		Code:      "CCCCCC",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	pairings.On("GetByCode", mock.Anything, "CCCCCC").Return(pairing, nil)
	// Another redeem wins between the lookup and the claim.
	pairings.On("Redeem", mock.Anything, "CCCCCC", mock.AnythingOfType("domain.DeviceID")).
		Return(domain.ErrPairingCodeNotFound)

	_, err := svc.RedeemPairingCode(context.Background(), "CCCCCC", "x", nil)
	assert.ErrorIs(t, err, ErrInvalidPairingCode)
	devices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_RedeemPairingCode_BackendErrorPassesThrough(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	pairing := &domain.PairingCode{
		Code:      "DDDDDD",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	backendErr := errors.New("redis: connection refused")
	pairings.On("GetByCode", mock.Anything, "DDDDDD").Return(pairing, nil)
	pairings.On("Redeem", mock.Anything, "DDDDDD", mock.AnythingOfType("domain.DeviceID")).
		Return(backendErr)

	_, err := svc.RedeemPairingCode(context.Background(), "DDDDDD", "x", nil)
	assert.ErrorIs(t, err, backendErr)
	assert.NotErrorIs(t, err, ErrInvalidPairingCode)
	devices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_RedeemPairingCode_UnknownCode(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	pairings.On("GetByCode", mock.Anything, "ZZZZZZ").Return(nil, domain.ErrPairingCodeNotFound)

	_, err := svc.RedeemPairingCode(context.Background(), "ZZZZZZ", "x", nil)
	assert.ErrorIs(t, err, ErrInvalidPairingCode)
}

func TestAuthService_Login(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	// A redeemed pairing gives us a device with a known secret.
	pairing := &domain.PairingCode{Code: "123456", ExpiresAt: time.Now().Add(time.Minute)}
	pairings.On("GetByCode", mock.Anything, "123456").Return(pairing, nil)
	var created *domain.Device
	devices.On("Create", mock.Anything, mock.AnythingOfType("*domain.Device")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Device) }).
		Return(nil)
	pairings.On("Redeem", mock.Anything, "123456", mock.AnythingOfType("domain.DeviceID")).Return(nil)

	result, err := svc.RedeemPairingCode(context.Background(), "123456", "phone", nil)
	require.NoError(t, err)

	devices.On("GetByID", mock.Anything, created.ID).Return(created, nil)

	tokens, err := svc.Login(context.Background(), created.ID, result.Secret)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)

	_, err = svc.Login(context.Background(), created.ID, "wrong-secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownDevice(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	devices.On("GetByID", mock.Anything, domain.DeviceID("nope")).Return(nil, domain.ErrDeviceNotFound)

	_, err := svc.Login(context.Background(), "nope", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterController(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	device := &domain.Device{ID: "dev-1"}
	devices.On("GetByID", mock.Anything, domain.DeviceID("dev-1")).Return(device, nil)

	tokens, err := svc.RegisterController(context.Background(), "dev-1", "laptop")
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleController, claims.Role)
}

func TestAuthService_VerifyAccessToken_RejectsRefreshToken(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	device := &domain.Device{ID: "dev-1"}
	devices.On("GetByID", mock.Anything, domain.DeviceID("dev-1")).Return(device, nil)

	tokens, err := svc.RegisterController(context.Background(), "dev-1", "laptop")
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_VerifyAccessToken_Garbage(t *testing.T) {
	svc := newTestAuthService(new(MockDeviceRepository), new(MockPairingCodeRepository))

	_, err := svc.VerifyAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Refresh(t *testing.T) {
	devices := new(MockDeviceRepository)
	pairings := new(MockPairingCodeRepository)
	svc := newTestAuthService(devices, pairings)

	device := &domain.Device{ID: "dev-1"}
	devices.On("GetByID", mock.Anything, domain.DeviceID("dev-1")).Return(device, nil)

	tokens, err := svc.RegisterController(context.Background(), "dev-1", "laptop")
	require.NoError(t, err)

	access, err := svc.Refresh(tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleController, claims.Role)

	// An access token must not mint new tokens.
	_, err = svc.Refresh(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrRefreshInvalid)
}
