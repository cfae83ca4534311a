package ports

import (
	"context"
	"time"

	"remoteeye/internal/core/domain"
)

type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) error
	GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error)
	Update(ctx context.Context, device *domain.Device) error
	UpdatePresence(ctx context.Context, id domain.DeviceID, presence domain.Presence, lastSeen time.Time) error
	Delete(ctx context.Context, id domain.DeviceID) error
	List(ctx context.Context) ([]*domain.Device, error)
}

type CommandRepository interface {
	Create(ctx context.Context, cmd *domain.Command) error
	GetByID(ctx context.Context, id domain.CommandID) (*domain.Command, error)
	Update(ctx context.Context, cmd *domain.Command) error
	// ListPending returns PENDING commands for the device in creation order.
	ListPending(ctx context.Context, deviceID domain.DeviceID) ([]*domain.Command, error)
	// ListPendingBefore returns PENDING commands (any device) created before
	// the cutoff, for the expiry sweep.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Command, error)
	ListByDevice(ctx context.Context, deviceID domain.DeviceID, status domain.CommandStatus, limit, offset int) ([]*domain.Command, int, error)
}

type PairingCodeRepository interface {
	Create(ctx context.Context, code *domain.PairingCode) error
	GetByCode(ctx context.Context, code string) (*domain.PairingCode, error)
	// Redeem marks the code used and binds it to the device, failing if the
	// code was already used. The check-and-set is atomic per code.
	Redeem(ctx context.Context, code string, deviceID domain.DeviceID) error
	// FindActiveByClaim returns an unexpired unredeemed code issued for the claim.
	FindActiveByClaim(ctx context.Context, claim string) (*domain.PairingCode, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type RecordingRepository interface {
	Create(ctx context.Context, rec *domain.Recording) error
	GetByID(ctx context.Context, id string) (*domain.Recording, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, deviceID domain.DeviceID, limit, offset int) ([]*domain.Recording, int, error)
}
