package domain

import "time"

type DeviceID string

type ControllerID string

// Presence is the ONLINE/OFFLINE status of a device, derived from connection
// lifecycle rather than polling.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// Device is the persisted record of a paired device. Presence and LastSeen
// are mutated only by the presence tracker.
type Device struct {
	ID         DeviceID               `json:"id"`
	Name       string                 `json:"name"`
	SecretHash string                 `json:"-"`
	Presence   Presence               `json:"presence"`
	LastSeen   time.Time              `json:"last_seen"`
	Info       map[string]interface{} `json:"info,omitempty"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// PairingCode is a short-lived single-use code that lets a new device pair.
// DeviceID is filled in when the code is redeemed.
type PairingCode struct {
	Code      string    `json:"code"`
	Claim     string    `json:"claim"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	DeviceID  DeviceID  `json:"device_id,omitempty"`
}

// Active reports whether the code can still be redeemed at the given instant.
func (p *PairingCode) Active(now time.Time) bool {
	return !p.Used && now.Before(p.ExpiresAt)
}

// RecordingType distinguishes captured artifacts reported by a device.
type RecordingType string

const (
	RecordingAudio RecordingType = "audio"
	RecordingPhoto RecordingType = "photo"
)

// Recording is metadata about a capture the device reported. The media bytes
// themselves never pass through the relay store.
type Recording struct {
	ID          string        `json:"id"`
	DeviceID    DeviceID      `json:"device_id"`
	Type        RecordingType `json:"type"`
	Filename    string        `json:"filename"`
	Duration    int           `json:"duration,omitempty"` // seconds, audio only
	Size        int64         `json:"size"`
	TriggeredBy string        `json:"triggered_by"`
	CreatedAt   time.Time     `json:"created_at"`
}
