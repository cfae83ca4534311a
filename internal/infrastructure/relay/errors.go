package relay

import "errors"

var (
	ErrDeviceRequired    = errors.New("controller session requires a known device_id")
	ErrUnknownRole       = errors.New("token role admits no session type")
	ErrUnexpectedMessage = errors.New("message type not valid for this role")
)
