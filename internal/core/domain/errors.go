package domain

import "errors"

var (
	ErrDeviceNotFound      = errors.New("device not found")
	ErrCommandNotFound     = errors.New("command not found")
	ErrPairingCodeNotFound = errors.New("pairing code not found")
	ErrRecordingNotFound   = errors.New("recording not found")
	ErrDuplicateDevice     = errors.New("device already exists")
	ErrInvalidTransition   = errors.New("invalid command status transition")
)
