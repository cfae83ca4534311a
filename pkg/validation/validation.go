package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// IdentityRegex validates device and controller identifiers
	IdentityRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// PairingCodeRegex validates pairing code format (6 uppercase hex chars)
	PairingCodeRegex = regexp.MustCompile(`^[0-9A-F]{6}$`)

	// ActionRegex validates command action names
	ActionRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// ValidateDeviceID validates a device identifier
func ValidateDeviceID(id string) error {
	if id == "" {
		return fmt.Errorf("device id is required")
	}
	if len(id) > 64 {
		return fmt.Errorf("device id is too long (max 64 characters)")
	}
	if !IdentityRegex.MatchString(id) {
		return fmt.Errorf("device id contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateName validates a device or controller display name
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > 100 {
		return fmt.Errorf("name is too long (max 100 characters)")
	}
	return nil
}

// ValidatePairingCode validates a pairing code
func ValidatePairingCode(code string) error {
	if code == "" {
		return fmt.Errorf("pairing code is required")
	}
	if !PairingCodeRegex.MatchString(code) {
		return fmt.Errorf("pairing code must be 6 uppercase hex characters")
	}
	return nil
}

// ValidateAction validates a command action name
func ValidateAction(action string) error {
	if action == "" {
		return fmt.Errorf("action is required")
	}
	if len(action) > 50 {
		return fmt.Errorf("action is too long (max 50 characters)")
	}
	if !ActionRegex.MatchString(action) {
		return fmt.Errorf("invalid action format")
	}
	return nil
}
