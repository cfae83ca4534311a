package domain

import (
	"time"
)

type CommandID string

// CommandStatus is the lifecycle state of a command. Transitions are
// monotonic: PENDING -> DELIVERED -> EXECUTING -> COMPLETED|FAILED, with
// PENDING -> EXPIRED as the only shortcut.
type CommandStatus string

const (
	CommandPending   CommandStatus = "pending"
	CommandDelivered CommandStatus = "delivered"
	CommandExecuting CommandStatus = "executing"
	CommandCompleted CommandStatus = "completed"
	CommandFailed    CommandStatus = "failed"
	CommandExpired   CommandStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s CommandStatus) Terminal() bool {
	switch s {
	case CommandCompleted, CommandFailed, CommandExpired:
		return true
	}
	return false
}

// rank orders the forward delivery path. Expired sits outside the path and is
// handled separately.
func (s CommandStatus) rank() int {
	switch s {
	case CommandPending:
		return 0
	case CommandDelivered:
		return 1
	case CommandExecuting:
		return 2
	case CommandCompleted, CommandFailed:
		return 3
	}
	return -1
}

// CanTransition reports whether moving from s to next is a legal single step
// along the delivery path, or the expiry shortcut from PENDING.
func (s CommandStatus) CanTransition(next CommandStatus) bool {
	if next == CommandExpired {
		return s == CommandPending
	}
	from, to := s.rank(), next.rank()
	if from < 0 || to < 0 {
		return false
	}
	return to == from+1
}

// CommandAction is the closed set of actions a controller may request.
type CommandAction string

const (
	ActionStartCamera           CommandAction = "start_camera"
	ActionStopCamera            CommandAction = "stop_camera"
	ActionSwitchCamera          CommandAction = "switch_camera"
	ActionStartAudio            CommandAction = "start_audio"
	ActionStopAudio             CommandAction = "stop_audio"
	ActionCapturePhoto          CommandAction = "capture_photo"
	ActionStartRecording        CommandAction = "start_recording"
	ActionStopRecording         CommandAction = "stop_recording"
	ActionGetLocation           CommandAction = "get_location"
	ActionGetStatus             CommandAction = "get_status"
	ActionSetSoundThreshold     CommandAction = "set_sound_threshold"
	ActionEnableSoundDetection  CommandAction = "enable_sound_detection"
	ActionDisableSoundDetection CommandAction = "disable_sound_detection"
)

// ValidAction reports whether the action belongs to the known set.
func ValidAction(a CommandAction) bool {
	switch a {
	case ActionStartCamera, ActionStopCamera, ActionSwitchCamera,
		ActionStartAudio, ActionStopAudio, ActionCapturePhoto,
		ActionStartRecording, ActionStopRecording,
		ActionGetLocation, ActionGetStatus,
		ActionSetSoundThreshold, ActionEnableSoundDetection, ActionDisableSoundDetection:
		return true
	}
	return false
}

// Command is a persisted instruction destined for a device. Once a terminal
// status is reached the record is immutable.
type Command struct {
	ID          CommandID              `json:"id"`
	DeviceID    DeviceID               `json:"device_id"`
	Action      CommandAction          `json:"action"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Status      CommandStatus          `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	DeliveredAt *time.Time             `json:"delivered_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Error       string                 `json:"error,omitempty"`
}
