package domain

import (
	"testing"
	"time"
)

func TestCommandStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to CommandStatus
		ok       bool
	}{
		{CommandPending, CommandDelivered, true},
		{CommandDelivered, CommandExecuting, true},
		{CommandExecuting, CommandCompleted, true},
		{CommandExecuting, CommandFailed, true},
		{CommandPending, CommandExpired, true},

		// No skipping forward more than one step.
		{CommandPending, CommandExecuting, false},
		{CommandPending, CommandCompleted, false},
		{CommandDelivered, CommandCompleted, false},

		// No moving backwards.
		{CommandDelivered, CommandPending, false},
		{CommandCompleted, CommandExecuting, false},

		// Expiry only from PENDING.
		{CommandDelivered, CommandExpired, false},
		{CommandExecuting, CommandExpired, false},

		// Terminal states admit nothing.
		{CommandCompleted, CommandFailed, false},
		{CommandExpired, CommandDelivered, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestCommandStatus_Terminal(t *testing.T) {
	terminal := []CommandStatus{CommandCompleted, CommandFailed, CommandExpired}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	active := []CommandStatus{CommandPending, CommandDelivered, CommandExecuting}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestValidAction(t *testing.T) {
	if !ValidAction(ActionStartCamera) {
		t.Error("start_camera should be valid")
	}
	if ValidAction(CommandAction("reboot_into_orbit")) {
		t.Error("unknown action should be invalid")
	}
}

func TestPairingCode_Active(t *testing.T) {
	now := time.Now()
	code := &PairingCode{Code: "AB12CD", ExpiresAt: now.Add(time.Minute)}
	if !code.Active(now) {
		t.Error("unused unexpired code should be active")
	}
	code.Used = true
	if code.Active(now) {
		t.Error("used code should be inactive")
	}
	code.Used = false
	if code.Active(code.ExpiresAt) {
		t.Error("expired code should be inactive")
	}
}
