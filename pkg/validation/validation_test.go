package validation

import (
	"strings"
	"testing"
)

func TestValidateDeviceID(t *testing.T) {
	cases := []struct {
		id      string
		wantErr bool
	}{
		{"dev-1", false},
		{"a1b2c3d4-e5f6-7890-abcd-ef0123456789", false},
		{"under_score", false},
		{"", true},
		{"has space", true},
		{"semi;colon", true},
		{strings.Repeat("a", 65), true},
	}

	for _, tc := range cases {
		err := ValidateDeviceID(tc.id)
		if tc.wantErr && err == nil {
			t.Errorf("ValidateDeviceID(%q): expected error", tc.id)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("ValidateDeviceID(%q): unexpected error: %v", tc.id, err)
		}
	}
}

func TestValidatePairingCode(t *testing.T) {
	cases := []struct {
		code    string
		wantErr bool
	}{
		{"AB12CD", false},
		{"000000", false},
		{"ab12cd", true},
		{"AB12C", true},
		{"AB12CDE", true},
		{"GHIJKL", true},
		{"", true},
	}

	for _, tc := range cases {
		err := ValidatePairingCode(tc.code)
		if tc.wantErr && err == nil {
			t.Errorf("ValidatePairingCode(%q): expected error", tc.code)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("ValidatePairingCode(%q): unexpected error: %v", tc.code, err)
		}
	}
}

func TestValidateAction(t *testing.T) {
	if err := ValidateAction("start_camera"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateAction("Start-Camera"); err == nil {
		t.Error("expected error for invalid action format")
	}
	if err := ValidateAction(""); err == nil {
		t.Error("expected error for empty action")
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Living Room Phone"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateName("  "); err == nil {
		t.Error("expected error for blank name")
	}
	if err := ValidateName(strings.Repeat("x", 101)); err == nil {
		t.Error("expected error for overlong name")
	}
}
