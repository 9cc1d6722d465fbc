package model

import (
	"strings"
	"testing"
	"time"
)

func TestNewUnitID(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		kind   Kind
		prefix string
	}{
		{KindJob, "job_"},
		{KindGroup, "grp_"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			id, err := NewUnitID(tt.kind, now)
			if err != nil {
				t.Fatalf("NewUnitID(%s) returned error: %v", tt.kind, err)
			}
			if !ValidateID(id) {
				t.Errorf("generated ID %q does not validate", id)
			}
			if !strings.HasPrefix(id, tt.prefix) {
				t.Errorf("ID %q: want prefix %q", id, tt.prefix)
			}
			if want := "_1792227600_"; !strings.Contains(id, want) {
				t.Errorf("ID %q: want timestamp segment %q", id, want)
			}
		})
	}
}

func TestNewUnitID_UnknownKind(t *testing.T) {
	if _, err := NewUnitID("task", time.Now()); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestNewUnitID_Uniqueness(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewUnitID(KindJob, now)
		if err != nil {
			t.Fatalf("NewUnitID returned error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"valid job", "job_1771722000_a3f2b7c1", true},
		{"valid group", "grp_1771722060_b7c1d4e9", true},
		{"invalid prefix", "cmd_1771722000_a3f2b7c1", false},
		{"short timestamp", "job_177172200_a3f2b7c1", false},
		{"uppercase hex", "job_1771722000_A3F2B7C1", false},
		{"long hex", "job_1771722000_a3f2b7c10", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateID(tt.id); got != tt.valid {
				t.Errorf("ValidateID(%q) = %v, want %v", tt.id, got, tt.valid)
			}
		})
	}
}
