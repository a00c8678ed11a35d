package utils

import (
	"testing"
	"time"
)

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		val  string
		def  bool
		want bool
	}{
		{"1", false, true},
		{"true", false, true},
		{"yes", false, true},
		{"0", true, false},
		{"false", true, false},
		{"no", true, false},
		{"garbage", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.val)
		if got := GetEnvAsBool("TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("GetEnvAsBool(%q, %v) = %v, want %v", tt.val, tt.def, got, tt.want)
		}
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := GetEnvAsInt("TEST_INT", 7); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	t.Setenv("TEST_INT", "not-a-number")
	if got := GetEnvAsInt("TEST_INT", 7); got != 7 {
		t.Errorf("Expected default 7, got %d", got)
	}
	if got := GetEnvAsInt("TEST_INT_UNSET", 9); got != 9 {
		t.Errorf("Expected default 9, got %d", got)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "2.5")
	if got := GetEnvAsFloat("TEST_FLOAT", 1.0); got != 2.5 {
		t.Errorf("Expected 2.5, got %f", got)
	}
	t.Setenv("TEST_FLOAT", "bad")
	if got := GetEnvAsFloat("TEST_FLOAT", 1.5); got != 1.5 {
		t.Errorf("Expected default 1.5, got %f", got)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "250ms")
	if got := GetEnvAsDuration("TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %s", got)
	}
	t.Setenv("TEST_DUR", "nope")
	if got := GetEnvAsDuration("TEST_DUR", 2*time.Second); got != 2*time.Second {
		t.Errorf("Expected default 2s, got %s", got)
	}
}
