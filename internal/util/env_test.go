package util

import "testing"

func TestBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"off", true, false},
		{" true ", false, true},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Setenv("ORDERGATE_TEST_BOOL", tt.value)
		if got := BoolEnv("ORDERGATE_TEST_BOOL", tt.fallback); got != tt.want {
			t.Errorf("BoolEnv(%q, %v) = %v, want %v", tt.value, tt.fallback, got, tt.want)
		}
	}
}

func TestBoolEnvUnset(t *testing.T) {
	if got := BoolEnv("ORDERGATE_TEST_BOOL_UNSET", true); !got {
		t.Error("unset variable should return the fallback")
	}
	if got := BoolEnv("ORDERGATE_TEST_BOOL_UNSET", false); got {
		t.Error("unset variable should return the fallback")
	}
}
