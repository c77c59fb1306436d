package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"OFF", true, false},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if got := ParseBoolEnv("TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}

func TestParseFloatEnv(t *testing.T) {
	t.Setenv("TEST_FLOAT", "43.65")
	if got := ParseFloatEnv("TEST_FLOAT", 0); got != 43.65 {
		t.Errorf("ParseFloatEnv = %v, want 43.65", got)
	}
	t.Setenv("TEST_FLOAT", "not a number")
	if got := ParseFloatEnv("TEST_FLOAT", 1.5); got != 1.5 {
		t.Errorf("ParseFloatEnv fallback = %v, want 1.5", got)
	}
	t.Setenv("TEST_FLOAT", "")
	if got := ParseFloatEnv("TEST_FLOAT", -79.38); got != -79.38 {
		t.Errorf("ParseFloatEnv default = %v, want -79.38", got)
	}
}

func TestParseRecipients(t *testing.T) {
	got := ParseRecipients("1:+15551230001, 2:+15551230002 ,bad,0:+1555,3:")
	if len(got) != 2 {
		t.Fatalf("expected 2 valid entries, got %d: %+v", len(got), got)
	}
	if got[1] != "+15551230001" || got[2] != "+15551230002" {
		t.Errorf("unexpected recipients: %+v", got)
	}
	if len(ParseRecipients("")) != 0 {
		t.Error("empty input should yield no recipients")
	}
}
