package notify

import (
	"context"
	"testing"
)

func TestCanonicalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"already canonical", "+15551234567", "+15551234567", false},
		{"missing plus", "15551234567", "+15551234567", false},
		{"spaces and dashes", "+1 555-123-4567", "+15551234567", false},
		{"parentheses", "(555) 123-4567", "+5551234567", false},
		{"dots", "555.123.4567", "+5551234567", false},
		{"surrounding whitespace", "  +15551234567  ", "+15551234567", false},
		{"empty", "", "", true},
		{"letters", "+1555CALLNOW", "", true},
		{"too short", "+12345", "", true},
		{"too long", "+1234567890123456", "", true},
		{"only punctuation", "+()-", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizePhone(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CanonicalizePhone(%q) expected error, got %q", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CanonicalizePhone(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogServiceSendNudge(t *testing.T) {
	svc := NewLogService()
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.SendNudge(context.Background(), "+15551234567", "time for a break"); err != nil {
		t.Errorf("SendNudge failed: %v", err)
	}
	if err := svc.SendNudge(context.Background(), "+15551234567", ""); err == nil {
		t.Error("expected error for empty body")
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestNewTwilioServiceMissingCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewTwilioService(); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := NewTwilioService(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Fatal("expected error without from number")
	}
}

func TestMockServiceRecordsNudges(t *testing.T) {
	m := NewMockService()
	if err := m.SendNudge(context.Background(), "+15551234567", "hello"); err != nil {
		t.Fatalf("SendNudge failed: %v", err)
	}
	if len(m.Sent) != 1 || m.Sent[0].Body != "hello" {
		t.Errorf("unexpected recorded nudges: %+v", m.Sent)
	}
}
