// Package notify delivers proactive nudges to users over a pluggable channel.
//
// Three channels are provided: a log-only service for development, Twilio
// WhatsApp delivery, and a native WhatsApp client. All of them canonicalize
// recipient phone numbers to E.164 before sending.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Service delivers nudges to a recipient over some channel.
type Service interface {
	// ValidateAndCanonicalizeRecipient normalizes a phone number to E.164.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)
	// SendNudge delivers one message to the recipient.
	SendNudge(ctx context.Context, to string, body string) error
	// Start prepares the channel for delivery.
	Start(ctx context.Context) error
	// Stop releases channel resources.
	Stop() error
}

// CanonicalizePhone normalizes a phone number to E.164 form. It accepts
// common formatting (spaces, dashes, dots, parentheses) and a missing leading
// plus sign.
func CanonicalizePhone(recipient string) (string, error) {
	cleaned := strings.TrimSpace(recipient)
	if cleaned == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	replacer := strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "", "+", "")
	digits := replacer.Replace(cleaned)
	if digits == "" {
		return "", fmt.Errorf("recipient %q contains no digits", recipient)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("recipient %q contains invalid character %q", recipient, r)
		}
	}
	if len(digits) < 7 || len(digits) > 15 {
		return "", fmt.Errorf("recipient %q has %d digits, expected 7 to 15", recipient, len(digits))
	}
	return "+" + digits, nil
}

// LogService is a delivery channel that only logs nudges. It is the default
// when no messaging credentials are configured.
type LogService struct{}

// NewLogService creates a log-only nudge service.
func NewLogService() *LogService {
	return &LogService{}
}

// ValidateAndCanonicalizeRecipient normalizes the recipient phone number.
func (s *LogService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// SendNudge logs the nudge instead of delivering it.
func (s *LogService) SendNudge(ctx context.Context, to string, body string) error {
	if body == "" {
		return fmt.Errorf("nudge body cannot be empty")
	}
	slog.Info("LogService.SendNudge: nudge logged", "to", to, "body", body)
	return nil
}

// Start is a no-op for the log channel.
func (s *LogService) Start(ctx context.Context) error {
	slog.Debug("LogService.Start: log-only nudge delivery active")
	return nil
}

// Stop is a no-op for the log channel.
func (s *LogService) Stop() error {
	return nil
}

// MockService records nudges for tests.
type MockService struct {
	Sent []SentNudge
}

// SentNudge is one recorded delivery.
type SentNudge struct {
	To   string
	Body string
}

// NewMockService creates a recording nudge service for tests.
func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

func (m *MockService) SendNudge(ctx context.Context, to string, body string) error {
	m.Sent = append(m.Sent, SentNudge{To: to, Body: body})
	return nil
}

func (m *MockService) Start(ctx context.Context) error { return nil }

func (m *MockService) Stop() error { return nil }
