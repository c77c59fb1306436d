package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioOpts holds configuration options for the Twilio WhatsApp channel.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string // WhatsApp number in "whatsapp:+1234567890" format
}

// TwilioOption defines a configuration option for the Twilio channel.
type TwilioOption func(*TwilioOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithFromNumber sets the sending WhatsApp number.
func WithFromNumber(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromNumber = from }
}

// TwilioService delivers nudges over Twilio's WhatsApp API.
type TwilioService struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioService creates a Twilio-backed nudge service. Credentials fall
// back to the TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER
// environment variables when not supplied via options.
func NewTwilioService(options ...TwilioOption) (*TwilioService, error) {
	var cfg TwilioOpts
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("NewTwilioService config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioService{client: client, from: cfg.FromNumber}, nil
}

// ValidateAndCanonicalizeRecipient normalizes the recipient phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// SendNudge sends one WhatsApp message through Twilio.
func (s *TwilioService) SendNudge(ctx context.Context, to string, body string) error {
	if body == "" {
		return fmt.Errorf("nudge body cannot be empty")
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		slog.Error("TwilioService.SendNudge: delivery failed", "error", err, "to", to)
		return fmt.Errorf("failed to send nudge to %s: %w", to, err)
	}
	slog.Debug("TwilioService.SendNudge: nudge sent", "to", to)
	return nil
}

// Start is a no-op; the Twilio REST client needs no connection setup.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op for the Twilio channel.
func (s *TwilioService) Stop() error {
	return nil
}
