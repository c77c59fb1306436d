package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/FlowDayApp/FlowDay/internal/store"
)

// Constants for the native WhatsApp channel.
const (
	// DefaultWhatsAppDBPath is the default path for the whatsmeow SQLite database.
	DefaultWhatsAppDBPath = "/var/lib/flowday/whatsmeow.db"
	// jidSuffix is the WhatsApp JID suffix for regular users.
	jidSuffix = "s.whatsapp.net"
)

// WhatsAppOpts holds configuration options for the native WhatsApp channel.
type WhatsAppOpts struct {
	DBDSN       string // whatsmeow database connection string
	QRPath      string // path to write the login QR code
	NumericCode bool   // use a numeric login code instead of a QR code
}

// WhatsAppOption defines a configuration option for the WhatsApp channel.
type WhatsAppOption func(*WhatsAppOpts)

// WithWhatsAppDBDSN sets the whatsmeow database connection string.
func WithWhatsAppDBDSN(dsn string) WhatsAppOption {
	return func(o *WhatsAppOpts) { o.DBDSN = dsn }
}

// WithQRCodeOutput writes the login QR code to the specified path.
func WithQRCodeOutput(path string) WhatsAppOption {
	return func(o *WhatsAppOpts) { o.QRPath = path }
}

// WithNumericCode uses a numeric login code instead of a QR code.
func WithNumericCode() WhatsAppOption {
	return func(o *WhatsAppOpts) { o.NumericCode = true }
}

// WhatsAppService delivers nudges over a native whatsmeow client.
type WhatsAppService struct {
	waClient *whatsmeow.Client
}

// NewWhatsAppService creates a WhatsApp-backed nudge service and completes
// the login flow if the device is not yet paired.
func NewWhatsAppService(options ...WhatsAppOption) (*WhatsAppService, error) {
	var cfg WhatsAppOpts
	for _, opt := range options {
		opt(&cfg)
	}
	slog.Debug("NewWhatsAppService options set", "DBDSN_set", cfg.DBDSN != "", "QRPath_set", cfg.QRPath != "", "NumericCode", cfg.NumericCode)

	dbDSN := cfg.DBDSN
	if dbDSN == "" {
		dbDSN = DefaultWhatsAppDBPath
		slog.Debug("NewWhatsAppService: no DSN provided, using default SQLite path", "default_path", dbDSN)
	}

	var dbDriver string
	if store.DetectDSNType(dbDSN) == "postgres" {
		dbDriver = "postgres"
	} else {
		dbDriver = "sqlite3"
		// whatsmeow strongly recommends foreign keys for its SQLite store.
		if !strings.Contains(dbDSN, "foreign_keys") {
			slog.Warn("SQLite database for WhatsApp does not appear to have foreign keys enabled. "+
				"Consider adding '?_foreign_keys=on' to your connection string.",
				"dsn_example", "file:"+dbDSN+"?_foreign_keys=on")
		}
	}

	ctx := context.Background()
	container, err := sqlstore.New(ctx, dbDriver, dbDSN, waLog.Stdout("Database", "INFO", true))
	if err != nil {
		slog.Error("NewWhatsAppService: failed to initialize device store", "error", err)
		return nil, fmt.Errorf("failed to initialize WhatsApp database store: %w", err)
	}
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		slog.Error("NewWhatsAppService: failed to get device from store", "error", err)
		return nil, fmt.Errorf("failed to get device from WhatsApp store: %w", err)
	}

	waClient := whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))
	if waClient.Store.ID == nil {
		slog.Info("NewWhatsAppService: login required, starting QR code flow")
		qrChan, _ := waClient.GetQRChannel(context.Background())
		if err := waClient.Connect(); err != nil {
			slog.Error("NewWhatsAppService: failed to connect during login", "error", err)
			return nil, fmt.Errorf("failed to connect to WhatsApp during login: %w", err)
		}
		writer := io.Writer(os.Stdout)
		if cfg.QRPath != "" {
			f, ferr := os.Create(cfg.QRPath)
			if ferr != nil {
				return nil, fmt.Errorf("failed to create QR file: %w", ferr)
			}
			defer f.Close()
			writer = f
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				if cfg.NumericCode {
					fmt.Fprintln(writer, evt.Code)
				} else {
					qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, writer)
				}
			} else {
				slog.Debug("NewWhatsAppService: login event", "event", evt.Event)
			}
		}
	} else {
		slog.Debug("NewWhatsAppService: already logged in, connecting to server")
		if err := waClient.Connect(); err != nil {
			slog.Error("NewWhatsAppService: failed to connect", "error", err)
			return nil, fmt.Errorf("failed to connect to WhatsApp server: %w", err)
		}
	}
	slog.Info("NewWhatsAppService: WhatsApp client connected")
	return &WhatsAppService{waClient: waClient}, nil
}

// ValidateAndCanonicalizeRecipient normalizes the recipient phone number.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// SendNudge sends one WhatsApp message to the recipient.
func (s *WhatsAppService) SendNudge(ctx context.Context, to string, body string) error {
	if s.waClient == nil {
		return fmt.Errorf("whatsapp client not initialized")
	}
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	if body == "" {
		return fmt.Errorf("nudge body cannot be empty")
	}

	// JIDs carry the bare number without the leading plus.
	jid := types.NewJID(strings.TrimPrefix(to, "+"), jidSuffix)
	msg := &waE2E.Message{Conversation: &body}
	if _, err := s.waClient.SendMessage(ctx, jid, msg); err != nil {
		slog.Error("WhatsAppService.SendNudge: delivery failed", "error", err, "to", to)
		return fmt.Errorf("failed to send nudge to %s: %w", to, err)
	}
	slog.Debug("WhatsAppService.SendNudge: nudge sent", "to", to)
	return nil
}

// Start is a no-op; the client connects during construction.
func (s *WhatsAppService) Start(ctx context.Context) error {
	return nil
}

// Stop disconnects the underlying WhatsApp client.
func (s *WhatsAppService) Stop() error {
	if s.waClient != nil {
		s.waClient.Disconnect()
	}
	return nil
}
