package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/FlowDayApp/FlowDay/internal/api"
	"github.com/FlowDayApp/FlowDay/internal/genai"
	"github.com/FlowDayApp/FlowDay/internal/notify"
	"github.com/FlowDayApp/FlowDay/internal/store"
	"github.com/FlowDayApp/FlowDay/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FlowDay state data
	DefaultStateDir = "/var/lib/flowday"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "flowday.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow SQLite database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts, err := buildAPIOptions(flags)
	if err != nil {
		slog.Error("Failed to build API options", "error", err)
		os.Exit(1)
	}

	// Start the service
	slog.Info("Bootstrapping FlowDay with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := api.Run(storeOpts, genaiOpts, apiOpts...); err != nil {
		slog.Error("FlowDay failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FlowDay exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL   string
	StateDir      string
	OpenAIKey     string
	APIAddr       string
	SweepSchedule string
	NotifyChannel string
	Recipients    string
	GoogleCreds   string
	Latitude      float64
	Longitude     float64
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	openaiKey     *string
	apiAddr       *string
	sweepSchedule *string
	notifyChannel *string
	recipients    *string
	googleCreds   *string
	qrOutput      *string
	numeric       *bool
	latitude      float64
	longitude     float64
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("FLOWDAY_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		APIAddr:       os.Getenv("API_ADDR"),
		SweepSchedule: os.Getenv("SWEEP_SCHEDULE"),
		NotifyChannel: os.Getenv("NOTIFY_CHANNEL"),
		Recipients:    os.Getenv("NUDGE_RECIPIENTS"),
		GoogleCreds:   os.Getenv("GOOGLE_CREDENTIALS"),
		Latitude:      util.ParseFloatEnv("WEATHER_LATITUDE", 0),
		Longitude:     util.ParseFloatEnv("WEATHER_LONGITUDE", 0),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FLOWDAY_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("FLOWDAY_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"FLOWDAY_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"SWEEP_SCHEDULE", config.SweepSchedule,
		"NOTIFY_CHANNEL", config.NotifyChannel,
		"NUDGE_RECIPIENTS_SET", config.Recipients != "",
		"GOOGLE_CREDENTIALS_SET", config.GoogleCreds != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for FlowDay data (overrides $FLOWDAY_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the FlowDay store (overrides $DATABASE_URL)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		sweepSchedule: flag.String("sweep-schedule", config.SweepSchedule, "cron schedule for the proactive sweep (overrides $SWEEP_SCHEDULE)"),
		notifyChannel: flag.String("notify-channel", config.NotifyChannel, "nudge delivery channel: log, twilio, or whatsapp (overrides $NOTIFY_CHANNEL)"),
		recipients:    flag.String("nudge-recipients", config.Recipients, "userID:phone pairs covered by the sweep, comma separated (overrides $NUDGE_RECIPIENTS)"),
		googleCreds:   flag.String("google-credentials", config.GoogleCreds, "path to Google OAuth credentials JSON (overrides $GOOGLE_CREDENTIALS)"),
		qrOutput:      flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:       flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
		latitude:      config.Latitude,
		longitude:     config.Longitude,
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"sweepSchedule", *flags.sweepSchedule,
		"notifyChannel", *flags.notifyChannel,
		"recipientsSet", *flags.recipients != "",
		"googleCredsSet", *flags.googleCreds != "")

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) != "postgres" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options, including the
// nudge delivery channel and validated sweep recipients.
func buildAPIOptions(flags Flags) ([]api.Option, error) {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.sweepSchedule != "" {
		apiOpts = append(apiOpts, api.WithSweepSchedule(*flags.sweepSchedule))
	}
	if *flags.googleCreds != "" {
		apiOpts = append(apiOpts, api.WithGoogleCredentials(*flags.googleCreds))
	}
	if flags.latitude != 0 || flags.longitude != 0 {
		apiOpts = append(apiOpts, api.WithLocation(flags.latitude, flags.longitude))
	}

	notifier, err := buildNotifier(flags)
	if err != nil {
		return nil, err
	}
	apiOpts = append(apiOpts, api.WithNotifier(notifier))

	if *flags.recipients != "" {
		recipients := util.ParseRecipients(*flags.recipients)
		canonical := make(map[int64]string, len(recipients))
		for userID, raw := range recipients {
			to, err := notifier.ValidateAndCanonicalizeRecipient(raw)
			if err != nil {
				slog.Warn("Skipping recipient with invalid phone number", "userID", userID, "error", err)
				continue
			}
			canonical[userID] = to
		}
		if len(canonical) > 0 {
			apiOpts = append(apiOpts, api.WithRecipients(canonical))
		}
	}
	return apiOpts, nil
}

// buildNotifier selects the nudge delivery channel. Unset or unknown channels
// fall back to log-only delivery.
func buildNotifier(flags Flags) (notify.Service, error) {
	switch strings.ToLower(*flags.notifyChannel) {
	case "twilio":
		return notify.NewTwilioService()
	case "whatsapp":
		waOpts := []notify.WhatsAppOption{
			notify.WithWhatsAppDBDSN(filepath.Join(*flags.stateDir, DefaultWhatsAppDBFileName)),
		}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, notify.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, notify.WithNumericCode())
		}
		return notify.NewWhatsAppService(waOpts...)
	case "", "log":
		return notify.NewLogService(), nil
	default:
		slog.Warn("Unknown notify channel, using log-only delivery", "channel", *flags.notifyChannel)
		return notify.NewLogService(), nil
	}
}
