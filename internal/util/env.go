// Package util provides environment variable parsing helpers shared across components.
package util

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ParseBoolEnv parses a boolean environment variable with a default value.
// Accepts: true/1/yes/on and false/0/no/off (case-insensitive). Invalid values return default.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}

// ParseFloatEnv parses a float environment variable with a default value.
// Invalid values return the default.
func ParseFloatEnv(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		slog.Warn("ParseFloatEnv: invalid float value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
	return f
}

// ParseRecipients parses a "userID:recipient" list separated by commas, e.g.
// "1:+15551234567,2:+15557654321". Malformed entries are skipped with a
// warning rather than failing startup.
func ParseRecipients(raw string) map[int64]string {
	recipients := make(map[int64]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			slog.Warn("ParseRecipients: skipping malformed entry", "entry", entry)
			continue
		}
		userID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil || userID <= 0 {
			slog.Warn("ParseRecipients: skipping entry with invalid user ID", "entry", entry)
			continue
		}
		recipient := strings.TrimSpace(parts[1])
		if recipient == "" {
			slog.Warn("ParseRecipients: skipping entry with empty recipient", "entry", entry)
			continue
		}
		recipients[userID] = recipient
	}
	return recipients
}
