// Package store provides storage backends for FlowDay.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/FlowDayApp/FlowDay/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateMood(m *models.MoodRecord) error {
	err := s.db.QueryRow(`INSERT INTO moods (user_id, symbol, note, context_json, timestamp) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.UserID, m.Symbol, m.Note, m.ContextJSON, m.Timestamp).Scan(&m.ID)
	if err != nil {
		slog.Error("PostgresStore CreateMood failed", "error", err, "userID", m.UserID)
		return fmt.Errorf("failed to insert mood: %w", err)
	}
	slog.Debug("PostgresStore CreateMood succeeded", "userID", m.UserID, "moodID", m.ID, "symbol", m.Symbol)
	return nil
}

func (s *PostgresStore) GetMoods(userID int64, limit int) ([]models.MoodRecord, error) {
	query := `SELECT id, user_id, symbol, note, context_json, timestamp FROM moods WHERE user_id = $1 ORDER BY timestamp DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore GetMoods query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query moods: %w", err)
	}
	defer rows.Close()

	var moods []models.MoodRecord
	for rows.Next() {
		var m models.MoodRecord
		if err := rows.Scan(&m.ID, &m.UserID, &m.Symbol, &m.Note, &m.ContextJSON, &m.Timestamp); err != nil {
			slog.Error("PostgresStore GetMoods scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan mood row: %w", err)
		}
		moods = append(moods, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetMoods rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate mood rows: %w", err)
	}
	slog.Debug("PostgresStore GetMoods succeeded", "userID", userID, "count", len(moods))
	return moods, nil
}

func (s *PostgresStore) UpsertSleep(rec *models.SleepRecord) error {
	_, err := s.db.Exec(`INSERT INTO sleep_records (user_id, date, quality, hours, wake_up_time, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, date) DO UPDATE SET
			quality = excluded.quality,
			hours = excluded.hours,
			wake_up_time = excluded.wake_up_time,
			notes = excluded.notes`,
		rec.UserID, rec.Date, rec.Quality, rec.Hours, rec.WakeUpTime, rec.Notes)
	if err != nil {
		slog.Error("PostgresStore UpsertSleep failed", "error", err, "userID", rec.UserID, "date", rec.Date)
		return fmt.Errorf("failed to upsert sleep record for %s: %w", rec.Date, err)
	}
	slog.Debug("PostgresStore UpsertSleep succeeded", "userID", rec.UserID, "date", rec.Date, "quality", rec.Quality)
	return nil
}

func (s *PostgresStore) GetSleepForDate(userID int64, date string) (*models.SleepRecord, error) {
	var rec models.SleepRecord
	err := s.db.QueryRow(`SELECT id, user_id, date, quality, hours, wake_up_time, notes
		FROM sleep_records WHERE user_id = $1 AND date = $2`, userID, date).
		Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Quality, &rec.Hours, &rec.WakeUpTime, &rec.Notes)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSleepForDate not found", "userID", userID, "date", date)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSleepForDate failed", "error", err, "userID", userID, "date", date)
		return nil, fmt.Errorf("failed to query sleep record for %s: %w", date, err)
	}
	return &rec, nil
}

func (s *PostgresStore) CreateEvent(ev *models.CalendarEvent) error {
	if ev.Movability == "" {
		ev.Movability = models.MovabilityUnsure
	}
	err := s.db.QueryRow(`INSERT INTO calendar_events (user_id, title, description, start_time, end_time, location, event_type, movability, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		ev.UserID, ev.Title, ev.Description, ev.StartTime, ev.EndTime, ev.Location, ev.EventType, ev.Movability, ev.ExternalID).Scan(&ev.ID)
	if err != nil {
		slog.Error("PostgresStore CreateEvent failed", "error", err, "userID", ev.UserID, "title", ev.Title)
		return fmt.Errorf("failed to insert event %q: %w", ev.Title, err)
	}
	slog.Debug("PostgresStore CreateEvent succeeded", "userID", ev.UserID, "eventID", ev.ID, "title", ev.Title)
	return nil
}

func (s *PostgresStore) UpdateEvent(ev *models.CalendarEvent) error {
	res, err := s.db.Exec(`UPDATE calendar_events SET title = $1, description = $2, start_time = $3, end_time = $4, location = $5, event_type = $6, movability = $7
		WHERE id = $8 AND user_id = $9`,
		ev.Title, ev.Description, ev.StartTime, ev.EndTime, ev.Location, ev.EventType, ev.Movability, ev.ID, ev.UserID)
	if err != nil {
		slog.Error("PostgresStore UpdateEvent failed", "error", err, "eventID", ev.ID)
		return fmt.Errorf("failed to update event %d: %w", ev.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	slog.Debug("PostgresStore UpdateEvent succeeded", "eventID", ev.ID)
	return nil
}

func (s *PostgresStore) SetEventMovability(userID, eventID int64, m models.Movability) error {
	res, err := s.db.Exec(`UPDATE calendar_events SET movability = $1 WHERE id = $2 AND user_id = $3`, m, eventID, userID)
	if err != nil {
		slog.Error("PostgresStore SetEventMovability failed", "error", err, "eventID", eventID)
		return fmt.Errorf("failed to update movability for event %d: %w", eventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	slog.Debug("PostgresStore SetEventMovability succeeded", "eventID", eventID, "movability", m)
	return nil
}

func (s *PostgresStore) DeleteEvent(userID, eventID int64) error {
	res, err := s.db.Exec(`DELETE FROM calendar_events WHERE id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		slog.Error("PostgresStore DeleteEvent failed", "error", err, "eventID", eventID)
		return fmt.Errorf("failed to delete event %d: %w", eventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	slog.Debug("PostgresStore DeleteEvent succeeded", "eventID", eventID)
	return nil
}

func (s *PostgresStore) GetEventsBetween(userID int64, start, end time.Time) ([]models.CalendarEvent, error) {
	rows, err := s.db.Query(`SELECT id, user_id, title, description, start_time, end_time, location, event_type, movability, external_id
		FROM calendar_events WHERE user_id = $1 AND start_time >= $2 AND start_time < $3 ORDER BY start_time ASC`,
		userID, start, end)
	if err != nil {
		slog.Error("PostgresStore GetEventsBetween query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		var movability string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.Description, &ev.StartTime, &ev.EndTime,
			&ev.Location, &ev.EventType, &movability, &ev.ExternalID); err != nil {
			slog.Error("PostgresStore GetEventsBetween scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.Movability = models.CanonicalMovability(movability)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetEventsBetween rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	slog.Debug("PostgresStore GetEventsBetween succeeded", "userID", userID, "count", len(events))
	return events, nil
}

func (s *PostgresStore) UpsertExternalEvent(ev *models.CalendarEvent) error {
	if ev.Movability == "" {
		ev.Movability = models.MovabilityUnsure
	}
	var existingID int64
	err := s.db.QueryRow(`SELECT id FROM calendar_events WHERE user_id = $1 AND external_id = $2 AND external_id <> ''`,
		ev.UserID, ev.ExternalID).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		return s.CreateEvent(ev)
	case err != nil:
		slog.Error("PostgresStore UpsertExternalEvent lookup failed", "error", err, "externalID", ev.ExternalID)
		return fmt.Errorf("failed to look up external event %s: %w", ev.ExternalID, err)
	}
	// User-chosen movability survives resyncs.
	_, err = s.db.Exec(`UPDATE calendar_events SET title = $1, description = $2, start_time = $3, end_time = $4, location = $5, event_type = $6
		WHERE id = $7`,
		ev.Title, ev.Description, ev.StartTime, ev.EndTime, ev.Location, ev.EventType, existingID)
	if err != nil {
		slog.Error("PostgresStore UpsertExternalEvent update failed", "error", err, "externalID", ev.ExternalID)
		return fmt.Errorf("failed to update external event %s: %w", ev.ExternalID, err)
	}
	ev.ID = existingID
	slog.Debug("PostgresStore UpsertExternalEvent updated", "eventID", existingID, "externalID", ev.ExternalID)
	return nil
}

func (s *PostgresStore) DeleteExternalEvent(userID int64, externalID string) error {
	_, err := s.db.Exec(`DELETE FROM calendar_events WHERE user_id = $1 AND external_id = $2 AND external_id <> ''`, userID, externalID)
	if err != nil {
		slog.Error("PostgresStore DeleteExternalEvent failed", "error", err, "externalID", externalID)
		return fmt.Errorf("failed to delete external event %s: %w", externalID, err)
	}
	slog.Debug("PostgresStore DeleteExternalEvent succeeded", "externalID", externalID)
	return nil
}

func (s *PostgresStore) AddChatMessage(msg *models.ChatMessage) error {
	err := s.db.QueryRow(`INSERT INTO chat_messages (user_id, role, content, timestamp) VALUES ($1, $2, $3, $4) RETURNING id`,
		msg.UserID, msg.Role, msg.Content, msg.Timestamp).Scan(&msg.ID)
	if err != nil {
		slog.Error("PostgresStore AddChatMessage failed", "error", err, "userID", msg.UserID)
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	slog.Debug("PostgresStore AddChatMessage succeeded", "userID", msg.UserID, "role", msg.Role)
	return nil
}

func (s *PostgresStore) GetChatMessages(userID int64, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, user_id, role, content, timestamp FROM chat_messages WHERE user_id = $1 ORDER BY timestamp DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore GetChatMessages query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			slog.Error("PostgresStore GetChatMessages scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetChatMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate chat message rows: %w", err)
	}
	// Reverse to chronological order; the query fetched newest first to honor the limit.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	slog.Debug("PostgresStore GetChatMessages succeeded", "userID", userID, "count", len(messages))
	return messages, nil
}

func (s *PostgresStore) ClearChatMessages(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM chat_messages WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore ClearChatMessages failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to clear chat messages: %w", err)
	}
	slog.Debug("PostgresStore ClearChatMessages succeeded", "userID", userID)
	return nil
}

func (s *PostgresStore) SaveCalendarToken(userID int64, tokenJSON string) error {
	_, err := s.db.Exec(`INSERT INTO calendar_tokens (user_id, token_json, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token_json = excluded.token_json, updated_at = excluded.updated_at`,
		userID, tokenJSON, time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveCalendarToken failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to save calendar token: %w", err)
	}
	slog.Debug("PostgresStore SaveCalendarToken succeeded", "userID", userID)
	return nil
}

func (s *PostgresStore) GetCalendarToken(userID int64) (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT token_json FROM calendar_tokens WHERE user_id = $1`, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		slog.Error("PostgresStore GetCalendarToken failed", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to query calendar token: %w", err)
	}
	return token, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
