// Package store provides storage backends for FlowDay.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/FlowDayApp/FlowDay/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateMood(m *models.MoodRecord) error {
	res, err := s.db.Exec(`INSERT INTO moods (user_id, symbol, note, context_json, timestamp) VALUES (?, ?, ?, ?, ?)`,
		m.UserID, m.Symbol, m.Note, m.ContextJSON, m.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore CreateMood failed", "error", err, "userID", m.UserID)
		return fmt.Errorf("failed to insert mood: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		slog.Error("SQLiteStore CreateMood last insert id failed", "error", err)
		return fmt.Errorf("failed to read mood id: %w", err)
	}
	m.ID = id
	slog.Debug("SQLiteStore CreateMood succeeded", "userID", m.UserID, "moodID", m.ID, "symbol", m.Symbol)
	return nil
}

func (s *SQLiteStore) GetMoods(userID int64, limit int) ([]models.MoodRecord, error) {
	query := `SELECT id, user_id, symbol, note, context_json, timestamp FROM moods WHERE user_id = ? ORDER BY timestamp DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore GetMoods query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query moods: %w", err)
	}
	defer rows.Close()

	var moods []models.MoodRecord
	for rows.Next() {
		var m models.MoodRecord
		if err := rows.Scan(&m.ID, &m.UserID, &m.Symbol, &m.Note, &m.ContextJSON, &m.Timestamp); err != nil {
			slog.Error("SQLiteStore GetMoods scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan mood row: %w", err)
		}
		moods = append(moods, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetMoods rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate mood rows: %w", err)
	}
	slog.Debug("SQLiteStore GetMoods succeeded", "userID", userID, "count", len(moods))
	return moods, nil
}

func (s *SQLiteStore) UpsertSleep(rec *models.SleepRecord) error {
	_, err := s.db.Exec(`INSERT INTO sleep_records (user_id, date, quality, hours, wake_up_time, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			quality = excluded.quality,
			hours = excluded.hours,
			wake_up_time = excluded.wake_up_time,
			notes = excluded.notes`,
		rec.UserID, rec.Date, rec.Quality, rec.Hours, rec.WakeUpTime, rec.Notes)
	if err != nil {
		slog.Error("SQLiteStore UpsertSleep failed", "error", err, "userID", rec.UserID, "date", rec.Date)
		return fmt.Errorf("failed to upsert sleep record for %s: %w", rec.Date, err)
	}
	slog.Debug("SQLiteStore UpsertSleep succeeded", "userID", rec.UserID, "date", rec.Date, "quality", rec.Quality)
	return nil
}

func (s *SQLiteStore) GetSleepForDate(userID int64, date string) (*models.SleepRecord, error) {
	var rec models.SleepRecord
	err := s.db.QueryRow(`SELECT id, user_id, date, quality, hours, wake_up_time, notes
		FROM sleep_records WHERE user_id = ? AND date = ?`, userID, date).
		Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Quality, &rec.Hours, &rec.WakeUpTime, &rec.Notes)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSleepForDate not found", "userID", userID, "date", date)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSleepForDate failed", "error", err, "userID", userID, "date", date)
		return nil, fmt.Errorf("failed to query sleep record for %s: %w", date, err)
	}
	slog.Debug("SQLiteStore GetSleepForDate found", "userID", userID, "date", date)
	return &rec, nil
}

func (s *SQLiteStore) CreateEvent(ev *models.CalendarEvent) error {
	if ev.Movability == "" {
		ev.Movability = models.MovabilityUnsure
	}
	res, err := s.db.Exec(`INSERT INTO calendar_events (user_id, title, description, start_time, end_time, location, event_type, movability, external_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.UserID, ev.Title, ev.Description, ev.StartTime, ev.EndTime, ev.Location, ev.EventType, ev.Movability, ev.ExternalID)
	if err != nil {
		slog.Error("SQLiteStore CreateEvent failed", "error", err, "userID", ev.UserID, "title", ev.Title)
		return fmt.Errorf("failed to insert event %q: %w", ev.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		slog.Error("SQLiteStore CreateEvent last insert id failed", "error", err)
		return fmt.Errorf("failed to read event id: %w", err)
	}
	ev.ID = id
	slog.Debug("SQLiteStore CreateEvent succeeded", "userID", ev.UserID, "eventID", ev.ID, "title", ev.Title)
	return nil
}

func (s *SQLiteStore) UpdateEvent(ev *models.CalendarEvent) error {
	res, err := s.db.Exec(`UPDATE calendar_events SET title = ?, description = ?, start_time = ?, end_time = ?, location = ?, event_type = ?, movability = ?
		WHERE id = ? AND user_id = ?`,
		ev.Title, ev.Description, ev.StartTime, ev.EndTime, ev.Location, ev.EventType, ev.Movability, ev.ID, ev.UserID)
	if err != nil {
		slog.Error("SQLiteStore UpdateEvent failed", "error", err, "eventID", ev.ID)
		return fmt.Errorf("failed to update event %d: %w", ev.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		slog.Debug("SQLiteStore UpdateEvent not found", "eventID", ev.ID, "userID", ev.UserID)
		return ErrEventNotFound
	}
	slog.Debug("SQLiteStore UpdateEvent succeeded", "eventID", ev.ID)
	return nil
}

func (s *SQLiteStore) SetEventMovability(userID, eventID int64, m models.Movability) error {
	res, err := s.db.Exec(`UPDATE calendar_events SET movability = ? WHERE id = ? AND user_id = ?`, m, eventID, userID)
	if err != nil {
		slog.Error("SQLiteStore SetEventMovability failed", "error", err, "eventID", eventID)
		return fmt.Errorf("failed to update movability for event %d: %w", eventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	slog.Debug("SQLiteStore SetEventMovability succeeded", "eventID", eventID, "movability", m)
	return nil
}

func (s *SQLiteStore) DeleteEvent(userID, eventID int64) error {
	res, err := s.db.Exec(`DELETE FROM calendar_events WHERE id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		slog.Error("SQLiteStore DeleteEvent failed", "error", err, "eventID", eventID)
		return fmt.Errorf("failed to delete event %d: %w", eventID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	slog.Debug("SQLiteStore DeleteEvent succeeded", "eventID", eventID)
	return nil
}

func (s *SQLiteStore) GetEventsBetween(userID int64, start, end time.Time) ([]models.CalendarEvent, error) {
	rows, err := s.db.Query(`SELECT id, user_id, title, description, start_time, end_time, location, event_type, movability, external_id
		FROM calendar_events WHERE user_id = ? AND start_time >= ? AND start_time < ? ORDER BY start_time ASC`,
		userID, start, end)
	if err != nil {
		slog.Error("SQLiteStore GetEventsBetween query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var ev models.CalendarEvent
		var movability string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Title, &ev.Description, &ev.StartTime, &ev.EndTime,
			&ev.Location, &ev.EventType, &movability, &ev.ExternalID); err != nil {
			slog.Error("SQLiteStore GetEventsBetween scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.Movability = models.CanonicalMovability(movability)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetEventsBetween rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	slog.Debug("SQLiteStore GetEventsBetween succeeded", "userID", userID, "count", len(events))
	return events, nil
}

func (s *SQLiteStore) UpsertExternalEvent(ev *models.CalendarEvent) error {
	if ev.Movability == "" {
		ev.Movability = models.MovabilityUnsure
	}
	var existingID int64
	err := s.db.QueryRow(`SELECT id FROM calendar_events WHERE user_id = ? AND external_id = ? AND external_id <> ''`,
		ev.UserID, ev.ExternalID).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		return s.CreateEvent(ev)
	case err != nil:
		slog.Error("SQLiteStore UpsertExternalEvent lookup failed", "error", err, "externalID", ev.ExternalID)
		return fmt.Errorf("failed to look up external event %s: %w", ev.ExternalID, err)
	}
	// User-chosen movability survives resyncs.
	_, err = s.db.Exec(`UPDATE calendar_events SET title = ?, description = ?, start_time = ?, end_time = ?, location = ?, event_type = ?
		WHERE id = ?`,
		ev.Title, ev.Description, ev.StartTime, ev.EndTime, ev.Location, ev.EventType, existingID)
	if err != nil {
		slog.Error("SQLiteStore UpsertExternalEvent update failed", "error", err, "externalID", ev.ExternalID)
		return fmt.Errorf("failed to update external event %s: %w", ev.ExternalID, err)
	}
	ev.ID = existingID
	slog.Debug("SQLiteStore UpsertExternalEvent updated", "eventID", existingID, "externalID", ev.ExternalID)
	return nil
}

func (s *SQLiteStore) DeleteExternalEvent(userID int64, externalID string) error {
	_, err := s.db.Exec(`DELETE FROM calendar_events WHERE user_id = ? AND external_id = ? AND external_id <> ''`, userID, externalID)
	if err != nil {
		slog.Error("SQLiteStore DeleteExternalEvent failed", "error", err, "externalID", externalID)
		return fmt.Errorf("failed to delete external event %s: %w", externalID, err)
	}
	slog.Debug("SQLiteStore DeleteExternalEvent succeeded", "externalID", externalID)
	return nil
}

func (s *SQLiteStore) AddChatMessage(msg *models.ChatMessage) error {
	res, err := s.db.Exec(`INSERT INTO chat_messages (user_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		msg.UserID, msg.Role, msg.Content, msg.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AddChatMessage failed", "error", err, "userID", msg.UserID)
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read chat message id: %w", err)
	}
	msg.ID = id
	slog.Debug("SQLiteStore AddChatMessage succeeded", "userID", msg.UserID, "role", msg.Role)
	return nil
}

func (s *SQLiteStore) GetChatMessages(userID int64, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, user_id, role, content, timestamp FROM chat_messages WHERE user_id = ? ORDER BY timestamp DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore GetChatMessages query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			slog.Error("SQLiteStore GetChatMessages scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetChatMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate chat message rows: %w", err)
	}
	// Reverse to chronological order; the query fetched newest first to honor the limit.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	slog.Debug("SQLiteStore GetChatMessages succeeded", "userID", userID, "count", len(messages))
	return messages, nil
}

func (s *SQLiteStore) ClearChatMessages(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM chat_messages WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore ClearChatMessages failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to clear chat messages: %w", err)
	}
	slog.Debug("SQLiteStore ClearChatMessages succeeded", "userID", userID)
	return nil
}

func (s *SQLiteStore) SaveCalendarToken(userID int64, tokenJSON string) error {
	_, err := s.db.Exec(`INSERT INTO calendar_tokens (user_id, token_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET token_json = excluded.token_json, updated_at = excluded.updated_at`,
		userID, tokenJSON, time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveCalendarToken failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to save calendar token: %w", err)
	}
	slog.Debug("SQLiteStore SaveCalendarToken succeeded", "userID", userID)
	return nil
}

func (s *SQLiteStore) GetCalendarToken(userID int64) (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT token_json FROM calendar_tokens WHERE user_id = ?`, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetCalendarToken failed", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to query calendar token: %w", err)
	}
	return token, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
