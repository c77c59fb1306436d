// Package store provides storage backends for FlowDay.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL stores selected by DSN auto-detection.
package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/models"
)

// Error variables for better error handling and testability
var (
	ErrEventNotFound = errors.New("calendar event not found")
)

// Store is the persistence interface shared by all FlowDay backends.
//
// Lookups that find nothing return zero values and a nil error; errors are
// reserved for the backend itself failing.
type Store interface {
	// CreateMood inserts a mood record and sets its ID.
	CreateMood(m *models.MoodRecord) error
	// GetMoods returns up to limit mood records for the user, newest first.
	// limit <= 0 means no limit.
	GetMoods(userID int64, limit int) ([]models.MoodRecord, error)

	// UpsertSleep inserts or replaces the sleep record for the user and date.
	UpsertSleep(rec *models.SleepRecord) error
	// GetSleepForDate returns the sleep record for the date, or nil if none.
	GetSleepForDate(userID int64, date string) (*models.SleepRecord, error)

	// CreateEvent inserts a calendar event and sets its ID.
	CreateEvent(ev *models.CalendarEvent) error
	// UpdateEvent replaces an existing event's fields by ID.
	UpdateEvent(ev *models.CalendarEvent) error
	// SetEventMovability updates the movability of one event.
	SetEventMovability(userID, eventID int64, m models.Movability) error
	// DeleteEvent removes one event.
	DeleteEvent(userID, eventID int64) error
	// GetEventsBetween returns the user's events with start time in
	// [start, end), sorted by start time ascending.
	GetEventsBetween(userID int64, start, end time.Time) ([]models.CalendarEvent, error)
	// UpsertExternalEvent inserts or updates an event keyed by its external
	// calendar ID.
	UpsertExternalEvent(ev *models.CalendarEvent) error
	// DeleteExternalEvent removes the local copy of an external event.
	DeleteExternalEvent(userID int64, externalID string) error

	// AddChatMessage inserts a chat message and sets its ID.
	AddChatMessage(msg *models.ChatMessage) error
	// GetChatMessages returns up to limit most recent messages for the user
	// in chronological order. limit <= 0 means no limit.
	GetChatMessages(userID int64, limit int) ([]models.ChatMessage, error)
	// ClearChatMessages deletes the user's conversation history.
	ClearChatMessages(userID int64) error

	// SaveCalendarToken stores the user's OAuth token JSON.
	SaveCalendarToken(userID int64, tokenJSON string) error
	// GetCalendarToken returns the user's OAuth token JSON, or "" if none.
	GetCalendarToken(userID int64) (string, error)

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store constructors.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store constructors.
type Option func(*Opts)

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3".
// Postgres DSNs use URL schemes or key=value form; anything else is assumed
// to be a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore is a mutex-guarded in-memory Store used in tests and as the
// fallback when no DSN is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	moods    []models.MoodRecord
	sleep    []models.SleepRecord
	events   []models.CalendarEvent
	messages []models.ChatMessage
	tokens   map[int64]string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[int64]string)}
}

func (s *InMemoryStore) nextSequence() int64 {
	s.nextID++
	return s.nextID
}

func (s *InMemoryStore) CreateMood(m *models.MoodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextSequence()
	s.moods = append(s.moods, *m)
	return nil
}

func (s *InMemoryStore) GetMoods(userID int64, limit int) ([]models.MoodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MoodRecord
	for _, m := range s.moods {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) UpsertSleep(rec *models.SleepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.sleep {
		if existing.UserID == rec.UserID && existing.Date == rec.Date {
			rec.ID = existing.ID
			s.sleep[i] = *rec
			return nil
		}
	}
	rec.ID = s.nextSequence()
	s.sleep = append(s.sleep, *rec)
	return nil
}

func (s *InMemoryStore) GetSleepForDate(userID int64, date string) (*models.SleepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.sleep {
		if rec.UserID == userID && rec.Date == date {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) CreateEvent(ev *models.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Movability == "" {
		ev.Movability = models.MovabilityUnsure
	}
	ev.ID = s.nextSequence()
	s.events = append(s.events, *ev)
	return nil
}

func (s *InMemoryStore) UpdateEvent(ev *models.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.events {
		if existing.ID == ev.ID && existing.UserID == ev.UserID {
			s.events[i] = *ev
			return nil
		}
	}
	return ErrEventNotFound
}

func (s *InMemoryStore) SetEventMovability(userID, eventID int64, m models.Movability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.events {
		if existing.ID == eventID && existing.UserID == userID {
			s.events[i].Movability = m
			return nil
		}
	}
	return ErrEventNotFound
}

func (s *InMemoryStore) DeleteEvent(userID, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.events {
		if existing.ID == eventID && existing.UserID == userID {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return ErrEventNotFound
}

func (s *InMemoryStore) GetEventsBetween(userID int64, start, end time.Time) ([]models.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CalendarEvent
	for _, ev := range s.events {
		if ev.UserID != userID {
			continue
		}
		if ev.StartTime.Before(start) || !ev.StartTime.Before(end) {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *InMemoryStore) UpsertExternalEvent(ev *models.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Movability == "" {
		ev.Movability = models.MovabilityUnsure
	}
	for i, existing := range s.events {
		if existing.UserID == ev.UserID && existing.ExternalID != "" && existing.ExternalID == ev.ExternalID {
			ev.ID = existing.ID
			// User-chosen movability survives resyncs.
			ev.Movability = existing.Movability
			s.events[i] = *ev
			return nil
		}
	}
	ev.ID = s.nextSequence()
	s.events = append(s.events, *ev)
	return nil
}

func (s *InMemoryStore) DeleteExternalEvent(userID int64, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.events {
		if existing.UserID == userID && existing.ExternalID == externalID {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *InMemoryStore) AddChatMessage(msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.nextSequence()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *InMemoryStore) GetChatMessages(userID int64, limit int) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ChatMessage
	for _, msg := range s.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *InMemoryStore) ClearChatMessages(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.UserID != userID {
			kept = append(kept, msg)
		}
	}
	s.messages = kept
	return nil
}

func (s *InMemoryStore) SaveCalendarToken(userID int64, tokenJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = tokenJSON
	return nil
}

func (s *InMemoryStore) GetCalendarToken(userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[userID], nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
