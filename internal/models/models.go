// Package models defines the core data structures for FlowDay.
//
// It includes mood records, sleep records, calendar events, and chat messages,
// which are shared across modules.
package models

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// SleepQuality describes a night of sleep as reported by the user.
type SleepQuality string

const (
	// SleepQualityExcellent indicates fully restful sleep.
	SleepQualityExcellent SleepQuality = "excellent"
	// SleepQualityGood indicates mostly restful sleep.
	SleepQualityGood SleepQuality = "good"
	// SleepQualityFair indicates adequate sleep.
	SleepQualityFair SleepQuality = "fair"
	// SleepQualityPoor indicates restless or insufficient sleep.
	SleepQualityPoor SleepQuality = "poor"
)

// Default values substituted when no sleep record exists for a day.
const (
	DefaultSleepQuality = SleepQualityFair
	DefaultSleepHours   = 7.0
)

// IsValidSleepQuality checks if the given sleep quality is supported.
func IsValidSleepQuality(q SleepQuality) bool {
	switch q {
	case SleepQualityExcellent, SleepQualityGood, SleepQualityFair, SleepQualityPoor:
		return true
	default:
		return false
	}
}

// Movability describes whether a calendar event can be rescheduled.
type Movability string

const (
	// MovabilityFixed marks events that cannot be rescheduled.
	MovabilityFixed Movability = "fixed"
	// MovabilityMovable marks events that can be rescheduled.
	MovabilityMovable Movability = "movable"
	// MovabilityUnsure marks events whose flexibility has not been decided.
	MovabilityUnsure Movability = "unsure"
)

// IsValidMovability checks if the given movability value is supported.
func IsValidMovability(m Movability) bool {
	switch m {
	case MovabilityFixed, MovabilityMovable, MovabilityUnsure:
		return true
	default:
		return false
	}
}

// CanonicalMovability maps arbitrary stored values onto the tri-state domain.
// Unknown or empty values degrade to unsure rather than failing.
func CanonicalMovability(raw string) Movability {
	m := Movability(raw)
	if IsValidMovability(m) {
		return m
	}
	return MovabilityUnsure
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	// ChatRoleUser marks messages written by the user.
	ChatRoleUser ChatRole = "user"
	// ChatRoleAssistant marks messages written by the companion.
	ChatRoleAssistant ChatRole = "assistant"
)

// Validation constants for input validation
const (
	// MaxMoodSymbolLength bounds the stored mood symbol (a short emoji string).
	MaxMoodSymbolLength = 16
	// MaxChatContentLength bounds a single chat message body.
	MaxChatContentLength = 4096
	// SleepDateLayout is the canonical layout for sleep record dates.
	SleepDateLayout = "2006-01-02"
	// WakeTimeLayout is the canonical layout for wake-up times.
	WakeTimeLayout = "15:04"
)

// Error variables for better error handling and testability
var (
	ErrEmptyMoodSymbol       = errors.New("mood symbol cannot be empty")
	ErrMoodSymbolTooLong     = errors.New("mood symbol exceeds maximum length")
	ErrInvalidSleepQuality   = errors.New("invalid sleep quality")
	ErrInvalidSleepHours     = errors.New("sleep hours must be between 0 and 24")
	ErrInvalidSleepDate      = errors.New("sleep date must be in YYYY-MM-DD format")
	ErrInvalidWakeTime       = errors.New("wake-up time must be in HH:MM format")
	ErrEmptyEventTitle       = errors.New("event title cannot be empty")
	ErrEventEndBeforeStart   = errors.New("event end must be after start")
	ErrInvalidMovability     = errors.New("invalid movability value")
	ErrEmptyChatContent      = errors.New("chat message content cannot be empty")
	ErrChatContentTooLong    = errors.New("chat message content exceeds maximum length")
	ErrGenerationUnavailable = errors.New("text generation unavailable")
)

// MoodRecord represents one logged mood entry.
type MoodRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Symbol      string    `json:"symbol"`
	Note        string    `json:"note,omitempty"`
	ContextJSON string    `json:"context,omitempty"` // optional structured payload, JSON-encoded
	Timestamp   time.Time `json:"timestamp"`
}

// Validate performs validation on a MoodRecord before it is stored.
func (m *MoodRecord) Validate() error {
	if m.Symbol == "" {
		return ErrEmptyMoodSymbol
	}
	if len(m.Symbol) > MaxMoodSymbolLength {
		return ErrMoodSymbolTooLong
	}
	return nil
}

// MoodContext is the structured payload optionally attached to a mood record,
// e.g. by the morning evaluation flow.
type MoodContext struct {
	Type         string  `json:"type,omitempty"`
	SleepQuality string  `json:"sleepQuality,omitempty"`
	SleepHours   float64 `json:"sleepHours,omitempty"`
	WakeUpTime   string  `json:"wakeUpTime,omitempty"`
	Weather      string  `json:"weather,omitempty"`
}

// ContextPayload decodes the context JSON attached to the record.
// A malformed payload is treated as absent and logged, never as a failure.
func (m *MoodRecord) ContextPayload() *MoodContext {
	if m.ContextJSON == "" {
		return nil
	}
	var ctx MoodContext
	if err := json.Unmarshal([]byte(m.ContextJSON), &ctx); err != nil {
		slog.Warn("MoodRecord.ContextPayload: malformed context payload, treating as absent", "error", err, "moodID", m.ID)
		return nil
	}
	return &ctx
}

// SleepRecord represents one night of sleep for a user. There is at most one
// record per user and date.
type SleepRecord struct {
	ID         int64        `json:"id"`
	UserID     int64        `json:"user_id"`
	Date       string       `json:"date"` // YYYY-MM-DD
	Quality    SleepQuality `json:"quality"`
	Hours      float64      `json:"hours"`
	WakeUpTime string       `json:"wake_up_time,omitempty"` // HH:MM
	Notes      string       `json:"notes,omitempty"`
}

// Validate performs validation on a SleepRecord before it is stored.
func (s *SleepRecord) Validate() error {
	if _, err := time.Parse(SleepDateLayout, s.Date); err != nil {
		return ErrInvalidSleepDate
	}
	if !IsValidSleepQuality(s.Quality) {
		return ErrInvalidSleepQuality
	}
	if s.Hours < 0 || s.Hours > 24 {
		return ErrInvalidSleepHours
	}
	if s.WakeUpTime != "" {
		if _, err := time.Parse(WakeTimeLayout, s.WakeUpTime); err != nil {
			return ErrInvalidWakeTime
		}
	}
	return nil
}

// CalendarEvent represents one scheduled event for a user.
type CalendarEvent struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Location    string     `json:"location,omitempty"`
	EventType   string     `json:"event_type,omitempty"`
	Movability  Movability `json:"movability"`
	ExternalID  string     `json:"external_id,omitempty"` // id in the external calendar for synced events
}

// Validate performs validation on a CalendarEvent before it is stored.
func (e *CalendarEvent) Validate() error {
	if e.Title == "" {
		return ErrEmptyEventTitle
	}
	if !e.EndTime.After(e.StartTime) {
		return ErrEventEndBeforeStart
	}
	if e.Movability != "" && !IsValidMovability(e.Movability) {
		return ErrInvalidMovability
	}
	return nil
}

// ChatMessage represents one message in the companion conversation.
type ChatMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate performs validation on a ChatMessage before it is stored.
func (c *ChatMessage) Validate() error {
	if c.Content == "" {
		return ErrEmptyChatContent
	}
	if len(c.Content) > MaxChatContentLength {
		return ErrChatContentTooLong
	}
	return nil
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates data was successfully recorded via API.
	APIStatusRecorded APIStatus = "recorded"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{response: APIResponse{}}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// Recorded creates a recorded API response with optional result data.
func Recorded(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusRecorded).
		WithResult(result).
		Build()
}
