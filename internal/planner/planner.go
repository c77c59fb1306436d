// Package planner orchestrates the companion conversation and day planning.
//
// It grounds every generation in the assembled day context, persists the
// conversation, and degrades to fixed fallback replies when the text
// generator is unavailable so the user always gets an answer.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/daycontext"
	"github.com/FlowDayApp/FlowDay/internal/models"
)

// DefaultHistoryLimit bounds how much conversation history is returned.
const DefaultHistoryLimit = 50

// Fixed fallback replies used when generation fails.
const (
	fallbackChatReply = "I'm having trouble connecting right now, but I'm here for you! 💙 Try taking a deep breath - we'll figure this out together."
	fallbackPlanReply = "I couldn't put together a full plan right now. Start with your most important task, keep fixed events in place, and build in short breaks. You've got this!"
	fallbackAffirm    = "You are capable of handling whatever today brings, one step at a time."
)

// System prompts for the three generation flows.
const (
	chatSystemPrompt = "You are a warm, supportive wellness companion. Use the provided context about the user's mood, sleep, and schedule to give practical, encouraging guidance. Keep replies short and conversational."
	planSystemPrompt = "You are a thoughtful day planner. Using the provided context, propose a realistic plan for the rest of the day: order work by energy level, respect fixed events, and include breaks. Keep it concise."
	affirmSystemPrompt = "Write one short, personal affirmation for the user based on their current context. One or two sentences, warm and specific."
)

// Generator produces text from a system and user prompt.
type Generator interface {
	GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Store is the subset of storage the planner needs.
type Store interface {
	AddChatMessage(msg *models.ChatMessage) error
	GetChatMessages(userID int64, limit int) ([]models.ChatMessage, error)
	ClearChatMessages(userID int64) error
}

// Service ties context assembly, generation, and chat persistence together.
type Service struct {
	store     Store
	assembler *daycontext.Assembler
	gen       Generator // nil means fallback-only operation
	now       func() time.Time
}

// NewService creates a planner service. gen may be nil; the service then
// serves only the fixed fallback replies.
func NewService(st Store, assembler *daycontext.Assembler, gen Generator) *Service {
	return &Service{store: st, assembler: assembler, gen: gen, now: time.Now}
}

// Chat answers one user message grounded in the current day context. The
// reply is always non-empty: on generation failure it is the fixed fallback
// and the returned error wraps models.ErrGenerationUnavailable so callers can
// tell a degraded reply from a healthy one. Both sides of the exchange are
// persisted once a reply exists.
func (s *Service) Chat(ctx context.Context, userID int64, message string) (string, error) {
	if message == "" {
		return "", models.ErrEmptyChatContent
	}
	now := s.now()
	res, err := s.assembler.BuildContext(userID, now)
	if err != nil {
		slog.Error("Service.Chat: context assembly failed", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to assemble context: %w", err)
	}

	userPrompt := res.Narrative + "\n\nUser message: " + message
	reply, genErr := s.generate(ctx, chatSystemPrompt, userPrompt, fallbackChatReply)

	if err := s.persistExchange(userID, message, reply, now); err != nil {
		return reply, err
	}
	return reply, genErr
}

// PlanDay generates a plan for the rest of the user's day.
func (s *Service) PlanDay(ctx context.Context, userID int64) (string, error) {
	res, err := s.assembler.BuildContext(userID, s.now())
	if err != nil {
		slog.Error("Service.PlanDay: context assembly failed", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to assemble context: %w", err)
	}
	return s.generate(ctx, planSystemPrompt, res.Narrative, fallbackPlanReply)
}

// Affirmation generates a short daily affirmation.
func (s *Service) Affirmation(ctx context.Context, userID int64) (string, error) {
	res, err := s.assembler.BuildContext(userID, s.now())
	if err != nil {
		slog.Error("Service.Affirmation: context assembly failed", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to assemble context: %w", err)
	}
	return s.generate(ctx, affirmSystemPrompt, res.Narrative, fallbackAffirm)
}

// History returns the most recent conversation in chronological order.
func (s *Service) History(userID int64, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.store.GetChatMessages(userID, limit)
}

// ResetConversation clears the user's conversation history.
func (s *Service) ResetConversation(userID int64) error {
	return s.store.ClearChatMessages(userID)
}

// generate calls the generator and substitutes the fallback on any failure.
// The returned error wraps models.ErrGenerationUnavailable when the fallback
// was used.
func (s *Service) generate(ctx context.Context, systemPrompt, userPrompt, fallback string) (string, error) {
	if s.gen == nil {
		slog.Debug("Service.generate: no generator configured, using fallback")
		return fallback, fmt.Errorf("%w: generator not configured", models.ErrGenerationUnavailable)
	}
	reply, err := s.gen.GeneratePromptWithContext(ctx, systemPrompt, userPrompt)
	if err != nil {
		slog.Error("Service.generate: generation failed, using fallback", "error", err)
		return fallback, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	return reply, nil
}

func (s *Service) persistExchange(userID int64, message, reply string, now time.Time) error {
	userMsg := models.ChatMessage{UserID: userID, Role: models.ChatRoleUser, Content: message, Timestamp: now}
	if err := s.store.AddChatMessage(&userMsg); err != nil {
		slog.Error("Service.persistExchange: failed to store user message", "error", err, "userID", userID)
		return fmt.Errorf("failed to store user message: %w", err)
	}
	assistantMsg := models.ChatMessage{UserID: userID, Role: models.ChatRoleAssistant, Content: reply, Timestamp: now.Add(time.Millisecond)}
	if err := s.store.AddChatMessage(&assistantMsg); err != nil {
		slog.Error("Service.persistExchange: failed to store assistant reply", "error", err, "userID", userID)
		return fmt.Errorf("failed to store assistant reply: %w", err)
	}
	return nil
}
