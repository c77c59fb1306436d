package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/daycontext"
	"github.com/FlowDayApp/FlowDay/internal/models"
	"github.com/FlowDayApp/FlowDay/internal/store"
)

type mockGenerator struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (m *mockGenerator) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.reply, m.err
}

func newTestService(gen Generator) (*Service, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	svc := NewService(st, daycontext.NewAssembler(st), gen)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	}
	return svc, st
}

func TestChatSuccessPersistsExchange(t *testing.T) {
	gen := &mockGenerator{reply: "Take it one step at a time."}
	svc, st := newTestService(gen)

	reply, err := svc.Chat(context.Background(), 1, "Feeling overwhelmed today")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "Take it one step at a time." {
		t.Errorf("expected generator reply, got %q", reply)
	}

	msgs, err := st.GetChatMessages(1, 10)
	if err != nil {
		t.Fatalf("GetChatMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Role != models.ChatRoleUser || msgs[0].Content != "Feeling overwhelmed today" {
		t.Errorf("unexpected user message: %+v", msgs[0])
	}
	if msgs[1].Role != models.ChatRoleAssistant || msgs[1].Content != reply {
		t.Errorf("unexpected assistant message: %+v", msgs[1])
	}
}

func TestChatGroundsPromptInContext(t *testing.T) {
	gen := &mockGenerator{reply: "ok"}
	svc, _ := newTestService(gen)

	if _, err := svc.Chat(context.Background(), 1, "What should I do next?"); err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if !strings.Contains(gen.lastUser, "=== USER CONTEXT ===") {
		t.Error("user prompt should embed the context narrative")
	}
	if !strings.Contains(gen.lastUser, "User message: What should I do next?") {
		t.Error("user prompt should carry the original message")
	}
	if gen.lastSystem != chatSystemPrompt {
		t.Errorf("unexpected system prompt: %q", gen.lastSystem)
	}
}

func TestChatGeneratorFailureFallsBack(t *testing.T) {
	gen := &mockGenerator{err: errors.New("upstream timeout")}
	svc, st := newTestService(gen)

	reply, err := svc.Chat(context.Background(), 1, "hello")
	if !errors.Is(err, models.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if reply != fallbackChatReply {
		t.Errorf("expected fallback reply, got %q", reply)
	}

	// The degraded reply is still a reply, so the exchange is persisted.
	msgs, _ := st.GetChatMessages(1, 10)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[1].Content != fallbackChatReply {
		t.Errorf("expected fallback persisted, got %q", msgs[1].Content)
	}
}

func TestChatNoGeneratorFallsBack(t *testing.T) {
	svc, _ := newTestService(nil)

	reply, err := svc.Chat(context.Background(), 1, "hi")
	if !errors.Is(err, models.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if reply != fallbackChatReply {
		t.Errorf("expected fallback reply, got %q", reply)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	gen := &mockGenerator{reply: "ok"}
	svc, _ := newTestService(gen)

	if _, err := svc.Chat(context.Background(), 1, ""); !errors.Is(err, models.ErrEmptyChatContent) {
		t.Fatalf("expected ErrEmptyChatContent, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("generator should not be called for an empty message")
	}
}

func TestPlanDay(t *testing.T) {
	gen := &mockGenerator{reply: "Morning: deep work. Afternoon: meetings."}
	svc, _ := newTestService(gen)

	plan, err := svc.PlanDay(context.Background(), 1)
	if err != nil {
		t.Fatalf("PlanDay returned error: %v", err)
	}
	if plan != gen.reply {
		t.Errorf("expected generator plan, got %q", plan)
	}
	if gen.lastSystem != planSystemPrompt {
		t.Errorf("unexpected system prompt: %q", gen.lastSystem)
	}
	if !strings.Contains(gen.lastUser, "=== USER CONTEXT ===") {
		t.Error("plan prompt should embed the context narrative")
	}
}

func TestPlanDayFallback(t *testing.T) {
	gen := &mockGenerator{err: errors.New("boom")}
	svc, _ := newTestService(gen)

	plan, err := svc.PlanDay(context.Background(), 1)
	if !errors.Is(err, models.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if plan != fallbackPlanReply {
		t.Errorf("expected fallback plan, got %q", plan)
	}
}

func TestAffirmationFallback(t *testing.T) {
	svc, _ := newTestService(nil)

	text, err := svc.Affirmation(context.Background(), 1)
	if !errors.Is(err, models.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
	if text != fallbackAffirm {
		t.Errorf("expected fallback affirmation, got %q", text)
	}
}

func TestHistoryAndReset(t *testing.T) {
	gen := &mockGenerator{reply: "ok"}
	svc, _ := newTestService(gen)

	if _, err := svc.Chat(context.Background(), 1, "first"); err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	msgs, err := svc.History(1, 0)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages in history, got %d", len(msgs))
	}

	if err := svc.ResetConversation(1); err != nil {
		t.Fatalf("ResetConversation returned error: %v", err)
	}
	msgs, _ = svc.History(1, 0)
	if len(msgs) != 0 {
		t.Errorf("expected empty history after reset, got %d messages", len(msgs))
	}
}
