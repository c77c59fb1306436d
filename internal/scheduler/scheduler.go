// Package scheduler runs recurring background work on cron expressions.
//
// Its main job is the proactive sweep: periodically rebuilding each active
// user's day context, asking the proactive evaluator whether a nudge is due,
// and delivering it over the configured notification channel.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FlowDayApp/FlowDay/internal/daycontext"
	"github.com/FlowDayApp/FlowDay/internal/models"
	"github.com/FlowDayApp/FlowDay/internal/notify"
	"github.com/FlowDayApp/FlowDay/internal/proactive"
)

// DefaultSweepSchedule runs the proactive sweep every five minutes.
const DefaultSweepSchedule = "*/5 * * * *"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Standard 5-field cron parser (min, hour, dom, month, dow) with panic recovery.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// ChatRecorder persists delivered nudges into the conversation history.
type ChatRecorder interface {
	AddChatMessage(msg *models.ChatMessage) error
}

// Sweep evaluates proactive nudges for a fixed set of users.
type Sweep struct {
	assembler  *daycontext.Assembler
	evaluator  *proactive.Evaluator
	notifier   notify.Service
	recorder   ChatRecorder
	recipients map[int64]string // userID -> canonical phone number
	now        func() time.Time
}

// NewSweep creates a proactive sweep over the given user-to-recipient map.
// Recipients must already be canonicalized. recorder may be nil to skip
// conversation recording.
func NewSweep(assembler *daycontext.Assembler, evaluator *proactive.Evaluator, notifier notify.Service, recorder ChatRecorder, recipients map[int64]string) *Sweep {
	return &Sweep{
		assembler:  assembler,
		evaluator:  evaluator,
		notifier:   notifier,
		recorder:   recorder,
		recipients: recipients,
		now:        time.Now,
	}
}

// Run evaluates every configured user once and delivers any due nudges.
// Failures for one user never block the others.
func (s *Sweep) Run(ctx context.Context) {
	now := s.now()
	for userID, recipient := range s.recipients {
		res, err := s.assembler.BuildContext(userID, now)
		if err != nil {
			slog.Error("Sweep.Run: context assembly failed", "error", err, "userID", userID)
			continue
		}
		decision := s.evaluator.Evaluate(userID, res.Snapshot)
		if !decision.ShouldSend {
			continue
		}
		if err := s.notifier.SendNudge(ctx, recipient, decision.Message); err != nil {
			// The trigger stays uncommitted, so the next sweep retries it.
			slog.Error("Sweep.Run: nudge delivery failed", "error", err, "userID", userID, "reason", decision.Reason, "nudgeID", decision.NudgeID)
			continue
		}
		s.evaluator.MarkDelivered(userID, decision)
		if s.recorder != nil {
			msg := models.ChatMessage{UserID: userID, Role: models.ChatRoleAssistant, Content: decision.Message, Timestamp: now}
			if err := s.recorder.AddChatMessage(&msg); err != nil {
				slog.Warn("Sweep.Run: failed to record nudge in conversation", "error", err, "userID", userID, "nudgeID", decision.NudgeID)
			}
		}
		slog.Info("Sweep.Run: nudge delivered", "userID", userID, "reason", decision.Reason, "nudgeID", decision.NudgeID)
	}
}
