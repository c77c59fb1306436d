// Package proactive decides when FlowDay reaches out to the user unprompted.
//
// The evaluator keeps per-user state (the identities of moods and events that
// already produced a delivered nudge, plus the last delivery time) and applies
// a fixed priority order. State advances only on MarkDelivered, so a nudge
// whose delivery failed is offered again on the next evaluation.
package proactive

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FlowDayApp/FlowDay/internal/analysis"
	"github.com/FlowDayApp/FlowDay/internal/daycontext"
	"github.com/FlowDayApp/FlowDay/internal/models"
)

// Trigger thresholds.
const (
	// ImminentEventWindow is how close an event must be to trigger a nudge.
	ImminentEventWindow = 2 * time.Hour
	// CheckInInterval is the minimum quiet period before a periodic check-in.
	CheckInInterval = 30 * time.Minute
)

// Reason identifies which trigger produced a nudge, in priority order.
type Reason string

const (
	// ReasonMoodEscalation reacts to a fresh stress mood.
	ReasonMoodEscalation Reason = "mood_escalation"
	// ReasonMoodImprovement reacts to recovery from a stress mood.
	ReasonMoodImprovement Reason = "mood_improvement"
	// ReasonImminentEvent reacts to an event starting soon.
	ReasonImminentEvent Reason = "imminent_event"
	// ReasonCheckIn is the periodic keep-in-touch nudge.
	ReasonCheckIn Reason = "check_in"
	// ReasonWelcome greets a user on their first evaluation.
	ReasonWelcome Reason = "welcome"
)

// Fixed nudge messages. The imminent-event message is a template.
const (
	msgWelcome     = "Hi! I'm here to help you plan your day and manage stress. What would you like to focus on today?"
	msgEscalation  = "I noticed your mood just dipped. Want to take a short breathing break together before your next commitment?"
	msgImprovement = "Love the positive shift! Want to make the most of this energy and knock out something important?"
	msgCheckIn     = "Just checking in - how is your day going so far?"
)

// Decision is the outcome of one proactive evaluation. NudgeID correlates
// the evaluation with the delivery log and the recorded conversation entry.
type Decision struct {
	ShouldSend bool   `json:"should_send"`
	Reason     Reason `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
	NudgeID    string `json:"nudge_id,omitempty"`

	// Identity of the trigger, carried back into MarkDelivered.
	moodID  int64
	eventID int64
	at      time.Time
}

// session holds per-user trigger state.
type session struct {
	firedMoods  map[int64]bool
	firedEvents map[int64]bool
	lastSentAt  time.Time
}

// Evaluator applies the proactive trigger rules per user.
type Evaluator struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

// NewEvaluator creates an evaluator with no user state.
func NewEvaluator() *Evaluator {
	return &Evaluator{sessions: make(map[int64]*session)}
}

// Evaluate runs the trigger rules for one user against a fresh snapshot.
// Session lookup and the decision happen under one lock, so concurrent
// evaluations for the same user cannot both fire from the same state. Time
// comparisons use the snapshot's own GeneratedAt so results are reproducible.
//
// Evaluate does not consume the trigger: call MarkDelivered once the nudge
// actually reached the user, otherwise the same condition fires again.
func (e *Evaluator) Evaluate(userID int64, snap daycontext.Snapshot) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions[userID]
	first := !ok
	if first {
		sess = &session{
			firedMoods:  make(map[int64]bool),
			firedEvents: make(map[int64]bool),
			lastSentAt:  snap.GeneratedAt,
		}
		e.sessions[userID] = sess
	}

	dec := e.decide(sess, first, snap)
	if dec.ShouldSend {
		dec.NudgeID = uuid.NewString()
		dec.at = snap.GeneratedAt
		slog.Info("Evaluator.Evaluate: nudge triggered", "userID", userID, "reason", dec.Reason, "nudgeID", dec.NudgeID)
	} else {
		slog.Debug("Evaluator.Evaluate: no trigger fired", "userID", userID)
	}
	return dec
}

// MarkDelivered records that the decision's nudge reached the user: the
// triggering mood or event is deduplicated and the quiet period restarts.
func (e *Evaluator) MarkDelivered(userID int64, dec Decision) {
	if !dec.ShouldSend {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions[userID]
	if !ok {
		return
	}
	if dec.moodID != 0 {
		sess.firedMoods[dec.moodID] = true
	}
	if dec.eventID != 0 {
		sess.firedEvents[dec.eventID] = true
	}
	sess.lastSentAt = dec.at
	slog.Debug("Evaluator.MarkDelivered: trigger state committed", "userID", userID, "reason", dec.Reason, "nudgeID", dec.NudgeID)
}

func (e *Evaluator) decide(sess *session, first bool, snap daycontext.Snapshot) Decision {
	mood := snap.Mood
	if mood.HasSignificantChange && mood.LatestMoodID != 0 && !sess.firedMoods[mood.LatestMoodID] {
		switch mood.Direction {
		case analysis.TrendEscalation:
			return Decision{ShouldSend: true, Reason: ReasonMoodEscalation, Message: msgEscalation, moodID: mood.LatestMoodID}
		case analysis.TrendImprovement:
			return Decision{ShouldSend: true, Reason: ReasonMoodImprovement, Message: msgImprovement, moodID: mood.LatestMoodID}
		}
	}

	if ev := e.imminentEvent(sess, snap); ev != nil {
		minutes := int(ev.StartTime.Sub(snap.GeneratedAt).Minutes())
		return Decision{
			ShouldSend: true,
			Reason:     ReasonImminentEvent,
			Message:    fmt.Sprintf("Heads up: %q starts in %d minutes. Want help getting ready?", ev.Title, minutes),
			eventID:    ev.ID,
		}
	}

	if !first && snap.GeneratedAt.Sub(sess.lastSentAt) >= CheckInInterval {
		return Decision{ShouldSend: true, Reason: ReasonCheckIn, Message: msgCheckIn}
	}

	if first {
		return Decision{ShouldSend: true, Reason: ReasonWelcome, Message: msgWelcome}
	}

	return Decision{}
}

// imminentEvent returns the first upcoming event inside the imminent window
// that has not already triggered a nudge.
func (e *Evaluator) imminentEvent(sess *session, snap daycontext.Snapshot) *models.CalendarEvent {
	for i := range snap.Upcoming {
		ev := &snap.Upcoming[i]
		if ev.StartTime.Sub(snap.GeneratedAt) >= ImminentEventWindow {
			continue
		}
		if sess.firedEvents[ev.ID] {
			continue
		}
		return ev
	}
	return nil
}

// Reset drops all per-user state, e.g. when a user clears their history.
func (e *Evaluator) Reset(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, userID)
}
