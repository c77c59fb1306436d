// Package daycontext assembles a user's current situation into a structured
// snapshot plus a deterministic narrative for prompt construction.
//
// The assembler is read-only: it pulls moods, sleep, and events through a
// small data source interface, runs the analysis heuristics, and renders the
// narrative in a fixed section order so identical inputs produce identical
// text.
package daycontext

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/analysis"
	"github.com/FlowDayApp/FlowDay/internal/models"
)

// Assembly constants.
const (
	// MoodHistoryLimit bounds how many recent moods the assembler inspects.
	MoodHistoryLimit = 10
	// UpcomingWindow is how far ahead the upcoming-events section looks.
	UpcomingWindow = 4 * time.Hour
	// UrgencyImmediate tags events starting in under 30 minutes.
	UrgencyImmediate = "immediate"
	// UrgencySoon tags events starting in under 60 minutes.
	UrgencySoon = "soon"
	// UrgencyUpcoming tags the rest of the upcoming window.
	UrgencyUpcoming = "upcoming"
)

// DataSource is the read interface the assembler needs from storage.
type DataSource interface {
	GetMoods(userID int64, limit int) ([]models.MoodRecord, error)
	GetSleepForDate(userID int64, date string) (*models.SleepRecord, error)
	GetEventsBetween(userID int64, start, end time.Time) ([]models.CalendarEvent, error)
}

// Snapshot is the structured view of a user's current situation.
type Snapshot struct {
	UserID      int64                      `json:"user_id"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Mood        analysis.MoodTrend         `json:"mood"`
	SleepQuality models.SleepQuality       `json:"sleep_quality"`
	SleepHours  float64                    `json:"sleep_hours"`
	Energy      analysis.EnergyLevel       `json:"energy"`
	Timing      string                     `json:"timing_suggestion"`
	Events      []models.CalendarEvent     `json:"events"`
	Buckets     analysis.MovabilityBuckets `json:"buckets"`
	Findings    []analysis.Finding         `json:"findings"`
	Upcoming    []models.CalendarEvent     `json:"upcoming"`
}

// NextEvent returns the first event in the upcoming window, or nil.
func (s *Snapshot) NextEvent() *models.CalendarEvent {
	if len(s.Upcoming) == 0 {
		return nil
	}
	return &s.Upcoming[0]
}

// Result pairs a snapshot with its rendered narrative.
type Result struct {
	Snapshot  Snapshot `json:"snapshot"`
	Narrative string   `json:"narrative"`
}

// Assembler builds context snapshots from a data source.
type Assembler struct {
	data DataSource
}

// NewAssembler creates an assembler over the given data source.
func NewAssembler(data DataSource) *Assembler {
	return &Assembler{data: data}
}

// BuildContext assembles the snapshot and narrative for a user at a moment in
// time. Missing moods, sleep, or events degrade to neutral defaults; only a
// failing data source call propagates an error.
func (a *Assembler) BuildContext(userID int64, now time.Time) (*Result, error) {
	slog.Debug("Assembler.BuildContext: assembling context", "userID", userID, "now", now)

	moods, err := a.data.GetMoods(userID, MoodHistoryLimit)
	if err != nil {
		slog.Error("Assembler.BuildContext: mood fetch failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to fetch moods: %w", err)
	}

	sleepRec, err := a.data.GetSleepForDate(userID, now.Format(models.SleepDateLayout))
	if err != nil {
		slog.Error("Assembler.BuildContext: sleep fetch failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to fetch sleep record: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	events, err := a.data.GetEventsBetween(userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		slog.Error("Assembler.BuildContext: event fetch failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	snap := Snapshot{
		UserID:      userID,
		GeneratedAt: now,
		Mood:        analysis.AnalyzeMoodTrend(moods, now),
		Events:      events,
		Buckets:     analysis.PartitionByMovability(events),
		Findings:    analysis.DetectConflicts(events),
		Upcoming:    upcomingEvents(events, now),
	}
	snap.SleepQuality, snap.SleepHours = models.DefaultSleepQuality, models.DefaultSleepHours
	if sleepRec != nil {
		snap.SleepQuality, snap.SleepHours = sleepRec.Quality, sleepRec.Hours
	}
	snap.Energy, snap.Timing = analysis.ClassifyEnergyFromRecord(sleepRec)

	narrative := renderNarrative(&snap)
	slog.Debug("Assembler.BuildContext: context assembled", "userID", userID,
		"events", len(snap.Events), "findings", len(snap.Findings), "upcoming", len(snap.Upcoming))
	return &Result{Snapshot: snap, Narrative: narrative}, nil
}

// upcomingEvents selects events starting after now and within the window,
// ordered by start time.
func upcomingEvents(events []models.CalendarEvent, now time.Time) []models.CalendarEvent {
	var out []models.CalendarEvent
	cutoff := now.Add(UpcomingWindow)
	for _, ev := range events {
		if ev.StartTime.After(now) && !ev.StartTime.After(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

// UrgencyTag classifies how soon an upcoming event starts.
func UrgencyTag(until time.Duration) string {
	switch {
	case until < 30*time.Minute:
		return UrgencyImmediate
	case until < 60*time.Minute:
		return UrgencySoon
	default:
		return UrgencyUpcoming
	}
}
