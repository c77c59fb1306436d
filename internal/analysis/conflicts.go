package analysis

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/models"
)

// FindingKind identifies the class of a schedule conflict finding.
type FindingKind string

const (
	// FindingAdjacency flags back-to-back events with little or no gap.
	FindingAdjacency FindingKind = "adjacency"
	// FindingOverlap flags events that overlap in time.
	FindingOverlap FindingKind = "overlap"
	// FindingDensity flags clusters of events packed into a short window.
	FindingDensity FindingKind = "density"
)

// Conflict detection thresholds.
const (
	// MaxAdjacencyGap is the largest gap between consecutive events that
	// still counts as back-to-back.
	MaxAdjacencyGap = 15 * time.Minute
	// DensityWindow is the span scanned from each event's start.
	DensityWindow = 4 * time.Hour
	// DensityThreshold is the event count at which a window is flagged.
	DensityThreshold = 3
)

// Finding describes one detected schedule conflict.
type Finding struct {
	Kind        FindingKind `json:"kind"`
	EventIDs    []int64     `json:"event_ids"`
	Description string      `json:"description"`
	WindowStart time.Time   `json:"window_start,omitempty"`
	WindowEnd   time.Time   `json:"window_end,omitempty"`
}

// DetectConflicts scans a day's events for adjacency, overlap, and density
// conflicts. Input order does not matter; the result is deterministic for a
// given event set. Events whose end does not come after their start are
// skipped rather than corrupting pair logic.
func DetectConflicts(events []models.CalendarEvent) []Finding {
	sorted := normalizeEvents(events)
	if len(sorted) < 2 {
		return nil
	}

	var findings []Finding
	findings = append(findings, detectAdjacency(sorted)...)
	findings = append(findings, detectOverlaps(sorted)...)
	findings = append(findings, detectDensity(sorted)...)
	return findings
}

// normalizeEvents returns a copy sorted by start time with invalid records
// dropped. Ties break on end time, then ID, to keep output stable.
func normalizeEvents(events []models.CalendarEvent) []models.CalendarEvent {
	sorted := make([]models.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if !ev.EndTime.After(ev.StartTime) {
			slog.Warn("DetectConflicts: skipping event with non-positive duration", "eventID", ev.ID, "title", ev.Title)
			continue
		}
		sorted = append(sorted, ev)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].StartTime.Before(sorted[j].StartTime)
		}
		if !sorted[i].EndTime.Equal(sorted[j].EndTime) {
			return sorted[i].EndTime.Before(sorted[j].EndTime)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func detectAdjacency(sorted []models.CalendarEvent) []Finding {
	var findings []Finding
	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		gap := next.StartTime.Sub(cur.EndTime)
		if gap < 0 || gap > MaxAdjacencyGap {
			continue
		}
		findings = append(findings, Finding{
			Kind:     FindingAdjacency,
			EventIDs: []int64{cur.ID, next.ID},
			Description: fmt.Sprintf("%q and %q are back-to-back with only a %d-minute gap",
				cur.Title, next.Title, int(gap.Minutes())),
		})
	}
	return findings
}

func detectOverlaps(sorted []models.CalendarEvent) []Finding {
	var findings []Finding
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if !a.StartTime.Before(b.EndTime) || !a.EndTime.After(b.StartTime) {
				continue
			}
			findings = append(findings, Finding{
				Kind:        FindingOverlap,
				EventIDs:    []int64{a.ID, b.ID},
				Description: fmt.Sprintf("%q overlaps with %q", a.Title, b.Title),
			})
		}
	}
	return findings
}

func detectDensity(sorted []models.CalendarEvent) []Finding {
	var findings []Finding
	var prevIDs []int64
	for _, anchor := range sorted {
		windowEnd := anchor.StartTime.Add(DensityWindow)
		var ids []int64
		for _, ev := range sorted {
			if !ev.StartTime.Before(anchor.StartTime) && !ev.StartTime.After(windowEnd) {
				ids = append(ids, ev.ID)
			}
		}
		if len(ids) < DensityThreshold {
			continue
		}
		// Consecutive windows that capture the same event set are noise.
		if sameIDs(ids, prevIDs) {
			continue
		}
		prevIDs = ids
		findings = append(findings, Finding{
			Kind:     FindingDensity,
			EventIDs: ids,
			Description: fmt.Sprintf("%d events packed into the 4 hours after %s",
				len(ids), anchor.StartTime.Format("03:04 PM")),
			WindowStart: anchor.StartTime,
			WindowEnd:   windowEnd,
		})
	}
	return findings
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
