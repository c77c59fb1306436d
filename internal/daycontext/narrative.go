package daycontext

import (
	"fmt"
	"strings"

	"github.com/FlowDayApp/FlowDay/internal/analysis"
)

// Clock layouts used in the narrative. These are part of the output contract.
const (
	clockLayout = "03:04 PM"
	dateLayout  = "Monday, January 2, 2006"
)

// renderNarrative writes the snapshot as the fixed-order context block:
// time, mood, sleep, schedule counts, conflicts, today's events, upcoming.
// The output is deterministic for a given snapshot.
func renderNarrative(snap *Snapshot) string {
	var b strings.Builder

	b.WriteString("=== USER CONTEXT ===\n")
	fmt.Fprintf(&b, "Current time: %s on %s\n",
		snap.GeneratedAt.Format(clockLayout), snap.GeneratedAt.Format(dateLayout))

	writeMoodLine(&b, snap)
	fmt.Fprintf(&b, "Sleep: %.1f hours of %s quality sleep (energy: %s)\n",
		snap.SleepHours, snap.SleepQuality, snap.Energy)
	fmt.Fprintf(&b, "Tip: %s\n", snap.Timing)

	fmt.Fprintf(&b, "Schedule: %d events today (%d fixed, %d movable, %d unsure)\n",
		len(snap.Events), len(snap.Buckets.Fixed), len(snap.Buckets.Movable), len(snap.Buckets.Unsure))

	if len(snap.Findings) == 0 {
		b.WriteString("Conflicts: none detected\n")
	} else {
		b.WriteString("Conflicts:\n")
		for _, f := range snap.Findings {
			fmt.Fprintf(&b, "- %s\n", f.Description)
		}
	}

	if len(snap.Events) == 0 {
		b.WriteString("Today's events: none scheduled\n")
	} else {
		b.WriteString("Today's events:\n")
		for _, ev := range snap.Events {
			fmt.Fprintf(&b, "- %s-%s: %q [%s]\n",
				ev.StartTime.Format(clockLayout), ev.EndTime.Format(clockLayout), ev.Title, ev.Movability)
		}
	}

	if len(snap.Upcoming) == 0 {
		b.WriteString("Upcoming (next 4 hours): nothing scheduled\n")
	} else {
		b.WriteString("Upcoming (next 4 hours):\n")
		for _, ev := range snap.Upcoming {
			until := ev.StartTime.Sub(snap.GeneratedAt)
			fmt.Fprintf(&b, "- %q in %d minutes (%s) [%s]\n",
				ev.Title, int(until.Minutes()), ev.StartTime.Format(clockLayout), UrgencyTag(until))
		}
	}

	b.WriteString("=== END CONTEXT ===")
	return b.String()
}

func writeMoodLine(b *strings.Builder, snap *Snapshot) {
	if snap.Mood.LatestSymbol == "" {
		b.WriteString("Mood: no recent mood logged\n")
		return
	}
	fmt.Fprintf(b, "Mood: %s, logged %.1fh ago", snap.Mood.LatestSymbol, snap.Mood.HoursSinceLatest)
	switch {
	case snap.Mood.HasSignificantChange && snap.Mood.Direction == analysis.TrendEscalation:
		b.WriteString(" - stress escalation detected")
	case snap.Mood.HasSignificantChange && snap.Mood.Direction == analysis.TrendImprovement:
		b.WriteString(" - mood improvement detected")
	default:
		b.WriteString(" - no significant recent change")
	}
	b.WriteString("\n")
}
