package analysis

import (
	"sort"

	"github.com/FlowDayApp/FlowDay/internal/models"
)

// MovabilityBuckets partitions a day's events by whether they can be moved.
// The partition is total and disjoint: every input event lands in exactly one
// bucket, with unrecognized values degrading to Unsure.
type MovabilityBuckets struct {
	Fixed   []models.CalendarEvent `json:"fixed"`
	Movable []models.CalendarEvent `json:"movable"`
	Unsure  []models.CalendarEvent `json:"unsure"`
}

// Total returns the number of events across all buckets.
func (b MovabilityBuckets) Total() int {
	return len(b.Fixed) + len(b.Movable) + len(b.Unsure)
}

// PartitionByMovability splits events into fixed, movable, and unsure
// buckets, each sorted by start time ascending.
func PartitionByMovability(events []models.CalendarEvent) MovabilityBuckets {
	var buckets MovabilityBuckets
	for _, ev := range events {
		switch models.CanonicalMovability(string(ev.Movability)) {
		case models.MovabilityFixed:
			buckets.Fixed = append(buckets.Fixed, ev)
		case models.MovabilityMovable:
			buckets.Movable = append(buckets.Movable, ev)
		default:
			buckets.Unsure = append(buckets.Unsure, ev)
		}
	}
	sortByStart(buckets.Fixed)
	sortByStart(buckets.Movable)
	sortByStart(buckets.Unsure)
	return buckets
}

func sortByStart(events []models.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
