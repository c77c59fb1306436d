package analysis

import (
	"log/slog"

	"github.com/FlowDayApp/FlowDay/internal/models"
)

// EnergyLevel is the predicted energy for the day based on last night's sleep.
type EnergyLevel string

const (
	// EnergyHigh predicts a high-energy day.
	EnergyHigh EnergyLevel = "high"
	// EnergyModerate predicts a steady, average-energy day.
	EnergyModerate EnergyLevel = "moderate"
	// EnergyLow predicts a low-energy day.
	EnergyLow EnergyLevel = "low"
)

// Fixed timing suggestions keyed by energy level. These strings are part of
// the narrative contract and must not vary between runs.
const (
	timingHigh     = "You have great energy today - tackle demanding tasks anytime!"
	timingModerate = "Your energy is steady - your best energy is in the morning and early afternoon."
	timingLow      = "Take it easy today - schedule demanding tasks for 10-11am or 2-3pm, and prefer shorter blocks with more breaks."
)

// ClassifyEnergy maps sleep quality and hours onto an energy level plus a
// timing suggestion. Rules apply in order: excellent sleep of at least 7
// hours is high; poor sleep or under 6 hours is low; everything else is
// moderate. Out-of-range hours are treated as if no record existed.
func ClassifyEnergy(quality models.SleepQuality, hours float64) (EnergyLevel, string) {
	if hours < 0 || hours > 24 {
		slog.Warn("ClassifyEnergy: sleep hours out of range, using defaults", "hours", hours)
		quality, hours = models.DefaultSleepQuality, models.DefaultSleepHours
	}
	if !models.IsValidSleepQuality(quality) {
		quality = models.DefaultSleepQuality
	}

	var level EnergyLevel
	switch {
	case quality == models.SleepQualityExcellent && hours >= 7:
		level = EnergyHigh
	case quality == models.SleepQualityPoor || hours < 6:
		level = EnergyLow
	default:
		level = EnergyModerate
	}
	return level, TimingSuggestion(level)
}

// ClassifyEnergyFromRecord classifies a possibly missing sleep record.
// A nil record uses the neutral defaults (fair quality, 7 hours).
func ClassifyEnergyFromRecord(rec *models.SleepRecord) (EnergyLevel, string) {
	if rec == nil {
		return ClassifyEnergy(models.DefaultSleepQuality, models.DefaultSleepHours)
	}
	return ClassifyEnergy(rec.Quality, rec.Hours)
}

// TimingSuggestion returns the fixed suggestion string for an energy level.
func TimingSuggestion(level EnergyLevel) string {
	switch level {
	case EnergyHigh:
		return timingHigh
	case EnergyLow:
		return timingLow
	default:
		return timingModerate
	}
}
