// Package analysis implements the pure wellness heuristics for FlowDay:
// mood trend detection, sleep energy classification, event movability
// partitioning, and schedule conflict detection.
//
// Everything in this package is deterministic and side-effect free so the
// context assembler and the proactive evaluator can rely on stable output.
package analysis

import (
	"time"

	"github.com/FlowDayApp/FlowDay/internal/models"
)

// TrendDirection describes the detected direction of a mood change.
type TrendDirection string

const (
	// TrendNone indicates no significant recent mood change.
	TrendNone TrendDirection = "none"
	// TrendEscalation indicates a recent shift into a stress mood.
	TrendEscalation TrendDirection = "escalation"
	// TrendImprovement indicates a recent shift from stress into a positive mood.
	TrendImprovement TrendDirection = "improvement"
)

// MoodRecencyWindow bounds how old the latest mood record may be to still
// count as a significant change.
const MoodRecencyWindow = 2 * time.Hour

var stressSymbols = map[string]bool{
	"😰": true,
	"😢": true,
	"😤": true,
	"😡": true,
	"😔": true,
}

var positiveSymbols = map[string]bool{
	"😊": true,
	"😌": true,
	"💪": true,
	"🤗": true,
}

// IsStressSymbol reports whether the symbol belongs to the stress set.
func IsStressSymbol(symbol string) bool {
	return stressSymbols[symbol]
}

// IsPositiveSymbol reports whether the symbol belongs to the positive set.
func IsPositiveSymbol(symbol string) bool {
	return positiveSymbols[symbol]
}

// MoodTrend is the result of analyzing a user's recent mood history.
type MoodTrend struct {
	HasSignificantChange bool           `json:"has_significant_change"`
	Direction            TrendDirection `json:"direction"`
	HoursSinceLatest     float64        `json:"hours_since_latest"`
	LatestSymbol         string         `json:"latest_symbol,omitempty"`
	PreviousSymbol       string         `json:"previous_symbol,omitempty"`
	LatestMoodID         int64          `json:"latest_mood_id,omitempty"`
}

// AnalyzeMoodTrend inspects mood records ordered newest first and decides
// whether the user's mood recently shifted in a way worth reacting to.
//
// A shift only counts when at least two records exist, the latest is no older
// than MoodRecencyWindow, and its classification differs from the previous
// record's: a stress mood after a non-stress one is an escalation, a positive
// mood after a non-positive one is an improvement. A single record, however
// recent, is not a trend. Symbols outside both sets never produce a change.
func AnalyzeMoodTrend(records []models.MoodRecord, now time.Time) MoodTrend {
	trend := MoodTrend{Direction: TrendNone}
	if len(records) == 0 {
		return trend
	}

	latest := records[0]
	trend.LatestSymbol = latest.Symbol
	trend.LatestMoodID = latest.ID
	trend.HoursSinceLatest = now.Sub(latest.Timestamp).Hours()
	if len(records) < 2 {
		return trend
	}
	trend.PreviousSymbol = records[1].Symbol

	if now.Sub(latest.Timestamp) > MoodRecencyWindow {
		return trend
	}

	switch {
	case IsStressSymbol(latest.Symbol) && !IsStressSymbol(trend.PreviousSymbol):
		trend.HasSignificantChange = true
		trend.Direction = TrendEscalation
	case IsPositiveSymbol(latest.Symbol) && !IsPositiveSymbol(trend.PreviousSymbol):
		trend.HasSignificantChange = true
		trend.Direction = TrendImprovement
	}
	return trend
}
