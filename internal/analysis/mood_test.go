package analysis

import (
	"testing"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/models"
)

func moodAt(id int64, symbol string, ts time.Time) models.MoodRecord {
	return models.MoodRecord{ID: id, UserID: 1, Symbol: symbol, Timestamp: ts}
}

func TestAnalyzeMoodTrend_Escalation(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	records := []models.MoodRecord{
		moodAt(2, "😰", now.Add(-30*time.Minute)),
		moodAt(1, "😊", now.Add(-3*time.Hour)),
	}
	trend := AnalyzeMoodTrend(records, now)
	if !trend.HasSignificantChange {
		t.Fatal("expected significant change for recent stress mood")
	}
	if trend.Direction != TrendEscalation {
		t.Errorf("expected escalation, got %q", trend.Direction)
	}
	if trend.LatestMoodID != 2 {
		t.Errorf("expected latest mood ID 2, got %d", trend.LatestMoodID)
	}
	if trend.HoursSinceLatest < 0.49 || trend.HoursSinceLatest > 0.51 {
		t.Errorf("expected roughly 0.5 hours since latest, got %v", trend.HoursSinceLatest)
	}
}

func TestAnalyzeMoodTrend_Improvement(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	records := []models.MoodRecord{
		moodAt(2, "😊", now.Add(-10*time.Minute)),
		moodAt(1, "😰", now.Add(-time.Hour)),
	}
	trend := AnalyzeMoodTrend(records, now)
	if !trend.HasSignificantChange || trend.Direction != TrendImprovement {
		t.Errorf("expected improvement, got %+v", trend)
	}
}

func TestAnalyzeMoodTrend_ImprovementAfterNeutral(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	records := []models.MoodRecord{
		moodAt(2, "😊", now.Add(-10*time.Minute)),
		moodAt(1, "😐", now.Add(-time.Hour)),
	}
	trend := AnalyzeMoodTrend(records, now)
	if !trend.HasSignificantChange || trend.Direction != TrendImprovement {
		t.Errorf("positive mood after a neutral one should be an improvement, got %+v", trend)
	}
}

func TestAnalyzeMoodTrend_PositiveAfterPositive(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	records := []models.MoodRecord{
		moodAt(2, "😊", now.Add(-10*time.Minute)),
		moodAt(1, "😌", now.Add(-time.Hour)),
	}
	trend := AnalyzeMoodTrend(records, now)
	if trend.HasSignificantChange {
		t.Errorf("positive mood after another positive mood should not be significant, got %+v", trend)
	}
	if trend.Direction != TrendNone {
		t.Errorf("expected direction none, got %q", trend.Direction)
	}
}

func TestAnalyzeMoodTrend_SingleRecordIsNotATrend(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	records := []models.MoodRecord{
		moodAt(1, "😰", now.Add(-10*time.Minute)),
	}
	trend := AnalyzeMoodTrend(records, now)
	if trend.HasSignificantChange || trend.Direction != TrendNone {
		t.Errorf("one record cannot show a change, got %+v", trend)
	}
	if trend.HoursSinceLatest < 0.16 || trend.HoursSinceLatest > 0.17 {
		t.Errorf("recency must still be computed for one record, got %v", trend.HoursSinceLatest)
	}
}

func TestAnalyzeMoodTrend_StressAfterStress(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	records := []models.MoodRecord{
		moodAt(2, "😰", now.Add(-10*time.Minute)),
		moodAt(1, "😢", now.Add(-90*time.Minute)),
	}
	trend := AnalyzeMoodTrend(records, now)
	if trend.HasSignificantChange {
		t.Errorf("stress after stress is not a classification change, got %+v", trend)
	}
	if trend.Direction != TrendNone {
		t.Errorf("expected direction none, got %q", trend.Direction)
	}
}

func TestAnalyzeMoodTrend_StaleRecord(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	records := []models.MoodRecord{
		moodAt(1, "😰", now.Add(-3*time.Hour)),
	}
	trend := AnalyzeMoodTrend(records, now)
	if trend.HasSignificantChange {
		t.Error("stress mood older than the recency window should not be significant")
	}
	if trend.HoursSinceLatest < 2.99 || trend.HoursSinceLatest > 3.01 {
		t.Errorf("expected roughly 3 hours since latest, got %v", trend.HoursSinceLatest)
	}
}

func TestAnalyzeMoodTrend_NeutralSymbol(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	records := []models.MoodRecord{
		moodAt(2, "😐", now.Add(-5*time.Minute)),
		moodAt(1, "😰", now.Add(-time.Hour)),
	}
	trend := AnalyzeMoodTrend(records, now)
	if trend.HasSignificantChange {
		t.Error("neutral symbol should never count as a significant change")
	}
}

func TestAnalyzeMoodTrend_Empty(t *testing.T) {
	trend := AnalyzeMoodTrend(nil, time.Now())
	if trend.HasSignificantChange || trend.Direction != TrendNone || trend.LatestSymbol != "" {
		t.Errorf("expected neutral trend for empty history, got %+v", trend)
	}
}

func TestSymbolSets(t *testing.T) {
	for _, s := range []string{"😰", "😢", "😤", "😡", "😔"} {
		if !IsStressSymbol(s) {
			t.Errorf("expected %q in stress set", s)
		}
	}
	for _, s := range []string{"😊", "😌", "💪", "🤗"} {
		if !IsPositiveSymbol(s) {
			t.Errorf("expected %q in positive set", s)
		}
	}
	if IsStressSymbol("😊") || IsPositiveSymbol("😰") || IsStressSymbol("😐") || IsPositiveSymbol("😐") {
		t.Error("symbol sets must be disjoint and exclude neutral symbols")
	}
}
