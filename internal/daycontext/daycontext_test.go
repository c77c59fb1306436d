package daycontext

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/analysis"
	"github.com/FlowDayApp/FlowDay/internal/models"
)

// fakeDataSource implements DataSource for tests.
type fakeDataSource struct {
	moods     []models.MoodRecord
	sleep     *models.SleepRecord
	events    []models.CalendarEvent
	moodsErr  error
	sleepErr  error
	eventsErr error
}

func (f *fakeDataSource) GetMoods(userID int64, limit int) ([]models.MoodRecord, error) {
	return f.moods, f.moodsErr
}

func (f *fakeDataSource) GetSleepForDate(userID int64, date string) (*models.SleepRecord, error) {
	return f.sleep, f.sleepErr
}

func (f *fakeDataSource) GetEventsBetween(userID int64, start, end time.Time) ([]models.CalendarEvent, error) {
	return f.events, f.eventsErr
}

func TestBuildContext_EmptyDataUsesDefaults(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	asm := NewAssembler(&fakeDataSource{})

	res, err := asm.BuildContext(1, now)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}

	snap := res.Snapshot
	if snap.SleepQuality != models.SleepQualityFair || snap.SleepHours != 7 {
		t.Errorf("expected fair/7h defaults, got %q/%v", snap.SleepQuality, snap.SleepHours)
	}
	if snap.Energy != analysis.EnergyModerate {
		t.Errorf("expected moderate energy for defaults, got %q", snap.Energy)
	}
	if snap.Mood.HasSignificantChange {
		t.Error("empty mood history must not be a significant change")
	}

	for _, want := range []string{
		"=== USER CONTEXT ===",
		"Mood: no recent mood logged",
		"Sleep: 7.0 hours of fair quality sleep (energy: moderate)",
		"Schedule: 0 events today (0 fixed, 0 movable, 0 unsure)",
		"Conflicts: none detected",
		"Today's events: none scheduled",
		"Upcoming (next 4 hours): nothing scheduled",
		"=== END CONTEXT ===",
	} {
		if !strings.Contains(res.Narrative, want) {
			t.Errorf("narrative missing %q:\n%s", want, res.Narrative)
		}
	}
}

func TestBuildContext_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	src := &fakeDataSource{
		moods: []models.MoodRecord{
			{ID: 7, UserID: 1, Symbol: "😰", Timestamp: now.Add(-30 * time.Minute)},
		},
		sleep: &models.SleepRecord{UserID: 1, Date: "2026-03-14", Quality: models.SleepQualityGood, Hours: 6.5},
		events: []models.CalendarEvent{
			{ID: 1, UserID: 1, Title: "Standup", StartTime: day.Add(9 * time.Hour), EndTime: day.Add(9*time.Hour + 30*time.Minute), Movability: models.MovabilityFixed},
			{ID: 2, UserID: 1, Title: "Review", StartTime: day.Add(16 * time.Hour), EndTime: day.Add(17 * time.Hour), Movability: models.MovabilityMovable},
		},
	}
	asm := NewAssembler(src)

	first, err := asm.BuildContext(1, now)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}
	second, err := asm.BuildContext(1, now)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}
	if first.Narrative != second.Narrative {
		t.Error("narrative not byte-identical across identical runs")
	}
}

func TestBuildContext_NarrativeSectionOrder(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	src := &fakeDataSource{
		moods: []models.MoodRecord{{ID: 1, UserID: 1, Symbol: "😊", Timestamp: now.Add(-3 * time.Hour)}},
		sleep: &models.SleepRecord{UserID: 1, Date: "2026-03-14", Quality: models.SleepQualityExcellent, Hours: 8},
		events: []models.CalendarEvent{
			{ID: 1, UserID: 1, Title: "A", StartTime: day.Add(15*time.Hour + 25*time.Minute), EndTime: day.Add(16 * time.Hour)},
			{ID: 2, UserID: 1, Title: "B", StartTime: day.Add(16*time.Hour + 5*time.Minute), EndTime: day.Add(17 * time.Hour)},
		},
	}
	res, err := NewAssembler(src).BuildContext(1, now)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}

	sections := []string{
		"Current time:",
		"Mood:",
		"Sleep:",
		"Schedule:",
		"Conflicts",
		"Today's events",
		"Upcoming (next 4 hours)",
	}
	last := -1
	for _, section := range sections {
		idx := strings.Index(res.Narrative, section)
		if idx < 0 {
			t.Fatalf("narrative missing section %q:\n%s", section, res.Narrative)
		}
		if idx < last {
			t.Errorf("section %q out of order", section)
		}
		last = idx
	}
}

func TestBuildContext_UpcomingUrgencyTags(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	src := &fakeDataSource{
		events: []models.CalendarEvent{
			{ID: 1, UserID: 1, Title: "Very soon", StartTime: now.Add(25 * time.Minute), EndTime: now.Add(55 * time.Minute)},
			{ID: 2, UserID: 1, Title: "Soonish", StartTime: now.Add(45 * time.Minute), EndTime: now.Add(90 * time.Minute)},
			{ID: 3, UserID: 1, Title: "Later", StartTime: now.Add(3 * time.Hour), EndTime: now.Add(4 * time.Hour)},
			{ID: 4, UserID: 1, Title: "Too far", StartTime: now.Add(5 * time.Hour), EndTime: now.Add(6 * time.Hour)},
			{ID: 5, UserID: 1, Title: "Already started", StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)},
		},
	}
	res, err := NewAssembler(src).BuildContext(1, now)
	if err != nil {
		t.Fatalf("BuildContext failed: %v", err)
	}

	if len(res.Snapshot.Upcoming) != 3 {
		t.Fatalf("expected 3 upcoming events, got %d", len(res.Snapshot.Upcoming))
	}
	for _, want := range []string{
		`"Very soon" in 25 minutes (03:25 PM) [immediate]`,
		`"Soonish" in 45 minutes (03:45 PM) [soon]`,
		`"Later" in 180 minutes (06:00 PM) [upcoming]`,
	} {
		if !strings.Contains(res.Narrative, want) {
			t.Errorf("narrative missing %q:\n%s", want, res.Narrative)
		}
	}
	if strings.Contains(res.Narrative, `"Too far" in`) {
		t.Error("event beyond the 4-hour window leaked into upcoming")
	}
}

func TestBuildContext_DataSourceErrorPropagates(t *testing.T) {
	boom := errors.New("database offline")
	tests := []struct {
		name string
		src  *fakeDataSource
	}{
		{"moods", &fakeDataSource{moodsErr: boom}},
		{"sleep", &fakeDataSource{sleepErr: boom}},
		{"events", &fakeDataSource{eventsErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssembler(tt.src).BuildContext(1, time.Now())
			if err == nil || !errors.Is(err, boom) {
				t.Errorf("expected wrapped data source error, got %v", err)
			}
		})
	}
}

func TestUrgencyTag(t *testing.T) {
	tests := []struct {
		until time.Duration
		want  string
	}{
		{10 * time.Minute, UrgencyImmediate},
		{29 * time.Minute, UrgencyImmediate},
		{30 * time.Minute, UrgencySoon},
		{59 * time.Minute, UrgencySoon},
		{60 * time.Minute, UrgencyUpcoming},
		{3 * time.Hour, UrgencyUpcoming},
	}
	for _, tt := range tests {
		if got := UrgencyTag(tt.until); got != tt.want {
			t.Errorf("UrgencyTag(%v) = %q, want %q", tt.until, got, tt.want)
		}
	}
}
