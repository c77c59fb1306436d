package models

import (
	"testing"
	"time"
)

func TestCanonicalMovability(t *testing.T) {
	tests := []struct {
		raw  string
		want Movability
	}{
		{"fixed", MovabilityFixed},
		{"movable", MovabilityMovable},
		{"unsure", MovabilityUnsure},
		{"", MovabilityUnsure},
		{"maybe", MovabilityUnsure},
		{"FIXED", MovabilityUnsure},
	}
	for _, tt := range tests {
		if got := CanonicalMovability(tt.raw); got != tt.want {
			t.Errorf("CanonicalMovability(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestMoodRecordValidate(t *testing.T) {
	m := MoodRecord{Symbol: "😊", Timestamp: time.Now()}
	if err := m.Validate(); err != nil {
		t.Errorf("expected valid mood record, got %v", err)
	}

	m.Symbol = ""
	if err := m.Validate(); err != ErrEmptyMoodSymbol {
		t.Errorf("expected ErrEmptyMoodSymbol, got %v", err)
	}
}

func TestMoodRecordContextPayload(t *testing.T) {
	m := MoodRecord{Symbol: "🌅", ContextJSON: `{"type":"morning_evaluation","sleepQuality":"good","sleepHours":7.5}`}
	ctx := m.ContextPayload()
	if ctx == nil {
		t.Fatal("expected decoded context payload, got nil")
	}
	if ctx.Type != "morning_evaluation" {
		t.Errorf("expected type morning_evaluation, got %q", ctx.Type)
	}
	if ctx.SleepHours != 7.5 {
		t.Errorf("expected 7.5 sleep hours, got %v", ctx.SleepHours)
	}
}

func TestMoodRecordContextPayloadMalformed(t *testing.T) {
	m := MoodRecord{Symbol: "😊", ContextJSON: `{not json`}
	if ctx := m.ContextPayload(); ctx != nil {
		t.Errorf("expected nil for malformed payload, got %+v", ctx)
	}
}

func TestSleepRecordValidate(t *testing.T) {
	tests := []struct {
		name string
		rec  SleepRecord
		want error
	}{
		{"valid", SleepRecord{Date: "2026-03-14", Quality: SleepQualityGood, Hours: 7.5, WakeUpTime: "06:45"}, nil},
		{"bad date", SleepRecord{Date: "14/03/2026", Quality: SleepQualityGood, Hours: 7}, ErrInvalidSleepDate},
		{"bad quality", SleepRecord{Date: "2026-03-14", Quality: "great", Hours: 7}, ErrInvalidSleepQuality},
		{"negative hours", SleepRecord{Date: "2026-03-14", Quality: SleepQualityGood, Hours: -1}, ErrInvalidSleepHours},
		{"too many hours", SleepRecord{Date: "2026-03-14", Quality: SleepQualityGood, Hours: 25}, ErrInvalidSleepHours},
		{"bad wake time", SleepRecord{Date: "2026-03-14", Quality: SleepQualityGood, Hours: 7, WakeUpTime: "6:95"}, ErrInvalidWakeTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rec.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCalendarEventValidate(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	ev := CalendarEvent{Title: "Standup", StartTime: start, EndTime: start.Add(30 * time.Minute)}
	if err := ev.Validate(); err != nil {
		t.Errorf("expected valid event, got %v", err)
	}

	ev.EndTime = start
	if err := ev.Validate(); err != ErrEventEndBeforeStart {
		t.Errorf("expected ErrEventEndBeforeStart for zero-length event, got %v", err)
	}

	ev.EndTime = start.Add(-time.Hour)
	if err := ev.Validate(); err != ErrEventEndBeforeStart {
		t.Errorf("expected ErrEventEndBeforeStart, got %v", err)
	}

	ev = CalendarEvent{Title: "", StartTime: start, EndTime: start.Add(time.Hour)}
	if err := ev.Validate(); err != ErrEmptyEventTitle {
		t.Errorf("expected ErrEmptyEventTitle, got %v", err)
	}

	ev = CalendarEvent{Title: "Lunch", StartTime: start, EndTime: start.Add(time.Hour), Movability: "sometimes"}
	if err := ev.Validate(); err != ErrInvalidMovability {
		t.Errorf("expected ErrInvalidMovability, got %v", err)
	}
}
