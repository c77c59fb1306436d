package analysis

import (
	"strings"
	"testing"

	"github.com/FlowDayApp/FlowDay/internal/models"
)

func TestClassifyEnergy(t *testing.T) {
	tests := []struct {
		name    string
		quality models.SleepQuality
		hours   float64
		want    EnergyLevel
	}{
		{"excellent long sleep", models.SleepQualityExcellent, 8, EnergyHigh},
		{"excellent exactly seven", models.SleepQualityExcellent, 7, EnergyHigh},
		{"excellent short sleep", models.SleepQualityExcellent, 6.9, EnergyModerate},
		{"poor sleep", models.SleepQualityPoor, 9, EnergyLow},
		{"short sleep", models.SleepQualityGood, 5.9, EnergyLow},
		{"good exactly six", models.SleepQualityGood, 6, EnergyModerate},
		{"good long sleep", models.SleepQualityGood, 8, EnergyModerate},
		{"fair average sleep", models.SleepQualityFair, 7, EnergyModerate},
		{"excellent but under six", models.SleepQualityExcellent, 5.5, EnergyLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, suggestion := ClassifyEnergy(tt.quality, tt.hours)
			if level != tt.want {
				t.Errorf("ClassifyEnergy(%q, %v) = %q, want %q", tt.quality, tt.hours, level, tt.want)
			}
			if suggestion != TimingSuggestion(tt.want) {
				t.Errorf("suggestion mismatch for level %q", tt.want)
			}
		})
	}
}

func TestClassifyEnergy_InvalidHours(t *testing.T) {
	// Out-of-range hours fall back to the fair/7h defaults.
	level, _ := ClassifyEnergy(models.SleepQualityExcellent, 30)
	if level != EnergyModerate {
		t.Errorf("expected moderate for invalid hours, got %q", level)
	}
	level, _ = ClassifyEnergy(models.SleepQualityPoor, -2)
	if level != EnergyModerate {
		t.Errorf("expected moderate for negative hours, got %q", level)
	}
}

func TestClassifyEnergyFromRecord_Missing(t *testing.T) {
	level, suggestion := ClassifyEnergyFromRecord(nil)
	if level != EnergyModerate {
		t.Errorf("expected moderate for missing record, got %q", level)
	}
	if suggestion == "" {
		t.Error("expected a timing suggestion for missing record")
	}
}

func TestTimingSuggestionContent(t *testing.T) {
	tests := []struct {
		level EnergyLevel
		want  []string
	}{
		{EnergyHigh, []string{"demanding tasks anytime"}},
		{EnergyModerate, []string{"best energy is in the morning and early afternoon"}},
		{EnergyLow, []string{"10-11am or 2-3pm", "shorter blocks with more breaks"}},
	}
	for _, tt := range tests {
		got := TimingSuggestion(tt.level)
		for _, want := range tt.want {
			if !strings.Contains(got, want) {
				t.Errorf("suggestion for %q missing %q: %q", tt.level, want, got)
			}
		}
	}
}

func TestTimingSuggestionStable(t *testing.T) {
	for _, level := range []EnergyLevel{EnergyHigh, EnergyModerate, EnergyLow} {
		first := TimingSuggestion(level)
		if first == "" {
			t.Fatalf("empty suggestion for %q", level)
		}
		if second := TimingSuggestion(level); second != first {
			t.Errorf("suggestion for %q not stable", level)
		}
	}
}
