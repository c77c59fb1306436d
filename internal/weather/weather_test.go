package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDescribeCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{1, "Partly cloudy"},
		{3, "Partly cloudy"},
		{4, "Foggy"},
		{48, "Foggy"},
		{51, "Rainy"},
		{67, "Rainy"},
		{71, "Snowy"},
		{77, "Snowy"},
		{80, "Showers"},
		{82, "Showers"},
		{95, "Thunderstorms"},
		{99, "Thunderstorms"},
		{120, "Unknown"},
	}
	for _, tt := range tests {
		if got := DescribeCode(tt.code); got != tt.want {
			t.Errorf("DescribeCode(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("latitude"); got != "52.5200" {
			t.Errorf("unexpected latitude %q", got)
		}
		if got := r.URL.Query().Get("current"); got != "temperature_2m,weather_code" {
			t.Errorf("unexpected current fields %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current":{"temperature_2m":13.5,"weather_code":3}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	summary, err := client.Current(context.Background(), 52.52, 13.405)
	if err != nil {
		t.Fatalf("Current returned error: %v", err)
	}
	if summary.Description != "Partly cloudy" {
		t.Errorf("expected Partly cloudy, got %q", summary.Description)
	}
	if summary.TemperatureC != 13.5 {
		t.Errorf("expected 13.5°C, got %v", summary.TemperatureC)
	}
	if got := summary.String(); got != "Partly cloudy, 13.5°C" {
		t.Errorf("unexpected summary string %q", got)
	}
}

func TestCurrentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := client.Current(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
