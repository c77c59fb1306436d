// Package weather fetches current conditions from the Open-Meteo API.
//
// Open-Meteo needs no API key, so the client is a thin HTTP wrapper that
// maps WMO weather codes to the short descriptions used in mood context
// and the day narrative.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the Open-Meteo forecast endpoint.
const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// DefaultTimeout bounds a single forecast request.
const DefaultTimeout = 10 * time.Second

// Summary is the current-conditions snapshot returned to callers.
type Summary struct {
	Description  string  `json:"description"`
	TemperatureC float64 `json:"temperature_c"`
	Code         int     `json:"code"`
}

// String renders the summary the way it appears in mood context.
func (s Summary) String() string {
	return fmt.Sprintf("%s, %.1f°C", s.Description, s.TemperatureC)
}

// Opts holds configuration options for the weather client.
type Opts struct {
	// BaseURL overrides the Open-Meteo endpoint, mainly for tests.
	BaseURL string
	// HTTPClient overrides the HTTP client used for requests.
	HTTPClient *http.Client
	// Timeout bounds a single request when no HTTPClient is supplied.
	Timeout time.Duration
}

// Option configures the weather client.
type Option func(*Opts)

// WithBaseURL sets a custom forecast endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *Opts) { o.BaseURL = baseURL }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = client }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Opts) { o.Timeout = timeout }
}

// Client fetches current weather for a fixed location.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a weather client.
func NewClient(options ...Option) *Client {
	var opts Opts
	for _, opt := range options {
		opt(&opts)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{baseURL: opts.BaseURL, http: opts.HTTPClient}
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// Current fetches the current conditions for the given coordinates.
func (c *Client) Current(ctx context.Context, latitude, longitude float64) (*Summary, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m,weather_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Client.Current: weather request failed", "error", err)
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("Client.Current: unexpected status", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("weather request returned status %d", resp.StatusCode)
	}

	var fc forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	summary := &Summary{
		Description:  DescribeCode(fc.Current.WeatherCode),
		TemperatureC: fc.Current.Temperature,
		Code:         fc.Current.WeatherCode,
	}
	slog.Debug("Client.Current: fetched conditions", "code", summary.Code, "temperatureC", summary.TemperatureC)
	return summary, nil
}

// DescribeCode maps a WMO weather code to a short human description.
func DescribeCode(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code <= 48:
		return "Foggy"
	case code <= 67:
		return "Rainy"
	case code <= 77:
		return "Snowy"
	case code <= 82:
		return "Showers"
	case code <= 99:
		return "Thunderstorms"
	default:
		return "Unknown"
	}
}
