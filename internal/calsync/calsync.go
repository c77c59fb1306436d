// Package calsync mirrors a user's Google Calendar into local storage.
//
// Sync is one-directional: Google is the source of truth for externally
// managed events, while locally assigned movability survives resyncs.
package calsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/FlowDayApp/FlowDay/internal/models"
)

// DefaultSyncWindow is how far ahead events are pulled during a sync.
const DefaultSyncWindow = 7 * 24 * time.Hour

// ErrNotAuthorized indicates the user has not linked Google Calendar yet.
var ErrNotAuthorized = errors.New("user has not authorized Google Calendar access")

// allDayLayout is the date-only format Google uses for all-day events.
const allDayLayout = "2006-01-02"

// TokenStore is the subset of storage the sync service needs.
type TokenStore interface {
	SaveCalendarToken(userID int64, tokenJSON string) error
	GetCalendarToken(userID int64) (string, error)
	UpsertExternalEvent(ev *models.CalendarEvent) error
	DeleteExternalEvent(userID int64, externalID string) error
}

// Opts holds configuration options for the sync service.
type Opts struct {
	// CredentialsPath points at the Google OAuth client credentials JSON.
	CredentialsPath string
	// SyncWindow is how far ahead events are pulled. Defaults to one week.
	SyncWindow time.Duration
}

// Option configures the sync service.
type Option func(*Opts)

// WithCredentialsPath sets the OAuth client credentials file.
func WithCredentialsPath(path string) Option {
	return func(o *Opts) { o.CredentialsPath = path }
}

// WithSyncWindow sets how far ahead events are pulled during a sync.
func WithSyncWindow(window time.Duration) Option {
	return func(o *Opts) { o.SyncWindow = window }
}

// Service coordinates the OAuth flow and event mirroring.
type Service struct {
	config *oauth2.Config
	store  TokenStore
	window time.Duration
}

// NewService creates a calendar sync service from Google OAuth client
// credentials.
func NewService(st TokenStore, options ...Option) (*Service, error) {
	var opts Opts
	for _, opt := range options {
		opt(&opts)
	}
	if opts.CredentialsPath == "" {
		return nil, fmt.Errorf("google credentials path is required")
	}
	if opts.SyncWindow == 0 {
		opts.SyncWindow = DefaultSyncWindow
	}

	b, err := os.ReadFile(opts.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read google credentials: %w", err)
	}
	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse google credentials: %w", err)
	}
	slog.Debug("NewService: calendar sync configured", "syncWindow", opts.SyncWindow)
	return &Service{config: config, store: st, window: opts.SyncWindow}, nil
}

// AuthURL returns the consent URL a user visits to link their calendar.
func (s *Service) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades the OAuth authorization code for a token and persists
// it for the user.
func (s *Service) ExchangeCode(ctx context.Context, userID int64, code string) error {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		slog.Error("Service.ExchangeCode: exchange failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := s.saveToken(userID, token); err != nil {
		return err
	}
	slog.Info("Service.ExchangeCode: calendar linked", "userID", userID)
	return nil
}

// Sync pulls upcoming events from the user's primary calendar and mirrors
// them into local storage. It returns the number of events upserted.
func (s *Service) Sync(ctx context.Context, userID int64, now time.Time) (int, error) {
	client, err := s.clientFor(ctx, userID)
	if err != nil {
		return 0, err
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return 0, fmt.Errorf("failed to create calendar service: %w", err)
	}

	events, err := srv.Events.List("primary").
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(s.window).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		ShowDeleted(true).
		Do()
	if err != nil {
		slog.Error("Service.Sync: event listing failed", "error", err, "userID", userID)
		return 0, fmt.Errorf("failed to list calendar events: %w", err)
	}

	synced := 0
	for _, item := range events.Items {
		if item.Status == "cancelled" {
			if err := s.store.DeleteExternalEvent(userID, item.Id); err != nil {
				slog.Warn("Service.Sync: failed to remove cancelled event", "error", err, "externalID", item.Id)
			}
			continue
		}
		ev, err := localEventFromGoogle(userID, item)
		if err != nil {
			slog.Warn("Service.Sync: skipping unparseable event", "error", err, "externalID", item.Id)
			continue
		}
		if err := s.store.UpsertExternalEvent(ev); err != nil {
			slog.Warn("Service.Sync: failed to upsert event", "error", err, "externalID", item.Id)
			continue
		}
		synced++
	}
	slog.Info("Service.Sync: sync complete", "userID", userID, "synced", synced, "fetched", len(events.Items))
	return synced, nil
}

// clientFor returns an authorized HTTP client, refreshing and re-saving the
// token when it has expired.
func (s *Service) clientFor(ctx context.Context, userID int64) (*http.Client, error) {
	token, err := s.loadToken(userID)
	if err != nil {
		return nil, err
	}
	if token.Expiry.Before(time.Now()) {
		fresh, err := s.config.TokenSource(ctx, token).Token()
		if err != nil {
			return nil, fmt.Errorf("failed to refresh calendar token: %w", err)
		}
		if fresh.AccessToken != token.AccessToken {
			token = fresh
			if err := s.saveToken(userID, token); err != nil {
				return nil, err
			}
		}
	}
	return s.config.Client(ctx, token), nil
}

func (s *Service) saveToken(userID int64, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode calendar token: %w", err)
	}
	if err := s.store.SaveCalendarToken(userID, string(raw)); err != nil {
		return fmt.Errorf("failed to store calendar token: %w", err)
	}
	return nil
}

func (s *Service) loadToken(userID int64) (*oauth2.Token, error) {
	raw, err := s.store.GetCalendarToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar token: %w", err)
	}
	if raw == "" {
		return nil, ErrNotAuthorized
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to decode calendar token: %w", err)
	}
	return &token, nil
}

// localEventFromGoogle converts a Google Calendar item to the local event
// shape. New events arrive with unsure movability; the storage layer keeps
// any movability the user already set.
func localEventFromGoogle(userID int64, item *calendar.Event) (*models.CalendarEvent, error) {
	start, err := parseEventTime(item.Start)
	if err != nil {
		return nil, fmt.Errorf("bad start time: %w", err)
	}
	end, err := parseEventTime(item.End)
	if err != nil {
		return nil, fmt.Errorf("bad end time: %w", err)
	}
	return &models.CalendarEvent{
		UserID:      userID,
		Title:       item.Summary,
		Description: item.Description,
		StartTime:   start,
		EndTime:     end,
		Location:    item.Location,
		EventType:   "calendar",
		Movability:  models.MovabilityUnsure,
		ExternalID:  item.Id,
	}, nil
}

func parseEventTime(t *calendar.EventDateTime) (time.Time, error) {
	if t == nil {
		return time.Time{}, fmt.Errorf("missing event time")
	}
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.Parse(allDayLayout, t.Date)
	}
	return time.Time{}, fmt.Errorf("event time has neither dateTime nor date")
}
