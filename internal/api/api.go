// Package api provides HTTP handlers and the main API server logic for FlowDay.
//
// It exposes RESTful endpoints for mood and sleep tracking, calendar events,
// the companion chat, assembled day context, and proactive trigger control.
// The API wires together the store, analysis, planner, calendar sync, and
// notification modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/calsync"
	"github.com/FlowDayApp/FlowDay/internal/daycontext"
	"github.com/FlowDayApp/FlowDay/internal/genai"
	"github.com/FlowDayApp/FlowDay/internal/notify"
	"github.com/FlowDayApp/FlowDay/internal/planner"
	"github.com/FlowDayApp/FlowDay/internal/proactive"
	"github.com/FlowDayApp/FlowDay/internal/scheduler"
	"github.com/FlowDayApp/FlowDay/internal/store"
	"github.com/FlowDayApp/FlowDay/internal/weather"
)

// Constants for server configuration
const (
	// DefaultAddr is the default listen address for the API server.
	DefaultAddr = ":8080"
	// DefaultUserID is used when a request does not name a user.
	DefaultUserID int64 = 1
	// DefaultRequestTimeout bounds handler work that calls external services.
	DefaultRequestTimeout = 60 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address.
	Addr string
	// SweepSchedule is the cron expression for the proactive sweep.
	SweepSchedule string
	// Recipients maps user IDs to canonical nudge recipients. Users listed
	// here are covered by the proactive sweep.
	Recipients map[int64]string
	// Notifier is the nudge delivery channel. Defaults to log-only.
	Notifier notify.Service
	// GoogleCredentialsPath enables calendar sync when set.
	GoogleCredentialsPath string
	// Latitude and Longitude locate the process for weather lookups.
	Latitude  float64
	Longitude float64
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSweepSchedule sets the cron expression for the proactive sweep.
func WithSweepSchedule(expr string) Option {
	return func(o *Opts) { o.SweepSchedule = expr }
}

// WithRecipients sets the users covered by the proactive sweep.
func WithRecipients(recipients map[int64]string) Option {
	return func(o *Opts) { o.Recipients = recipients }
}

// WithNotifier sets the nudge delivery channel.
func WithNotifier(svc notify.Service) Option {
	return func(o *Opts) { o.Notifier = svc }
}

// WithGoogleCredentials enables Google Calendar sync.
func WithGoogleCredentials(path string) Option {
	return func(o *Opts) { o.GoogleCredentialsPath = path }
}

// WithLocation sets the coordinates used for weather lookups.
func WithLocation(latitude, longitude float64) Option {
	return func(o *Opts) {
		o.Latitude = latitude
		o.Longitude = longitude
	}
}

// Server holds the wired application modules behind the HTTP handlers.
type Server struct {
	st        store.Store
	assembler *daycontext.Assembler
	evaluator *proactive.Evaluator
	planner   *planner.Service
	notifier  notify.Service
	weather   *weather.Client
	calSync   *calsync.Service // nil when calendar sync is not configured
	latitude  float64
	longitude float64
}

// NewServer creates a Server over already-constructed modules.
func NewServer(st store.Store, assembler *daycontext.Assembler, evaluator *proactive.Evaluator, plan *planner.Service, notifier notify.Service, wx *weather.Client, cal *calsync.Service) *Server {
	return &Server{
		st:        st,
		assembler: assembler,
		evaluator: evaluator,
		planner:   plan,
		notifier:  notifier,
		weather:   wx,
		calSync:   cal,
	}
}

// Routes registers all API endpoints on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/moods", s.moodsHandler)
	mux.HandleFunc("/sleep", s.sleepHandler)
	mux.HandleFunc("/sleep/today", s.sleepTodayHandler)
	mux.HandleFunc("/events", s.eventsHandler)
	mux.HandleFunc("/events/today", s.eventsTodayHandler)
	mux.HandleFunc("/events/", s.eventSubtreeHandler)
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/chat/history", s.chatHistoryHandler)
	mux.HandleFunc("/chat/reset", s.chatResetHandler)
	mux.HandleFunc("/plan-day", s.planDayHandler)
	mux.HandleFunc("/affirmation", s.affirmationHandler)
	mux.HandleFunc("/morning-evaluation", s.morningEvaluationHandler)
	mux.HandleFunc("/context", s.contextHandler)
	mux.HandleFunc("/proactive/evaluate", s.proactiveEvaluateHandler)
	mux.HandleFunc("/calendar/auth-url", s.calendarAuthURLHandler)
	mux.HandleFunc("/calendar/exchange", s.calendarExchangeHandler)
	mux.HandleFunc("/calendar/sync", s.calendarSyncHandler)
	mux.HandleFunc("/health", s.healthHandler)
}

// Run builds the full application from options and serves HTTP until the
// listener fails. It owns construction order: store, generator, planner,
// sync, notification channel, sweep, then the server itself.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, options ...Option) error {
	var opts Opts
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.SweepSchedule == "" {
		opts.SweepSchedule = scheduler.DefaultSweepSchedule
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogService()
	}
	slog.Debug("api.Run: options resolved", "addr", opts.Addr, "sweepSchedule", opts.SweepSchedule,
		"recipients", len(opts.Recipients), "calendarSync", opts.GoogleCredentialsPath != "")

	st, err := openStore(storeOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	gen, err := genai.NewClient(genaiOpts...)
	if err != nil {
		// The planner degrades to fixed replies without a generator.
		slog.Warn("api.Run: text generation disabled", "error", err)
		gen = nil
	}

	assembler := daycontext.NewAssembler(st)
	evaluator := proactive.NewEvaluator()
	var planGen planner.Generator
	if gen != nil {
		planGen = gen
	}
	plan := planner.NewService(st, assembler, planGen)
	wx := weather.NewClient()

	var cal *calsync.Service
	if opts.GoogleCredentialsPath != "" {
		cal, err = calsync.NewService(st, calsync.WithCredentialsPath(opts.GoogleCredentialsPath))
		if err != nil {
			return fmt.Errorf("failed to configure calendar sync: %w", err)
		}
	}

	if err := opts.Notifier.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start notification channel: %w", err)
	}
	defer func() {
		if err := opts.Notifier.Stop(); err != nil {
			slog.Warn("api.Run: notifier shutdown failed", "error", err)
		}
	}()

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if len(opts.Recipients) > 0 {
		sweep := scheduler.NewSweep(assembler, evaluator, opts.Notifier, st, opts.Recipients)
		if err := sched.AddJob(opts.SweepSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
			defer cancel()
			sweep.Run(ctx)
		}); err != nil {
			return fmt.Errorf("failed to schedule proactive sweep: %w", err)
		}
		slog.Info("api.Run: proactive sweep scheduled", "schedule", opts.SweepSchedule, "users", len(opts.Recipients))
	}

	server := NewServer(st, assembler, evaluator, plan, opts.Notifier, wx, cal)
	server.latitude = opts.Latitude
	server.longitude = opts.Longitude

	mux := http.NewServeMux()
	server.Routes(mux)
	slog.Info("api.Run: FlowDay API listening", "addr", opts.Addr)
	return http.ListenAndServe(opts.Addr, mux)
}

// openStore picks a backend from the configured DSN. No DSN means the
// in-memory store, which is useful for development.
func openStore(storeOpts []store.Option) (store.Store, error) {
	var so store.Opts
	for _, opt := range storeOpts {
		opt(&so)
	}
	if so.DSN == "" {
		slog.Info("api.Run: no database configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(so.DSN) == "postgres" {
		return store.NewPostgresStore(storeOpts...)
	}
	return store.NewSQLiteStore(storeOpts...)
}
