// Package api provides HTTP handlers for FlowDay endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FlowDayApp/FlowDay/internal/analysis"
	"github.com/FlowDayApp/FlowDay/internal/calsync"
	"github.com/FlowDayApp/FlowDay/internal/models"
	"github.com/FlowDayApp/FlowDay/internal/store"
)

// DefaultMoodListLimit bounds GET /moods when no limit is given.
const DefaultMoodListLimit = 20

// userIDFromRequest resolves the acting user from the user_id query
// parameter, falling back to the default user.
func userIDFromRequest(r *http.Request) int64 {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return DefaultUserID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		slog.Warn("userIDFromRequest: invalid user_id, using default", "user_id", raw)
		return DefaultUserID
	}
	return id
}

// resolveUserID prefers an explicit body value over the query parameter.
func resolveUserID(r *http.Request, bodyUserID int64) int64 {
	if bodyUserID > 0 {
		return bodyUserID
	}
	return userIDFromRequest(r)
}

func (s *Server) moodsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.moodsHandler: processing mood request", "method", r.Method, "path", r.URL.Path)
	switch r.Method {
	case http.MethodPost:
		s.createMood(w, r)
	case http.MethodGet:
		s.listMoods(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.moodsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createMood(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  int64               `json:"user_id"`
		Symbol  string              `json:"symbol"`
		Note    string              `json:"note"`
		Context *models.MoodContext `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createMood: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	rec := models.MoodRecord{
		UserID:    resolveUserID(r, req.UserID),
		Symbol:    req.Symbol,
		Note:      req.Note,
		Timestamp: time.Now(),
	}
	if req.Context != nil {
		raw, err := json.Marshal(req.Context)
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid context payload"))
			return
		}
		rec.ContextJSON = string(raw)
	}
	if err := rec.Validate(); err != nil {
		slog.Warn("Server.createMood: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.CreateMood(&rec); err != nil {
		slog.Error("Server.createMood: failed to store mood", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store mood"))
		return
	}
	slog.Info("Server.createMood: mood recorded", "userID", rec.UserID, "symbol", rec.Symbol)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(rec))
}

func (s *Server) listMoods(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	limit := DefaultMoodListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	moods, err := s.st.GetMoods(userID, limit)
	if err != nil {
		slog.Error("Server.listMoods: failed to fetch moods", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch moods"))
		return
	}
	slog.Debug("Server.listMoods: moods fetched", "userID", userID, "count", len(moods))
	writeJSONResponse(w, http.StatusOK, models.Success(moods))
}

func (s *Server) sleepHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sleepHandler: processing sleep request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.sleepHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var rec models.SleepRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		slog.Warn("Server.sleepHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	rec.UserID = resolveUserID(r, rec.UserID)
	if rec.Date == "" {
		rec.Date = time.Now().Format(models.SleepDateLayout)
	}
	if err := rec.Validate(); err != nil {
		slog.Warn("Server.sleepHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.UpsertSleep(&rec); err != nil {
		slog.Error("Server.sleepHandler: failed to store sleep record", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store sleep record"))
		return
	}
	slog.Info("Server.sleepHandler: sleep recorded", "userID", rec.UserID, "date", rec.Date, "quality", rec.Quality)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(rec))
}

func (s *Server) sleepTodayHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sleepTodayHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := userIDFromRequest(r)
	rec, err := s.st.GetSleepForDate(userID, time.Now().Format(models.SleepDateLayout))
	if err != nil {
		slog.Error("Server.sleepTodayHandler: failed to fetch sleep record", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch sleep record"))
		return
	}
	if rec == nil {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("No sleep logged today", nil))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.eventsHandler: processing event request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.eventsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var ev models.CalendarEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		slog.Warn("Server.eventsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	ev.UserID = resolveUserID(r, ev.UserID)
	ev.Movability = models.CanonicalMovability(string(ev.Movability))
	if err := ev.Validate(); err != nil {
		slog.Warn("Server.eventsHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.CreateEvent(&ev); err != nil {
		slog.Error("Server.eventsHandler: failed to store event", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store event"))
		return
	}
	slog.Info("Server.eventsHandler: event created", "userID", ev.UserID, "eventID", ev.ID, "title", ev.Title)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(ev))
}

func (s *Server) eventsTodayHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.eventsTodayHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := userIDFromRequest(r)
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	events, err := s.st.GetEventsBetween(userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		slog.Error("Server.eventsTodayHandler: failed to fetch events", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch events"))
		return
	}
	slog.Debug("Server.eventsTodayHandler: events fetched", "userID", userID, "count", len(events))
	writeJSONResponse(w, http.StatusOK, models.Success(events))
}

// eventSubtreeHandler routes /events/{id} and /events/{id}/movability.
func (s *Server) eventSubtreeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.eventSubtreeHandler: processing request", "method", r.Method, "path", r.URL.Path)

	path := strings.TrimPrefix(r.URL.Path, "/events/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown event endpoint"))
		return
	}
	eventID, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid event ID"))
		return
	}

	if len(segments) == 1 {
		// /events/{id}
		switch r.Method {
		case http.MethodDelete:
			s.deleteEvent(w, r, eventID)
		default:
			w.Header().Set("Allow", http.MethodDelete)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}
	if len(segments) == 2 && segments[1] == "movability" {
		// /events/{id}/movability
		switch r.Method {
		case http.MethodPatch:
			s.setEventMovability(w, r, eventID)
		default:
			w.Header().Set("Allow", http.MethodPatch)
			writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
		}
		return
	}
	writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown event endpoint"))
}

func (s *Server) setEventMovability(w http.ResponseWriter, r *http.Request, eventID int64) {
	var req struct {
		UserID     int64  `json:"user_id"`
		Movability string `json:"movability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.setEventMovability: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if !models.IsValidMovability(models.Movability(req.Movability)) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrInvalidMovability.Error()))
		return
	}
	userID := resolveUserID(r, req.UserID)
	if err := s.st.SetEventMovability(userID, eventID, models.Movability(req.Movability)); err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Event not found"))
			return
		}
		slog.Error("Server.setEventMovability: failed to update event", "error", err, "eventID", eventID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update event"))
		return
	}
	slog.Info("Server.setEventMovability: movability updated", "userID", userID, "eventID", eventID, "movability", req.Movability)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Movability updated", nil))
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, eventID int64) {
	userID := userIDFromRequest(r)
	if err := s.st.DeleteEvent(userID, eventID); err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Event not found"))
			return
		}
		slog.Error("Server.deleteEvent: failed to delete event", "error", err, "eventID", eventID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete event"))
		return
	}
	slog.Info("Server.deleteEvent: event deleted", "userID", userID, "eventID", eventID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event deleted", nil))
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.chatHandler: processing chat request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.chatHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		UserID  int64  `json:"user_id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	userID := resolveUserID(r, req.UserID)

	ctx, cancel := context.WithTimeout(r.Context(), DefaultRequestTimeout)
	defer cancel()
	reply, err := s.planner.Chat(ctx, userID, req.Message)
	switch {
	case err == nil:
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"reply": reply}))
	case errors.Is(err, models.ErrEmptyChatContent), errors.Is(err, models.ErrChatContentTooLong):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	case errors.Is(err, models.ErrGenerationUnavailable):
		// The fallback reply is still delivered to the user.
		slog.Warn("Server.chatHandler: generation unavailable, returning fallback", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Text generation unavailable", map[string]string{"reply": reply}))
	default:
		slog.Error("Server.chatHandler: chat failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process chat message"))
	}
}

func (s *Server) chatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.chatHistoryHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := userIDFromRequest(r)
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	msgs, err := s.planner.History(userID, limit)
	if err != nil {
		slog.Error("Server.chatHistoryHandler: failed to fetch history", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch chat history"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(msgs))
}

func (s *Server) chatResetHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.chatResetHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := userIDFromRequest(r)
	if err := s.planner.ResetConversation(userID); err != nil {
		slog.Error("Server.chatResetHandler: failed to reset conversation", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset conversation"))
		return
	}
	// Proactive trigger state restarts with the conversation.
	s.evaluator.Reset(userID)
	slog.Info("Server.chatResetHandler: conversation reset", "userID", userID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation reset", nil))
}

func (s *Server) planDayHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.planDayHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := userIDFromRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), DefaultRequestTimeout)
	defer cancel()
	plan, err := s.planner.PlanDay(ctx, userID)
	s.writeGenerated(w, userID, "plan", plan, err)
}

func (s *Server) affirmationHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.affirmationHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := userIDFromRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), DefaultRequestTimeout)
	defer cancel()
	text, err := s.planner.Affirmation(ctx, userID)
	s.writeGenerated(w, userID, "affirmation", text, err)
}

// writeGenerated writes a generated text response, downgrading generator
// failures to a successful response carrying the fallback text.
func (s *Server) writeGenerated(w http.ResponseWriter, userID int64, key, text string, err error) {
	switch {
	case err == nil:
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{key: text}))
	case errors.Is(err, models.ErrGenerationUnavailable):
		slog.Warn("Server.writeGenerated: generation unavailable, returning fallback", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Text generation unavailable", map[string]string{key: text}))
	default:
		slog.Error("Server.writeGenerated: generation request failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate response"))
	}
}

func (s *Server) morningEvaluationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.morningEvaluationHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		UserID       int64   `json:"user_id"`
		Mood         string  `json:"mood"`
		SleepQuality string  `json:"sleep_quality"`
		SleepHours   float64 `json:"sleep_hours"`
		WakeUpTime   string  `json:"wake_up_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.morningEvaluationHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	userID := resolveUserID(r, req.UserID)

	sleepRec := models.SleepRecord{
		UserID:     userID,
		Date:       time.Now().Format(models.SleepDateLayout),
		Quality:    models.SleepQuality(req.SleepQuality),
		Hours:      req.SleepHours,
		WakeUpTime: req.WakeUpTime,
	}
	if err := sleepRec.Validate(); err != nil {
		slog.Warn("Server.morningEvaluationHandler: sleep validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.UpsertSleep(&sleepRec); err != nil {
		slog.Error("Server.morningEvaluationHandler: failed to store sleep record", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store sleep record"))
		return
	}

	// Weather is best effort; the evaluation proceeds without it.
	var conditions string
	if s.weather != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		summary, err := s.weather.Current(ctx, s.latitude, s.longitude)
		cancel()
		if err != nil {
			slog.Warn("Server.morningEvaluationHandler: weather lookup failed", "error", err)
		} else {
			conditions = summary.String()
		}
	}

	moodCtx := models.MoodContext{
		Type:         "morning_evaluation",
		SleepQuality: string(sleepRec.Quality),
		SleepHours:   sleepRec.Hours,
		WakeUpTime:   sleepRec.WakeUpTime,
		Weather:      conditions,
	}
	rawCtx, err := json.Marshal(moodCtx)
	if err != nil {
		slog.Error("Server.morningEvaluationHandler: failed to encode mood context", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record evaluation"))
		return
	}
	moodRec := models.MoodRecord{
		UserID:      userID,
		Symbol:      req.Mood,
		ContextJSON: string(rawCtx),
		Timestamp:   time.Now(),
	}
	if err := moodRec.Validate(); err != nil {
		slog.Warn("Server.morningEvaluationHandler: mood validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.CreateMood(&moodRec); err != nil {
		slog.Error("Server.morningEvaluationHandler: failed to store mood", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store mood"))
		return
	}

	energy, timing := analysis.ClassifyEnergy(sleepRec.Quality, sleepRec.Hours)
	result := map[string]interface{}{
		"sleep":   sleepRec,
		"mood":    moodRec,
		"energy":  energy,
		"timing":  timing,
		"weather": conditions,
	}
	slog.Info("Server.morningEvaluationHandler: evaluation recorded", "userID", userID, "energy", energy)
	writeJSONResponse(w, http.StatusCreated, models.Recorded(result))
}

func (s *Server) contextHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.contextHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := userIDFromRequest(r)
	res, err := s.assembler.BuildContext(userID, time.Now())
	if err != nil {
		slog.Error("Server.contextHandler: context assembly failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to assemble context"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(res))
}

func (s *Server) proactiveEvaluateHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.proactiveEvaluateHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := userIDFromRequest(r)
	res, err := s.assembler.BuildContext(userID, time.Now())
	if err != nil {
		slog.Error("Server.proactiveEvaluateHandler: context assembly failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to assemble context"))
		return
	}
	decision := s.evaluator.Evaluate(userID, res.Snapshot)
	// Returning the decision is the delivery here, so commit it right away.
	s.evaluator.MarkDelivered(userID, decision)
	slog.Info("Server.proactiveEvaluateHandler: evaluation complete", "userID", userID, "shouldSend", decision.ShouldSend, "reason", decision.Reason)
	writeJSONResponse(w, http.StatusOK, models.Success(decision))
}

func (s *Server) calendarAuthURLHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.calendarAuthURLHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.calSync == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Calendar sync not configured"))
		return
	}
	state := r.URL.Query().Get("state")
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"auth_url": s.calSync.AuthURL(state)}))
}

func (s *Server) calendarExchangeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.calendarExchangeHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.calSync == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Calendar sync not configured"))
		return
	}
	var req struct {
		UserID int64  `json:"user_id"`
		Code   string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.calendarExchangeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Code == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: code"))
		return
	}
	userID := resolveUserID(r, req.UserID)
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	if err := s.calSync.ExchangeCode(ctx, userID, req.Code); err != nil {
		slog.Error("Server.calendarExchangeHandler: exchange failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to exchange authorization code"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Calendar linked", nil))
}

func (s *Server) calendarSyncHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.calendarSyncHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.calSync == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Calendar sync not configured"))
		return
	}
	userID := userIDFromRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), DefaultRequestTimeout)
	defer cancel()
	synced, err := s.calSync.Sync(ctx, userID, time.Now())
	if err != nil {
		if errors.Is(err, calsync.ErrNotAuthorized) {
			writeJSONResponse(w, http.StatusUnauthorized, models.Error("Calendar not linked for this user"))
			return
		}
		slog.Error("Server.calendarSyncHandler: sync failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to sync calendar"))
		return
	}
	slog.Info("Server.calendarSyncHandler: sync complete", "userID", userID, "synced", synced)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Calendar synced", map[string]int{"synced": synced}))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	// A cheap read doubles as a storage liveness probe.
	if _, err := s.st.GetMoods(DefaultUserID, 1); err != nil {
		slog.Warn("Server.healthHandler: storage probe failed", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Storage unavailable"
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}
