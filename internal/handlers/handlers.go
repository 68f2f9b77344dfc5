package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Billy-Davies-2/xpulse-cards/internal/auth"
	"github.com/Billy-Davies-2/xpulse-cards/internal/command"
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/progression"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

const maxBodyBytes = 1 << 16

// APIHandlers contains all API handler methods
type APIHandlers struct {
	dispatcher *command.Dispatcher
	engine     *progression.Engine
	board      command.Leaderboard
	pubsub     *pubsub.PubSub
	authn      auth.Provider
}

// NewAPIHandlers creates a new API handlers instance. board may be nil.
func NewAPIHandlers(dispatcher *command.Dispatcher, engine *progression.Engine, board command.Leaderboard, ps *pubsub.PubSub, authn auth.Provider) *APIHandlers {
	return &APIHandlers{
		dispatcher: dispatcher,
		engine:     engine,
		board:      board,
		pubsub:     ps,
		authn:      authn,
	}
}

// Register mounts the API routes on mux. Everything except the leaderboard
// needs a session or bearer token.
func (h *APIHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/command", auth.Middleware(h.authn, h.Command))
	mux.HandleFunc("/api/profile", auth.Middleware(h.authn, h.Profile))
	mux.HandleFunc("/api/leaderboard", h.Leaderboard)
	mux.HandleFunc("/api/events", auth.Middleware(h.authn, h.EventsSSE))
}

// Command runs one command line, e.g. {"line":";train"}, as the
// authenticated user
func (h *APIHandlers) Command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", auth.ErrUnauthenticated.Error())
		return
	}

	var req struct {
		Line string `json:"line"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Warn("Failed to decode command request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), user.ID, req.Line)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Profile returns the profile snapshot for ?userId=, default the caller
func (h *APIHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		if user := auth.UserFromContext(r.Context()); user != nil {
			userID = user.ID
		}
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation", "userId is required")
		return
	}

	view, err := h.engine.Profile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Leaderboard returns the top cards, ?limit= defaults to 10
func (h *APIHandlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.board == nil {
		writeDomainError(w, command.ErrLeaderboardUnavailable)
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "validation", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := h.board.TopCards(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to load leaderboard", "error", err)
		writeDomainError(w, fmt.Errorf("%w: %v", progression.ErrStorageUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// EventsSSE streams progression events as server-sent events
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	eventChan := h.pubsub.Subscribe()
	defer h.pubsub.Unsubscribe(eventChan)

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flush(w)

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flush(w)
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flush(w)
		}
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// writeDomainError maps engine and dispatch errors to HTTP statuses
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("Unexpected API error", "error", err)
		writeError(w, status, code, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, command.ErrNotCommand):
		return http.StatusBadRequest, "not_command"
	case errors.Is(err, command.ErrUnknownCommand):
		return http.StatusBadRequest, "unknown_command"
	case errors.Is(err, progression.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, command.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, progression.ErrCardNotFound):
		return http.StatusNotFound, "card_not_found"
	case errors.Is(err, progression.ErrItemNotFound):
		return http.StatusNotFound, "item_not_found"
	case errors.Is(err, progression.ErrAlreadyHasCard):
		return http.StatusConflict, "already_has_card"
	case errors.Is(err, progression.ErrCardNotOwned):
		return http.StatusConflict, "card_not_owned"
	case errors.Is(err, progression.ErrNoCardSelected):
		return http.StatusConflict, "no_card_selected"
	case errors.Is(err, progression.ErrNoWorkAssigned):
		return http.StatusConflict, "no_work_assigned"
	case errors.Is(err, progression.ErrUnknownRank):
		return http.StatusConflict, "unknown_rank"
	case errors.Is(err, progression.ErrStorageUnavailable),
		errors.Is(err, command.ErrLeaderboardUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// Check probes one dependency
type Check func(ctx context.Context) error

// HealthHandlers serves health, liveness and readiness probes
type HealthHandlers struct {
	checks   map[string]Check
	critical map[string]bool
}

// NewHealthHandlers creates health handlers with no checks
func NewHealthHandlers() *HealthHandlers {
	return &HealthHandlers{
		checks:   make(map[string]Check),
		critical: make(map[string]bool),
	}
}

// AddCheck registers a dependency check. Critical checks gate readiness.
func (h *HealthHandlers) AddCheck(name string, critical bool, check Check) {
	h.checks[name] = check
	h.critical[name] = critical
}

// Register mounts the probe routes on mux
func (h *HealthHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", h.Health)
	mux.HandleFunc("/healthz", h.Liveness) // Kubernetes liveness probe
	mux.HandleFunc("/readyz", h.Readiness) // Kubernetes readiness probe
}

// Health reports every dependency check
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{}, len(h.checks))

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks[name] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			continue
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Liveness returns 200 while the process runs, without checking dependencies
func (h *HealthHandlers) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness returns 200 when every critical dependency answers
func (h *HealthHandlers) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if !h.critical[name] {
			continue
		}
		if err := check(ctx); err != nil {
			logger.Warn("Readiness check failed", "check", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":    "not_ready",
				"reason":    name + "_unavailable",
				"timestamp": time.Now().Unix(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
