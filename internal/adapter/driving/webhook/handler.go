// Package webhook implements the HTTP driving adapter receiving GitHub and
// Slack event deliveries. Handlers verify, parse, enqueue, and acknowledge;
// all processing happens on the dispatcher's workers.
package webhook

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/prbridge/internal/application"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// maxBodyBytes caps how much of a webhook body is read. Both platforms stay
// well under this for legitimate deliveries.
const maxBodyBytes = 1 << 20

// Handler is the webhook driving adapter.
type Handler struct {
	githubSecret  string
	signingSecret string
	settleDelay   time.Duration

	dispatcher *application.Dispatcher
	lifecycle  *application.LifecycleService
	threads    *application.ThreadResolver
	relay      *application.RelayService
	prs        driven.PRStore
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	githubSecret string,
	signingSecret string,
	settleDelay time.Duration,
	dispatcher *application.Dispatcher,
	lifecycle *application.LifecycleService,
	threads *application.ThreadResolver,
	relay *application.RelayService,
	prs driven.PRStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		githubSecret:  githubSecret,
		signingSecret: signingSecret,
		settleDelay:   settleDelay,
		dispatcher:    dispatcher,
		lifecycle:     lifecycle,
		threads:       threads,
		relay:         relay,
		prs:           prs,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhooks/github", h.GitHubWebhook)
	mux.HandleFunc("POST /webhooks/slack/events", h.SlackEvents)
	mux.HandleFunc("POST /webhooks/slack/interactions", h.SlackInteractions)
	mux.HandleFunc("POST /webhooks/slack/commands", h.SlackCommands)
	mux.HandleFunc("GET /healthz", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports liveness plus dispatcher backlog and per-kind job outcomes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		QueueDepth: h.dispatcher.QueueDepth(),
		Jobs:       h.dispatcher.Stats(),
		Time:       time.Now().UTC().Format(time.RFC3339),
	})
}
