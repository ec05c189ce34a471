package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/edgard/threadscribe/internal/metrics"
)

// RegisteredHandler represents a command handler with its documentation and middleware.
type RegisteredHandler struct {
	// Name is the command as typed with the "!" prefix.
	Name string
	// SlashName is the command on platforms that only allow lower-case slash
	// commands, such as Telegram.
	SlashName   string
	Usage       string
	Description string
	Example     string
	Handler     HandlerFunc
	Middleware  []Middleware
}

func (h RegisteredHandler) displayName(prefix string) string {
	if prefix == "/" && h.SlashName != "" {
		return h.SlashName
	}
	return h.Name
}

// RegisterAllCommands returns every command in help order.
func RegisterAllCommands(deps HandlerDeps) []RegisteredHandler {
	privileged := []Middleware{PrivilegedOnly(deps)}

	handlers := []RegisteredHandler{
		{
			Name:        "saveThread",
			SlashName:   "save_thread",
			Usage:       `<thread_id> "nickname"`,
			Description: "Save a thread for monitoring and import its history",
			Example:     "saveThread 123456789 general-feedback",
			Handler:     NewSaveThreadHandler(deps),
		},
		{
			Name:        "sum",
			SlashName:   "sum",
			Usage:       `"nickname" [timeframe]`,
			Description: "Generate a summary for a stored thread (timeframe such as 24h, 3d or 1w; default 24h, at most 30 days)",
			Example:     "sum general-feedback 3d",
			Handler:     NewSumHandler(deps),
		},
		{
			Name:        "listThreads",
			SlashName:   "list_threads",
			Description: "Show all watched threads and their status",
			Handler:     NewListThreadsHandler(deps),
		},
		{
			Name:        "setDescription",
			SlashName:   "set_description",
			Usage:       `"nickname" <description>`,
			Description: "Set the context given to the AI when summarizing a thread",
			Example:     `setDescription general-feedback "Feedback on the 1.2 beta"`,
			Handler:     NewSetDescriptionHandler(deps),
		},
		{
			Name:        "unwatch",
			SlashName:   "unwatch",
			Usage:       `"nickname"`,
			Description: "Stop watching a thread and delete its stored messages",
			Handler:     NewUnwatchHandler(deps),
		},
	}

	for i := range handlers {
		handlers[i].Middleware = privileged
	}
	return handlers
}

// Router dispatches requests to registered handlers.
type Router struct {
	deps     HandlerDeps
	ordered  []RegisteredHandler
	handlers map[string]RegisteredHandler
}

// NewRouter registers every command, including the help command.
func NewRouter(deps HandlerDeps) *Router {
	r := &Router{deps: deps, handlers: make(map[string]RegisteredHandler)}

	help := RegisteredHandler{
		Name:        "commands",
		SlashName:   "commands",
		Description: "Show this help message",
		Handler:     NewHelpHandler(deps, r.Handlers),
		Middleware:  []Middleware{PrivilegedOnly(deps)},
	}
	r.ordered = append([]RegisteredHandler{help}, RegisterAllCommands(deps)...)

	for _, h := range r.ordered {
		r.handlers[strings.ToLower(h.Name)] = h
		r.handlers[strings.ToLower(h.SlashName)] = h
	}
	return r
}

// Handlers lists the commands in help order.
func (r *Router) Handlers() []RegisteredHandler {
	return r.ordered
}

// Dispatch runs the handler for req. It returns false when no command has
// that name; command names are matched case-insensitively.
func (r *Router) Dispatch(ctx context.Context, req *Request) bool {
	h, ok := r.handlers[strings.ToLower(req.Command)]
	if !ok {
		return false
	}

	req.handler = h
	log := r.deps.Logger.With("command", h.Name)
	handler := h.Handler
	for i := len(h.Middleware) - 1; i >= 0; i-- {
		handler = h.Middleware[i](handler)
	}

	started := time.Now()
	err := handler(ctx, req)
	switch {
	case errors.Is(err, errNotAuthorized):
		metrics.RecordCommand(h.Name, "denied")
	case err != nil:
		metrics.RecordCommand(h.Name, "error")
		log.ErrorContext(ctx, "Command failed", "error", err, "duration", time.Since(started))
		req.reply(ctx, log, r.deps.messageLimit(), r.deps.Config.Messages.GeneralError)
	default:
		metrics.RecordCommand(h.Name, "ok")
		log.DebugContext(ctx, "Command handled", "duration", time.Since(started))
	}
	return true
}
