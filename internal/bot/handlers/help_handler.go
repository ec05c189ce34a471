package handlers

import (
	"context"
	"fmt"
	"strings"
)

// NewHelpHandler returns the handler for the commands command. list supplies
// the registered commands at call time.
func NewHelpHandler(deps HandlerDeps, list func() []RegisteredHandler) HandlerFunc {
	return helpHandler{deps: deps, list: list}.Handle
}

type helpHandler struct {
	deps HandlerDeps
	list func() []RegisteredHandler
}

func (h helpHandler) Handle(ctx context.Context, req *Request) error {
	log := h.deps.Logger.With("handler", "help")
	log.InfoContext(ctx, "Handling commands command")

	var sb strings.Builder
	sb.WriteString("📋 **Available Commands:**\n")
	for _, c := range h.list() {
		fmt.Fprintf(&sb, "\n`%s%s%s`\n%s\n", req.Prefix, c.displayName(req.Prefix), usageSuffix(c.Usage), c.Description)
		if c.Example != "" {
			fmt.Fprintf(&sb, "Example: `%s%s`\n", req.Prefix, exampleFor(c, req.Prefix))
		}
	}
	sb.WriteString("\n🔐 All commands require Mod or Dev role")

	req.reply(ctx, log, h.deps.messageLimit(), sb.String())
	return nil
}

func exampleFor(c RegisteredHandler, prefix string) string {
	if name := c.displayName(prefix); name != c.Name {
		return name + strings.TrimPrefix(c.Example, c.Name)
	}
	return c.Example
}
