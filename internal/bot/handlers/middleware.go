package handlers

import (
	"context"
	"errors"
)

var errNotAuthorized = errors.New("not authorized")

// PrivilegedOnly rejects invokers without a Dev or Mod role, the
// manage-messages permission or ownership of the guild or chat.
func PrivilegedOnly(deps HandlerDeps) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			if deps.Roles.Privileged(req.Member) {
				return next(ctx, req)
			}

			log := deps.Logger.With("middleware", "PrivilegedOnly")
			var who string
			if req.Member != nil {
				who = req.Member.Name
			}
			log.WarnContext(ctx, "Unauthorized command attempt", "command", req.Command, "author", who)

			req.reply(ctx, log, deps.messageLimit(), deps.Config.Messages.NotAuthorized)
			return errNotAuthorized
		}
	}
}
