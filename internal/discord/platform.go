package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/threadscribe/internal/chat"
)

// CheckThread accepts thread channels only.
func (a *Adapter) CheckThread(ctx context.Context, threadID int64) error {
	ch, err := a.session.Channel(strconv.FormatInt(threadID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err)
	}
	if !ch.IsThread() {
		return chat.ErrNotThread
	}
	return nil
}

// FetchMessage retrieves one message, preferring the state cache.
func (a *Adapter) FetchMessage(ctx context.Context, threadID int64, messageID string) (*chat.Message, error) {
	channelID := strconv.FormatInt(threadID, 10)
	if m, err := a.session.State.Message(channelID, messageID); err == nil {
		return a.toMessage(m), nil
	}
	m, err := a.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return a.toMessage(m), nil
}

// History walks the thread oldest first.
func (a *Adapter) History(ctx context.Context, threadID int64, fn func(*chat.Message) error) error {
	channelID := strconv.FormatInt(threadID, 10)
	fetch := func(ctx context.Context, after string, limit int) ([]*discordgo.Message, error) {
		page, err := a.session.ChannelMessages(channelID, limit, "", after, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
		return page, nil
	}
	return walkHistory(ctx, fetch, a.opts.HistoryPageMax, func(m *discordgo.Message) error {
		return fn(a.toMessage(m))
	})
}

// pageFunc returns up to limit messages posted after the given id, in any order.
type pageFunc func(ctx context.Context, after string, limit int) ([]*discordgo.Message, error)

// walkHistory pages forward from the start of a channel, calling fn on each
// message in ascending id order.
func walkHistory(ctx context.Context, fetch pageFunc, pageSize int, fn func(*discordgo.Message) error) error {
	after := "0"
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := fetch(ctx, after, pageSize)
		if err != nil {
			return fmt.Errorf("failed to fetch messages after %s: %w", after, err)
		}
		if len(page) == 0 {
			return nil
		}

		// Discord returns each page newest first.
		slices.SortFunc(page, func(x, y *discordgo.Message) int {
			return compareSnowflakes(x.ID, y.ID)
		})
		for _, m := range page {
			if err := fn(m); err != nil {
				return err
			}
		}

		after = page[len(page)-1].ID
		if len(page) < pageSize {
			return nil
		}
	}
}

// compareSnowflakes orders decimal ids numerically.
func compareSnowflakes(x, y string) int {
	if len(x) != len(y) {
		return len(x) - len(y)
	}
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func mapError(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Response == nil {
		return err
	}
	switch rest.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", chat.ErrNotFound, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", chat.ErrForbidden, err)
	default:
		return err
	}
}
