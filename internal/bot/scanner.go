package bot

import (
	"context"

	"github.com/owslabs/whatsapp-ows-bridge/internal/chat"
	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
)

// unreadRows opens the group conversation and returns, oldest first, the
// incoming rows strictly after the group's watermark. With no recorded
// watermark (or when the watermark row has been deleted from the
// conversation) it returns all incoming rows reachable by scroll-back.
//
// The chat surface lazily loads history, so the scan repeatedly scrolls
// the pane to the top until the watermark row is loaded or the
// encryption-notice sentinel marks the true start of the conversation.
// The scroll loop is bounded: exhausting the configured attempt limit
// yields a SCROLL_TIMEOUT error instead of blocking forever on a surface
// that never reaches a stable state.
func (b *Bot) unreadRows(ctx context.Context, group string) ([]chat.Row, error) {
	if err := b.surface.OpenConversation(ctx, group); err != nil {
		return nil, err
	}

	mark, hasMark, err := b.marks.Get(group)
	if err != nil {
		return nil, err
	}

	markLoaded := false
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if hasMark {
			present, err := b.surface.HasRow(ctx, mark)
			if err != nil {
				return nil, err
			}
			if present {
				markLoaded = true
				break
			}
		}

		atTop, err := b.surface.AtTop(ctx)
		if err != nil {
			return nil, err
		}
		if atTop {
			break
		}

		if attempt >= b.maxScrollAttempts {
			return nil, errors.ScrollTimeout(group, attempt)
		}

		if err := b.surface.ScrollToTop(ctx); err != nil {
			return nil, err
		}
	}

	// Restore the viewport before selecting rows.
	if err := b.surface.ScrollToBottom(ctx); err != nil {
		return nil, err
	}

	afterID := ""
	if markLoaded {
		afterID = mark
	}
	return b.surface.IncomingRowsAfter(ctx, afterID)
}
