package chat

import "context"

// Row is one rendered message element read from an open conversation.
// It is the raw material the row parser turns into a bot.Message.
type Row struct {
	// DataID is the element identifier WhatsApp Web assigns to the row.
	// It is globally unique per surface and encodes the sender number.
	DataID string `json:"data_id"`

	// PrePlainText is the pre-formatted timestamp+author attribute
	// attached to text-bearing rows, e.g. "[9:49 AM, 4/28/2023] Boss Moses: ".
	// Empty when the row carries no text container.
	PrePlainText string `json:"pre_plain_text"`

	// Text is the visible message text. Emoji-only bodies render as
	// images, so Text comes back empty for them.
	Text string `json:"text"`
}

// Surface is the UI automation layer exposing conversation search, row
// enumeration and message composition. Exactly one conversation is open
// at a time; every row operation applies to the most recently opened one.
type Surface interface {
	// OpenConversation locates the search input, types the group name and
	// activates the conversation whose title matches exactly.
	OpenConversation(ctx context.Context, group string) error

	// ScrollToTop issues one scroll-to-top action on the conversation
	// pane, prompting the surface to lazily load older history.
	ScrollToTop(ctx context.Context) error

	// ScrollToBottom restores the viewport to the newest messages.
	ScrollToBottom(ctx context.Context) error

	// HasRow reports whether the row with the given identifier is
	// currently loaded.
	HasRow(ctx context.Context, dataID string) (bool, error)

	// AtTop reports whether the top-of-conversation sentinel (the
	// encryption notice) is loaded, marking the true start of history.
	AtTop(ctx context.Context) (bool, error)

	// IncomingRowsAfter returns, oldest first, every incoming (not
	// self-sent) row strictly after the row identified by afterID.
	// An empty afterID selects all loaded incoming rows.
	IncomingRowsAfter(ctx context.Context, afterID string) ([]Row, error)

	// SendText types text into the compose box of the open conversation,
	// preserving line breaks, and sends it.
	SendText(ctx context.Context, text string) error
}
