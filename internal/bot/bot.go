package bot

import (
	"context"
	"sync"
	"time"

	"github.com/owslabs/whatsapp-ows-bridge/internal/chat"
	"github.com/owslabs/whatsapp-ows-bridge/internal/config"
	"github.com/owslabs/whatsapp-ows-bridge/internal/logger"
	"github.com/owslabs/whatsapp-ows-bridge/internal/watermark"
)

// BeforeEachFunc runs at the start of every poll cycle, before any group
// is scanned. The bridge uses it to rebuild the handler registry from the
// OWS directory and to post pending outbound notices.
type BeforeEachFunc func(ctx context.Context, b *Bot)

// Bot owns the message polling engine: it drives the chat surface,
// computes unread rows per group, parses them, dispatches matches and
// commits read progress. All mutable state lives here rather than in
// package globals, so a test can run several bots side by side.
type Bot struct {
	surface  chat.Surface
	marks    *watermark.Store
	registry *Registry
	log      *logger.Logger

	pollInterval      time.Duration
	maxScrollAttempts int

	beforeEach BeforeEachFunc

	// The chat surface allows exactly one open conversation; the status
	// server's /send endpoint is a second writer, so every surface access
	// goes through this mutex.
	surfaceMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// Stats is a snapshot of poll-loop progress for the status server.
type Stats struct {
	CyclesRun          int64     `json:"cycles_run"`
	MessagesDispatched int64     `json:"messages_dispatched"`
	RowsDropped        int64     `json:"rows_dropped"`
	LastCycleAt        time.Time `json:"last_cycle_at"`
	GroupsWatched      int       `json:"groups_watched"`
}

// New creates a bot polling the given surface.
func New(surface chat.Surface, marks *watermark.Store, cfg config.BotConfig, log *logger.Logger) *Bot {
	return &Bot{
		surface:           surface,
		marks:             marks,
		registry:          NewRegistry(),
		log:               log.Component("bot"),
		pollInterval:      cfg.PollInterval,
		maxScrollAttempts: cfg.MaxScrollAttempts,
	}
}

// Registry returns the bot's handler registry.
func (b *Bot) Registry() *Registry {
	return b.registry
}

// SetBeforeEach installs the per-cycle reconfiguration hook. Must be
// called before Run.
func (b *Bot) SetBeforeEach(fn BeforeEachFunc) {
	b.beforeEach = fn
}

// Status returns a snapshot of poll-loop progress.
func (b *Bot) Status() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.stats
}

// SendMessage posts a text message into the named group.
func (b *Bot) SendMessage(ctx context.Context, group, text string) error {
	b.surfaceMu.Lock()
	defer b.surfaceMu.Unlock()

	if err := b.surface.OpenConversation(ctx, group); err != nil {
		return err
	}
	return b.surface.SendText(ctx, text)
}

// Run drives the poll loop until the context is cancelled: reconfigure,
// scan and dispatch each registered group, then sleep the poll interval.
// Errors never cross group boundaries; a failing group is logged and the
// cycle moves on to the next one.
func (b *Bot) Run(ctx context.Context) {
	b.log.Infof("Poll loop started (interval %v)", b.pollInterval)

	for {
		if ctx.Err() != nil {
			b.log.Info("Poll loop stopped")
			return
		}

		b.runCycle(ctx)

		select {
		case <-ctx.Done():
			b.log.Info("Poll loop stopped")
			return
		case <-time.After(b.pollInterval):
		}
	}
}

// runCycle executes one full Configuring → Scanning → Dispatching pass.
func (b *Bot) runCycle(ctx context.Context) {
	if b.beforeEach != nil {
		b.beforeEach(ctx, b)
	}

	groups := b.registry.Groups()
	if len(groups) == 0 {
		b.log.Warn("No groups registered for watching")
	}

	for _, group := range groups {
		if ctx.Err() != nil {
			return
		}
		if err := b.pollGroup(ctx, group); err != nil {
			b.log.With("group", group).Error("Skipping group for this cycle", err)
		}
	}

	b.statsMu.Lock()
	b.stats.CyclesRun++
	b.stats.LastCycleAt = time.Now()
	b.stats.GroupsWatched = len(groups)
	b.statsMu.Unlock()
}

// pollGroup scans one group and dispatches its unread messages in display
// order. Each message's identifier is committed to the watermark store
// immediately after its handlers have been invoked, so a crash mid-group
// loses at most the in-flight message and never re-delivers a committed
// one.
func (b *Bot) pollGroup(ctx context.Context, group string) error {
	rows, err := func() ([]chat.Row, error) {
		b.surfaceMu.Lock()
		defer b.surfaceMu.Unlock()
		return b.unreadRows(ctx, group)
	}()
	if err != nil {
		return err
	}

	for _, row := range rows {
		msg, err := ParseRow(row, group)
		if err != nil {
			// The row is permanently skipped; it is never retried.
			b.log.With("group", group).With("data_id", row.DataID).Error("Dropping unparseable row", err)
			b.statsMu.Lock()
			b.stats.RowsDropped++
			b.statsMu.Unlock()
			continue
		}

		for _, herr := range b.registry.Dispatch(ctx, msg, b) {
			b.log.With("group", group).With("message_id", msg.ID).Error("Handler failed", herr)
		}

		// Commit only after every matching handler has been invoked:
		// at-least-once dispatch, at-most-once commit.
		if err := b.marks.Set(group, msg.ID); err != nil {
			return err
		}

		b.statsMu.Lock()
		b.stats.MessagesDispatched++
		b.statsMu.Unlock()
	}

	return nil
}
