package bridge

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/owslabs/whatsapp-ows-bridge/internal/bot"
	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
	"github.com/owslabs/whatsapp-ows-bridge/internal/journal"
	"github.com/owslabs/whatsapp-ows-bridge/internal/logger"
	"github.com/owslabs/whatsapp-ows-bridge/internal/ows"
)

// Bridge wires the bot to OWS. It rebuilds the handler registry from the
// group/contact directory on every cycle, captures matching messages back
// to OWS, and posts pending outbound notices into their groups.
type Bridge struct {
	ows     *ows.Client
	journal *journal.Journal
	log     *logger.Logger

	mu        sync.Mutex
	directory ows.GroupContacts // last successfully fetched directory
	queue     []ows.Notice      // push-style notices awaiting the next cycle
}

// New creates a bridge.
func New(owsClient *ows.Client, jrnl *journal.Journal, log *logger.Logger) *Bridge {
	return &Bridge{
		ows:     owsClient,
		journal: jrnl,
		log:     log.Component("bridge"),
	}
}

// BeforeEach is the bot's per-cycle reconfiguration hook: refresh the
// registry from the directory, then drain outbound notices.
func (br *Bridge) BeforeEach(ctx context.Context, b *bot.Bot) {
	br.reconfigure(ctx, b)
	br.postNotices(ctx, b)
}

// reconfigure fetches the directory and rebuilds the registry: one
// registration per group, filtered to that group's contact numbers. A
// fetch failure aborts only the reconfiguration step; the previous
// registrations stay in force for this cycle.
func (br *Bridge) reconfigure(ctx context.Context, b *bot.Bot) {
	directory, err := br.ows.FetchGroupContacts(ctx)
	if err != nil {
		br.log.Error("Directory fetch failed, keeping previous registrations", err)
		return
	}

	if len(directory) == 0 {
		br.log.Warn("No groups and contacts configured in OWS")
	}

	br.mu.Lock()
	br.directory = directory
	br.mu.Unlock()

	registry := b.Registry()
	registry.Clear()
	for group, contacts := range directory {
		senders := make([]string, 0, len(contacts))
		for num := range contacts {
			senders = append(senders, num)
		}
		registry.Register(group, senders, br.captureMessage)
	}
}

// captureMessage is the registered handler callback: enrich the sender
// with its directory display name, submit the capture to OWS, and record
// it in the journal.
func (br *Bridge) captureMessage(ctx context.Context, msg bot.Message, _ *bot.Bot) error {
	contact := strings.TrimSpace(br.displayName(msg.Group, msg.Sender) + " " + msg.Sender)

	capture := ows.Capture{
		Contact:     contact,
		Group:       msg.Group,
		Message:     msg.Text,
		MessageTime: msg.Time,
		CreateTime:  time.Now().Format(bot.TimeLayout),
	}
	if err := br.ows.SubmitMessage(ctx, capture); err != nil {
		return err
	}

	// The submission already succeeded; a journal hiccup must not fail
	// the handler and trigger noise about an otherwise delivered message.
	if err := br.journal.RecordCapture(ctx, msg.ID, msg.Group, msg.Sender); err != nil {
		br.log.With("message_id", msg.ID).Error("Failed to journal capture", err)
	}
	return nil
}

// displayName looks a sender's name up in the last fetched directory.
func (br *Bridge) displayName(group, sender string) string {
	br.mu.Lock()
	defer br.mu.Unlock()

	if contacts, ok := br.directory[group]; ok {
		return contacts[sender]
	}
	return ""
}

// EnqueueNotice accepts a push-style outbound notice (from the webhook
// endpoint) for posting on the next cycle.
func (br *Bridge) EnqueueNotice(n ows.Notice) {
	br.mu.Lock()
	defer br.mu.Unlock()
	br.queue = append(br.queue, n)
}

// drainQueue removes and returns all queued notices.
func (br *Bridge) drainQueue() []ows.Notice {
	br.mu.Lock()
	defer br.mu.Unlock()
	queued := br.queue
	br.queue = nil
	return queued
}

// postNotices fetches pending outbound notices, matches each to a watched
// group by its SBC tag, posts the notice text into that group, and marks
// the notice id posted so a restart never double-posts. Failures are
// per-notice; the rest of the batch still goes out.
func (br *Bridge) postNotices(ctx context.Context, b *bot.Bot) {
	notices, err := br.ows.FetchNotices(ctx)
	if err != nil {
		br.log.Error("Notice fetch failed", err)
		notices = nil
	}
	notices = append(notices, br.drainQueue()...)
	if len(notices) == 0 {
		return
	}

	groups := b.Registry().Groups()

	for _, notice := range notices {
		if notice.SBC == "" || notice.Context == "" {
			br.log.Warnf("Skipping malformed notice %s", notice.ID)
			continue
		}

		group := matchGroup(groups, notice.SBC)
		if group == "" {
			br.log.Debugf("Notice %s matches no watched group (sbc %q)", notice.ID, notice.SBC)
			continue
		}

		id := notice.ID.String()
		posted, err := br.journal.NoticePosted(ctx, id)
		if err != nil {
			br.log.With("notice_id", id).Error("Failed to check notice journal", err)
			continue
		}
		if posted {
			continue
		}

		if err := b.SendMessage(ctx, group, notice.Context); err != nil {
			br.log.Error("Notice posting failed", errors.NoticePostFailed(err, id, group))
			continue
		}
		if err := br.journal.MarkNoticePosted(ctx, id, group); err != nil {
			br.log.With("notice_id", id).Error("Failed to journal posted notice", err)
		}

		br.log.With("group", group).Infof("Posted notice %s", id)
	}
}

// matchGroup returns the first watched group whose title contains the
// notice's SBC tag.
func matchGroup(groups []string, sbc string) string {
	for _, group := range groups {
		if strings.Contains(group, sbc) {
			return group
		}
	}
	return ""
}
