package chat

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/mdp/qrterminal/v3"

	"github.com/owslabs/whatsapp-ows-bridge/internal/config"
	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
	"github.com/owslabs/whatsapp-ows-bridge/internal/logger"
)

const whatsAppURL = "https://web.whatsapp.com"

// Selectors for the WhatsApp Web UI. These track the markup the scraper
// depends on; when WhatsApp changes its frontend these are the first
// thing to revisit.
const (
	searchBoxSelector = `[title="Search input textbox"]`
	composeBoxXPath   = `//div[@title="Type a message"]`
	panelSelector     = `[data-testid='conversation-panel-messages']`
	sidePanelSelector = `#side`
	qrCodeSelector    = `div[data-ref]`
)

// WebClient drives WhatsApp Web through a Chrome instance and implements
// the Surface interface on top of it.
type WebClient struct {
	cfg config.BrowserConfig
	log *logger.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	allocCancel  context.CancelFunc
	currentGroup string
}

// NewWebClient creates an unstarted WebClient.
func NewWebClient(cfg config.BrowserConfig, log *logger.Logger) *WebClient {
	return &WebClient{
		cfg: cfg,
		log: log.Component("surface"),
	}
}

// Start launches the browser, navigates to WhatsApp Web and waits for an
// authenticated session. Startup failure here is the one fatal error of
// the whole process.
func (c *WebClient) Start(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("accept-lang", "en-us"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserDataDir(c.cfg.UserDataDir),
		chromedp.WindowSize(1200, 800),
	)
	if c.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	c.allocCancel = allocCancel
	c.ctx, c.cancel = chromedp.NewContext(allocCtx)

	c.log.Info("Opening WhatsApp Web...")
	if err := chromedp.Run(c.ctx, chromedp.Navigate(whatsAppURL)); err != nil {
		return fmt.Errorf("failed to navigate to WhatsApp Web: %w", err)
	}

	return c.waitForLogin(ctx)
}

// waitForLogin waits until the chat list pane appears, rendering the QR
// code in the terminal whenever a fresh one is displayed.
func (c *WebClient) waitForLogin(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.LoginTimeout)
	lastQR := ""

	for {
		var loggedIn bool
		if err := chromedp.Run(c.ctx,
			chromedp.Evaluate(fmt.Sprintf(`!!document.querySelector(%s)`, strconv.Quote(sidePanelSelector)), &loggedIn),
		); err != nil {
			return fmt.Errorf("failed to probe login state: %w", err)
		}
		if loggedIn {
			c.log.Info("WhatsApp Web session ready")
			return nil
		}

		if c.cfg.TerminalQR {
			qr, err := c.readQRPayload()
			if err == nil && qr != "" && qr != lastQR {
				lastQR = qr
				c.renderQR(qr)
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %v waiting for WhatsApp Web login", c.cfg.LoginTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// readQRPayload reads the current login QR payload from the page, if a
// QR screen is showing.
func (c *WebClient) readQRPayload() (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? (el.getAttribute('data-ref') || '') : '';
	})()`, strconv.Quote(qrCodeSelector))

	var payload string
	if err := chromedp.Run(c.ctx, chromedp.Evaluate(js, &payload)); err != nil {
		return "", err
	}
	return payload, nil
}

func (c *WebClient) renderQR(payload string) {
	fmt.Println("\n" + strings.Repeat("=", 64))
	fmt.Println("SCAN QR CODE WITH WHATSAPP MOBILE APP")
	fmt.Println(strings.Repeat("=", 64))

	qrterminal.GenerateWithConfig(payload, qrterminal.Config{
		Level:      qrterminal.M,
		Writer:     os.Stdout,
		HalfBlocks: true,
		QuietZone:  1,
	})

	fmt.Println(strings.Repeat("=", 64))
	fmt.Println("Open WhatsApp > Settings > Linked Devices > Link a Device")
	fmt.Println(strings.Repeat("=", 64) + "\n")
}

// Stop closes the browser.
func (c *WebClient) Stop() {
	if c.cancel != nil {
		c.log.Info("Closing browser...")
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

// OpenConversation implements Surface.
func (c *WebClient) OpenConversation(ctx context.Context, group string) error {
	// The search box may hold text from the previous iteration; select
	// all and delete before typing.
	err := chromedp.Run(c.ctx,
		chromedp.WaitVisible(searchBoxSelector, chromedp.ByQuery),
		chromedp.Click(searchBoxSelector, chromedp.ByQuery),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(2)), // Ctrl+A
		chromedp.KeyEvent("\b"),
		chromedp.SendKeys(searchBoxSelector, group, chromedp.ByQuery),
	)
	if err != nil {
		return errors.SurfaceError(err, "failed to drive the search box")
	}

	// Only an exact title match counts.
	titleSelector := fmt.Sprintf(`#pane-side span[title=%s]`, strconv.Quote(group))

	clickCtx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(clickCtx, chromedp.Click(titleSelector, chromedp.ByQuery)); err != nil {
		return errors.GroupNotFound(group)
	}

	c.currentGroup = group
	return nil
}

// ScrollToTop implements Surface.
func (c *WebClient) ScrollToTop(ctx context.Context) error {
	return c.scrollPanel(ctx, "0")
}

// ScrollToBottom implements Surface.
func (c *WebClient) ScrollToBottom(ctx context.Context) error {
	return c.scrollPanel(ctx, "p.scrollHeight")
}

func (c *WebClient) scrollPanel(ctx context.Context, target string) error {
	js := fmt.Sprintf(`(() => {
		const p = document.querySelector(%s);
		if (!p) return false;
		p.scrollTop = %s;
		return true;
	})()`, strconv.Quote(panelSelector), target)

	var ok bool
	if err := chromedp.Run(c.ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return errors.SurfaceError(err, "failed to scroll the conversation pane")
	}
	if !ok {
		return errors.SurfaceError(nil, "conversation pane not present")
	}

	// Give the lazy loader a moment to fetch older rows.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(300 * time.Millisecond):
	}
	return nil
}

// HasRow implements Surface.
func (c *WebClient) HasRow(ctx context.Context, dataID string) (bool, error) {
	js := fmt.Sprintf(`!!document.querySelector('[data-id=' + CSS.escape(%s) + ']')`,
		strconv.Quote(dataID))

	var present bool
	if err := chromedp.Run(c.ctx, chromedp.Evaluate(js, &present)); err != nil {
		return false, errors.SurfaceError(err, "failed to probe for a message row")
	}
	return present, nil
}

// AtTop implements Surface.
func (c *WebClient) AtTop(ctx context.Context) (bool, error) {
	// The encryption notice marks the true start of the conversation.
	js := `(() => {
		for (const el of document.querySelectorAll("[data-testid='msg-notification-container']")) {
			if (el.innerText && el.innerText.includes('Messages are end-to-end encrypted')) {
				return true;
			}
		}
		return false;
	})()`

	var atTop bool
	if err := chromedp.Run(c.ctx, chromedp.Evaluate(js, &atTop)); err != nil {
		return false, errors.SurfaceError(err, "failed to probe for the conversation top")
	}
	return atTop, nil
}

// IncomingRowsAfter implements Surface.
func (c *WebClient) IncomingRowsAfter(ctx context.Context, afterID string) ([]Row, error) {
	// Incoming rows carry a "false_"-prefixed data-id; self-sent rows a
	// "true_" prefix. With a watermark row present, select only the rows
	// of the sibling row groups after it.
	selector := `[role='row'] > [data-id^='false_']`
	if afterID != "" {
		selector = fmt.Sprintf(
			`[role='row']:has(> [data-id=%s]) ~ [role='row'] > [data-id^='false_']`,
			strconv.Quote(afterID))
	}

	js := fmt.Sprintf(`(() => {
		const out = [];
		for (const el of document.querySelectorAll(%s)) {
			const container = el.querySelector('[data-pre-plain-text]');
			const textEl = container ? container.querySelector('.selectable-text') : null;
			out.push({
				data_id: el.getAttribute('data-id') || '',
				pre_plain_text: container ? (container.getAttribute('data-pre-plain-text') || '') : '',
				text: textEl ? textEl.innerText : '',
			});
		}
		return out;
	})()`, strconv.Quote(selector))

	var rows []Row
	if err := chromedp.Run(c.ctx, chromedp.Evaluate(js, &rows)); err != nil {
		return nil, errors.SurfaceError(err, "failed to enumerate message rows")
	}
	return rows, nil
}

// SendText implements Surface. Multi-line text is entered one line at a
// time with a soft newline (Ctrl+Enter) between lines, then sent with a
// final Enter, preserving line breaks as authored.
func (c *WebClient) SendText(ctx context.Context, text string) error {
	if err := chromedp.Run(c.ctx,
		chromedp.WaitVisible(composeBoxXPath, chromedp.BySearch),
		chromedp.Click(composeBoxXPath, chromedp.BySearch),
	); err != nil {
		return errors.SurfaceError(err, "failed to focus the compose box")
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if err := chromedp.Run(c.ctx,
			chromedp.SendKeys(composeBoxXPath, line, chromedp.BySearch),
			chromedp.KeyEvent("\r", chromedp.KeyModifiers(2)), // Ctrl+Enter: soft newline
		); err != nil {
			return errors.SurfaceError(err, "failed to type message line")
		}
	}

	if err := chromedp.Run(c.ctx, chromedp.KeyEvent("\r")); err != nil {
		return errors.SurfaceError(err, "failed to send message")
	}
	return nil
}
