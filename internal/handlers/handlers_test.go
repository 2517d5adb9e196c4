package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/owslabs/whatsapp-ows-bridge/internal/bot"
	"github.com/owslabs/whatsapp-ows-bridge/internal/bridge"
	"github.com/owslabs/whatsapp-ows-bridge/internal/chat"
	"github.com/owslabs/whatsapp-ows-bridge/internal/config"
	"github.com/owslabs/whatsapp-ows-bridge/internal/journal"
	"github.com/owslabs/whatsapp-ows-bridge/internal/logger"
	"github.com/owslabs/whatsapp-ows-bridge/internal/models"
	"github.com/owslabs/whatsapp-ows-bridge/internal/ows"
	"github.com/owslabs/whatsapp-ows-bridge/internal/watermark"
)

// recordingSurface accepts any conversation and records what was sent.
type recordingSurface struct {
	sent []string
}

func (s *recordingSurface) OpenConversation(ctx context.Context, group string) error { return nil }
func (s *recordingSurface) ScrollToTop(ctx context.Context) error                    { return nil }
func (s *recordingSurface) ScrollToBottom(ctx context.Context) error                 { return nil }
func (s *recordingSurface) HasRow(ctx context.Context, dataID string) (bool, error) {
	return false, nil
}
func (s *recordingSurface) AtTop(ctx context.Context) (bool, error) { return true, nil }
func (s *recordingSurface) IncomingRowsAfter(ctx context.Context, afterID string) ([]chat.Row, error) {
	return nil, nil
}
func (s *recordingSurface) SendText(ctx context.Context, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

func newTestHandler(t *testing.T, webhookSecret string) (*Handler, *recordingSurface) {
	t.Helper()

	log := logger.New("error", "text")

	jrnl, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { jrnl.Close() })

	surface := &recordingSurface{}
	marks := watermark.NewStore(filepath.Join(t.TempDir(), "marks.json"))
	b := bot.New(surface, marks, config.BotConfig{
		PollInterval:      time.Second,
		MaxScrollAttempts: 10,
	}, log)

	owsClient := ows.NewClient(config.OWSConfig{
		CredentialsFile: "unused",
		RequestTimeout:  time.Second,
		PageSize:        20,
	}, log)
	br := bridge.New(owsClient, jrnl, log)

	return New(b, br, jrnl, webhookSecret, log), surface
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.HealthCheck(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field = %q, want ok", resp.Status)
	}
}

func TestStatus(t *testing.T) {
	h, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()

	h.Status(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp models.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "running" {
		t.Errorf("status field = %q, want running", resp.Status)
	}
	if resp.CyclesRun != 0 || resp.MessagesCaptured != 0 {
		t.Errorf("fresh bridge reports progress: %+v", resp)
	}
}

func TestSendMessage(t *testing.T) {
	h, surface := newTestHandler(t, "")

	body, _ := json.Marshal(models.SendMessageRequest{Group: "Dhaka Office", Message: "  hello  "})
	req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.SendMessage(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	if len(surface.sent) != 1 || surface.sent[0] != "hello" {
		t.Errorf("sent = %v, want the sanitized message", surface.sent)
	}
}

func TestSendMessageValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing group", `{"message": "hi"}`},
		{"missing message", `{"group": "Dhaka Office"}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, surface := newTestHandler(t, "")

			req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()

			h.SendMessage(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if len(surface.sent) != 0 {
				t.Errorf("message sent despite invalid request: %v", surface.sent)
			}

			var resp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse error response: %v", err)
			}
			if resp.Code != "INVALID_REQUEST" {
				t.Errorf("error code = %q, want INVALID_REQUEST", resp.Code)
			}
		})
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestNoticeWebhook(t *testing.T) {
	h, _ := newTestHandler(t, "webhook-secret")

	body, _ := json.Marshal(models.NoticeRequest{ID: "7", SBC: "DHK", Context: "office closed"})
	req := httptest.NewRequest(http.MethodPost, "/webhook/notice", bytes.NewReader(body))
	req.Header.Set(signatureHeader, sign("webhook-secret", body))
	w := httptest.NewRecorder()

	h.NoticeWebhook(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
}

func TestNoticeWebhookBadSignature(t *testing.T) {
	h, _ := newTestHandler(t, "webhook-secret")

	body, _ := json.Marshal(models.NoticeRequest{ID: "7", SBC: "DHK", Context: "office closed"})

	tests := []struct {
		name      string
		signature string
	}{
		{"missing", ""},
		{"wrong secret", sign("other-secret", body)},
		{"garbage", "not-hex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook/notice", bytes.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(signatureHeader, tt.signature)
			}
			w := httptest.NewRecorder()

			h.NoticeWebhook(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestNoticeWebhookNoSecretConfigured(t *testing.T) {
	h, _ := newTestHandler(t, "")

	body, _ := json.Marshal(models.NoticeRequest{ID: "7", SBC: "DHK", Context: "office closed"})
	req := httptest.NewRequest(http.MethodPost, "/webhook/notice", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.NoticeWebhook(w, req)

	// Without a configured secret the signature check is skipped.
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
}

func TestNoticeWebhookValidation(t *testing.T) {
	h, _ := newTestHandler(t, "")

	body := []byte(`{"id": "7", "sbc": "", "context": "x"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/notice", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.NoticeWebhook(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
