package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
	"github.com/owslabs/whatsapp-ows-bridge/internal/models"
	"github.com/owslabs/whatsapp-ows-bridge/internal/ows"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body.
const signatureHeader = "X-Notice-Signature"

// NoticeWebhook accepts a pushed outbound notice from OWS. The notice is
// queued and posted into its matching group on the next poll cycle, so
// the endpoint answers 202 rather than 200.
func (h *Handler) NoticeWebhook(w http.ResponseWriter, r *http.Request) {
	// Read the raw body for signature verification
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeAppError(w, errors.InvalidRequest("Failed to read request body: "+err.Error()))
		return
	}

	if !h.verifyNoticeSignature(body, r.Header.Get(signatureHeader)) {
		h.log.Warnf("Invalid notice webhook signature from %s", r.RemoteAddr)
		h.writeAppError(w, errors.New(errors.ErrCodeUnauthorized, "Invalid webhook signature"))
		return
	}

	var req models.NoticeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeAppError(w, errors.InvalidRequest("Invalid webhook payload: "+err.Error()))
		return
	}

	if appErr := h.validator.ValidateNoticeRequest(&req); appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	h.bridge.EnqueueNotice(ows.Notice{
		ID:      json.Number(req.ID),
		SBC:     req.SBC,
		Context: h.validator.SanitizeMessage(req.Context),
	})

	h.log.With("notice_id", req.ID).Info("Notice webhook accepted")
	h.writeJSON(w, map[string]string{"status": "queued"}, http.StatusAccepted)
}

// verifyNoticeSignature verifies the HMAC SHA256 signature of the webhook payload
func (h *Handler) verifyNoticeSignature(payload []byte, headerSignature string) bool {
	if h.webhookSecret == "" {
		// If no secret is configured, skip signature verification
		h.log.Warn("Notice webhook secret not configured, skipping signature verification")
		return true
	}

	if headerSignature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(payload)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	// Constant time comparison to prevent timing attacks
	return hmac.Equal([]byte(headerSignature), []byte(expectedSignature))
}
