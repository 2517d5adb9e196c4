package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/owslabs/whatsapp-ows-bridge/internal/bot"
	"github.com/owslabs/whatsapp-ows-bridge/internal/bridge"
	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
	"github.com/owslabs/whatsapp-ows-bridge/internal/journal"
	"github.com/owslabs/whatsapp-ows-bridge/internal/logger"
	"github.com/owslabs/whatsapp-ows-bridge/internal/models"
	"github.com/owslabs/whatsapp-ows-bridge/internal/validation"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	bot           *bot.Bot
	bridge        *bridge.Bridge
	journal       *journal.Journal
	log           *logger.Logger
	validator     *validation.Validator
	webhookSecret string
}

// New creates a new handler instance
func New(b *bot.Bot, br *bridge.Bridge, jrnl *journal.Journal, webhookSecret string, log *logger.Logger) *Handler {
	return &Handler{
		bot:           b,
		bridge:        br,
		journal:       jrnl,
		log:           log,
		validator:     validation.New(),
		webhookSecret: webhookSecret,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := &models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
	}

	h.writeJSON(w, response, http.StatusOK)
}

// Status handles requests for poll-loop progress
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	stats := h.bot.Status()

	captured, err := h.journal.CaptureCount(r.Context())
	if err != nil {
		h.log.Error("Failed to count journaled captures", err)
	}

	response := &models.StatusResponse{
		Status:             "running",
		CyclesRun:          stats.CyclesRun,
		MessagesDispatched: stats.MessagesDispatched,
		RowsDropped:        stats.RowsDropped,
		GroupsWatched:      stats.GroupsWatched,
		MessagesCaptured:   captured,
	}
	if !stats.LastCycleAt.IsZero() {
		response.LastCycleAt = stats.LastCycleAt.Format(time.RFC3339)
	}

	h.writeJSON(w, response, http.StatusOK)
}

// SendMessage handles requests to post a message into a group
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	// Parse request body
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, errors.InvalidRequest("Invalid request body: "+err.Error()))
		return
	}

	// Validate request
	if appErr := h.validator.ValidateSendMessageRequest(&req); appErr != nil {
		h.writeAppError(w, appErr)
		return
	}

	// Sanitize message
	req.Message = h.validator.SanitizeMessage(req.Message)

	// Send message
	ctx := r.Context()
	if err := h.bot.SendMessage(ctx, req.Group, req.Message); err != nil {
		h.log.With("group", req.Group).Error("Failed to send message", err)
		code := errors.CodeOf(err)
		if code == "" {
			code = errors.ErrCodeSurface
		}
		h.writeAppError(w, errors.Wrap(err, code, "Failed to send message"))
		return
	}

	response := &models.SendMessageResponse{
		Status:    "sent",
		Group:     req.Group,
		Timestamp: time.Now().Unix(),
	}
	h.writeJSON(w, response, http.StatusAccepted)
}

// Helper functions

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode JSON response", err)
	}
}

func (h *Handler) writeAppError(w http.ResponseWriter, appErr *errors.AppError) {
	response := &models.ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Code),
	}

	status := statusFor(appErr.Code)

	// Log the error for internal monitoring
	h.log.With("error_code", appErr.Code).
		With("status_code", status).
		Error(appErr.Message, appErr.Err)

	h.writeJSON(w, response, status)
}

// statusFor maps an application error code to an HTTP status.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeGroupNotFound:
		return http.StatusNotFound
	case errors.ErrCodeScrollTimeout, errors.ErrCodeSurface:
		return http.StatusServiceUnavailable
	case errors.ErrCodeRemoteService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
