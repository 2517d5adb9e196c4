package validation

import (
	"regexp"
	"strings"

	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
	"github.com/owslabs/whatsapp-ows-bridge/internal/models"
)

// Validator provides validation methods for status server requests
type Validator struct{}

// New creates a new validator instance
func New() *Validator {
	return &Validator{}
}

// ValidateSendMessageRequest validates a send message request
func (v *Validator) ValidateSendMessageRequest(req *models.SendMessageRequest) *errors.AppError {
	if req == nil {
		return errors.InvalidRequest("Request body is required")
	}

	if strings.TrimSpace(req.Group) == "" {
		return errors.InvalidRequest("'group' field is required")
	}

	if strings.TrimSpace(req.Message) == "" {
		return errors.InvalidRequest("'message' field is required")
	}

	if len(req.Message) > 4096 {
		return errors.InvalidRequest("Message too long (maximum 4096 characters)")
	}

	return nil
}

// ValidateNoticeRequest validates a pushed outbound notice
func (v *Validator) ValidateNoticeRequest(req *models.NoticeRequest) *errors.AppError {
	if req == nil {
		return errors.InvalidRequest("Request body is required")
	}

	if strings.TrimSpace(req.ID) == "" {
		return errors.InvalidRequest("'id' field is required")
	}

	if strings.TrimSpace(req.SBC) == "" {
		return errors.InvalidRequest("'sbc' field is required")
	}

	if strings.TrimSpace(req.Context) == "" {
		return errors.InvalidRequest("'context' field is required")
	}

	return nil
}

// SanitizeMessage sanitizes a message by removing potential harmful content
func (v *Validator) SanitizeMessage(message string) string {
	// Trim whitespace
	message = strings.TrimSpace(message)

	// Remove null bytes
	message = strings.ReplaceAll(message, "\x00", "")

	// Limit consecutive newlines
	newlineRegex := regexp.MustCompile(`\n{3,}`)
	message = newlineRegex.ReplaceAllString(message, "\n\n")

	return message
}
