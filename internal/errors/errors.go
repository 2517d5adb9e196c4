package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Per-row errors: the offending row is logged and dropped, siblings
	// keep parsing.
	ErrCodeFormat ErrorCode = "FORMAT_ERROR"
	ErrCodeParse  ErrorCode = "PARSE_ERROR"

	// Per-group errors: abort the current group's poll cycle only.
	ErrCodeGroupNotFound ErrorCode = "GROUP_NOT_FOUND"
	ErrCodeStoreIO       ErrorCode = "STORE_IO"
	ErrCodeScrollTimeout ErrorCode = "SCROLL_TIMEOUT"
	ErrCodeSurface       ErrorCode = "SURFACE_ERROR"

	// Per-operation errors
	ErrCodeRemoteService ErrorCode = "REMOTE_SERVICE"
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED"
	ErrCodeNoticePost    ErrorCode = "NOTICE_POST_FAILED"

	// Request validation (status server)
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
)

// AppError represents an application error with additional context
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with application context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the error code of err, or "" if err carries no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given error code anywhere in
// its chain. Callers use this instead of broad catch-and-continue to
// decide whether a failure is per-row, per-group, or per-operation.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Common error constructors for convenience

// FormatError reports an unparseable message timestamp.
func FormatError(raw string) *AppError {
	return New(ErrCodeFormat, fmt.Sprintf("unrecognized time format: %q", raw))
}

// ParseError reports a structurally unparseable message row.
func ParseError(message string) *AppError {
	return New(ErrCodeParse, message)
}

// ParseErrorWrap reports a row that failed because of a nested error.
func ParseErrorWrap(err error, message string) *AppError {
	return Wrap(err, ErrCodeParse, message)
}

// GroupNotFound reports that a conversation title had no exact match.
func GroupNotFound(group string) *AppError {
	return New(ErrCodeGroupNotFound, fmt.Sprintf("no conversation titled %q", group))
}

// StoreIO reports an unreadable or unwritable watermark store.
func StoreIO(err error) *AppError {
	return Wrap(err, ErrCodeStoreIO, "watermark store I/O failed")
}

// ScrollTimeout reports that the scroll-back bound was exhausted before
// the watermark row or the top-of-conversation sentinel appeared.
func ScrollTimeout(group string, attempts int) *AppError {
	return New(ErrCodeScrollTimeout, fmt.Sprintf("gave up scrolling %q after %d attempts", group, attempts))
}

// SurfaceError reports a chat surface operation failure.
func SurfaceError(err error, message string) *AppError {
	return Wrap(err, ErrCodeSurface, message)
}

// RemoteService reports a failed OWS request.
func RemoteService(err error, message string) *AppError {
	return Wrap(err, ErrCodeRemoteService, message)
}

// HandlerFailed reports a callback failure during dispatch.
func HandlerFailed(err error, group, messageID string) *AppError {
	return Wrapf(err, ErrCodeHandlerFailed, "handler failed for message %s in %q", messageID, group)
}

// NoticePostFailed reports that an outbound notice could not be posted
// into its group.
func NoticePostFailed(err error, noticeID, group string) *AppError {
	return Wrapf(err, ErrCodeNoticePost, "failed to post notice %s into %q", noticeID, group)
}

// InvalidRequest creates an invalid request error
func InvalidRequest(message string) *AppError {
	return New(ErrCodeInvalidRequest, message)
}
