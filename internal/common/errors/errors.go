// internal/common/errors/errors.go

// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodePanelNotFound  ErrorCode = "PANEL_NOT_FOUND"

	ErrCodeWebhookTimeout       ErrorCode = "WEBHOOK_TIMEOUT"
	ErrCodeWebhookUnreachable   ErrorCode = "WEBHOOK_UNREACHABLE"
	ErrCodeWebhookHTTPError     ErrorCode = "WEBHOOK_HTTP_ERROR"
	ErrCodeWebhookRequestFailed ErrorCode = "WEBHOOK_REQUEST_FAILED"
	ErrCodeWebhookTooLarge      ErrorCode = "WEBHOOK_RESPONSE_TOO_LARGE"

	ErrCodeHistoryStoreFailed ErrorCode = "HISTORY_STORE_FAILED"

	ErrCodeInvalidResumeID       ErrorCode = "INVALID_RESUME_ID"
	ErrCodeResumeAnalysisFailed  ErrorCode = "RESUME_ANALYSIS_FAILED"
	ErrCodeInvalidResponseFormat ErrorCode = "INVALID_RESPONSE_FORMAT"

	ErrCodeBrokerUnavailable ErrorCode = "BROKER_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata sets a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// As extracts a *StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInvalidRequestError creates a non-retryable validation error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPanelNotFoundError creates a non-retryable unknown panel error.
func NewPanelNotFoundError(panel string) *StandardError {
	return &StandardError{
		Code:      ErrCodePanelNotFound,
		Message:   "Chat panel is not configured",
		Details:   fmt.Sprintf("panel: %s", panel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookTimeoutError creates a retryable timeout error.
func NewWebhookTimeoutError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookTimeout,
		Message:   "Webhook request timed out",
		Details:   fmt.Sprintf("url: %s, error: %v", url, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookUnreachableError creates a retryable error for requests that got no response.
func NewWebhookUnreachableError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookUnreachable,
		Message:   "Webhook is unreachable",
		Details:   fmt.Sprintf("url: %s, error: %v", url, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookHTTPError creates an error for a non-2xx reply. Only 5xx replies are retryable.
// serverMessage is the "message" field of the reply body, if any.
func NewWebhookHTTPError(url string, statusCode int, serverMessage string) *StandardError {
	e := &StandardError{
		Code:      ErrCodeWebhookHTTPError,
		Message:   fmt.Sprintf("Webhook returned HTTP %d", statusCode),
		Details:   fmt.Sprintf("url: %s", url),
		Retryable: statusCode >= 500,
		Timestamp: time.Now().UTC(),
	}
	e.WithMetadata("statusCode", statusCode)
	if serverMessage != "" {
		e.WithMetadata("serverMessage", serverMessage)
	}
	return e
}

// NewWebhookRequestFailedError creates a non-retryable error for requests that could not be built.
func NewWebhookRequestFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookRequestFailed,
		Message:   "Webhook request could not be prepared",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebhookTooLargeError creates a non-retryable error for replies over the body limit.
func NewWebhookTooLargeError(url string, limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebhookTooLarge,
		Message:   "Webhook reply is too large",
		Details:   fmt.Sprintf("url: %s, limit: %d bytes", url, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewHistoryStoreFailedError creates a retryable history store error.
func NewHistoryStoreFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHistoryStoreFailed,
		Message:   "Conversation history store error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidResumeIDError creates a non-retryable resume id error.
func NewInvalidResumeIDError(resumeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidResumeID,
		Message:   "Resume ID format is invalid",
		Details:   fmt.Sprintf("resumeId: %q", resumeID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResumeAnalysisFailedError creates a non-retryable error reported by the analyzer.
func NewResumeAnalysisFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResumeAnalysisFailed,
		Message:   "Resume analysis failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidResponseFormatError creates a non-retryable error for unusable replies.
func NewInvalidResponseFormatError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidResponseFormat,
		Message:   "Received invalid response format",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewBrokerUnavailableError(address string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBrokerUnavailable,
		Message:   "Workflow broker is unavailable",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"brokerAddress": address},
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidRequest:        "INVALID_REQUEST",
	ErrCodePanelNotFound:         "PANEL_NOT_FOUND",
	ErrCodeWebhookTimeout:        "WEBHOOK_TIMEOUT",
	ErrCodeWebhookUnreachable:    "WEBHOOK_UNREACHABLE",
	ErrCodeWebhookHTTPError:      "WEBHOOK_HTTP_ERROR",
	ErrCodeWebhookRequestFailed:  "WEBHOOK_REQUEST_FAILED",
	ErrCodeWebhookTooLarge:       "WEBHOOK_RESPONSE_TOO_LARGE",
	ErrCodeHistoryStoreFailed:    "HISTORY_STORE_FAILED",
	ErrCodeInvalidResumeID:       "INVALID_RESUME_ID",
	ErrCodeResumeAnalysisFailed:  "RESUME_ANALYSIS_FAILED",
	ErrCodeInvalidResponseFormat: "INVALID_RESPONSE_FORMAT",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeWebhookUnreachable,
		ErrCodeWebhookHTTPError,
		ErrCodeHistoryStoreFailed,
		ErrCodeBrokerUnavailable:
		return 3 // Retryable technical errors

	case ErrCodeWebhookTimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "WEBHOOK"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "HISTORY"):
		return "STORAGE"
	case strings.Contains(codeStr, "RESUME"):
		return "RESUME"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
