// internal/common/http/messages.go
package http

import (
	"fmt"

	"research-assistant/internal/common/errors"
)

const (
	MessageUnreachable = "I couldn't reach the server. Please check your connection and try again."
	MessageTimeout     = "The request took too long to process. This might be due to high server load or a complex query."
	MessageGeneric     = "Sorry, I encountered an error processing your request."

	serverErrorFallback = "Please try again later."
)

// FailureMessage is the chat-facing text for a failed webhook call.
func FailureMessage(err error) string {
	stdErr, ok := errors.As(err)
	if !ok {
		return MessageGeneric
	}

	switch stdErr.Code {
	case errors.ErrCodeWebhookHTTPError:
		msg, _ := stdErr.Metadata["serverMessage"].(string)
		if msg == "" {
			msg = serverErrorFallback
		}
		return fmt.Sprintf("Server error (%v): %s", stdErr.Metadata["statusCode"], msg)
	case errors.ErrCodeWebhookUnreachable:
		return MessageUnreachable
	case errors.ErrCodeWebhookTimeout:
		return MessageTimeout
	default:
		return MessageGeneric
	}
}
