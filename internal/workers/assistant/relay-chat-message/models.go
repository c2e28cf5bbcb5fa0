// internal/workers/assistant/relay-chat-message/models.go
package relaychatmessage

// DocumentContext identifies the document a document-chat question is about.
type DocumentContext struct {
	ID     string      `json:"id,omitempty"`
	Name   string      `json:"name,omitempty"`
	Status string      `json:"status,omitempty"`
	Size   interface{} `json:"size,omitempty"`
}

type Input struct {
	Panel           string           `json:"panel"`
	SessionID       string           `json:"sessionId,omitempty"`
	Message         string           `json:"message"`
	DocumentContext *DocumentContext `json:"documentContext,omitempty"`
	Metric          string           `json:"metric,omitempty"`
	TimeRange       string           `json:"timeRange,omitempty"`
	Filter          string           `json:"filter,omitempty"`
}

// Output is returned both to HTTP callers and as job variables. Transport
// failures are reported in-band with Failed set.
type Output struct {
	Panel      string `json:"panel"`
	SessionID  string `json:"sessionId"`
	MessageID  string `json:"messageId"`
	Reply      string `json:"reply"`
	Shape      string `json:"shape"`
	Metric     string `json:"metric,omitempty"`
	Failed     bool   `json:"failed"`
	ErrorCode  string `json:"errorCode,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// ShapeTransportError marks replies produced from a failed webhook call.
const ShapeTransportError = "transport_error"

const (
	DefaultTimeRange = "7d"
	DefaultFilter    = "all"
)

type messagePayload struct {
	Message string `json:"message"`
}

type queryPayload struct {
	Query string `json:"query"`
}

type documentPayload struct {
	Query                 string           `json:"query"`
	DocumentContext       *DocumentContext `json:"documentContext"`
	IsDocumentSearch      bool             `json:"isDocumentSearch"`
	UseStructuredResponse bool             `json:"useStructuredResponse"`
}

type analyticsPayload struct {
	Query     string  `json:"query"`
	Metric    *string `json:"metric"`
	TimeRange string  `json:"timeRange"`
	Filter    string  `json:"filter"`
}

type resumePayload struct {
	ID string `json:"id"`
}
