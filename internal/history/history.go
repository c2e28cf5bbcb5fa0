// internal/history/history.go

// Package history keeps per-panel, per-session conversation messages.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind distinguishes how a message is shown in a panel.
type Kind string

const (
	KindMessage Kind = "message"
	KindReply   Kind = "reply"
	KindError   Kind = "error"
	KindStatus  Kind = "status"
	KindWelcome Kind = "welcome"
)

type Message struct {
	ID        string    `json:"id"`
	Panel     string    `json:"panel"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	Shape     string    `json:"shape,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with a fresh id and the current UTC time.
func NewMessage(panel, sessionID string, role Role, kind Kind, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Panel:     panel,
		SessionID: sessionID,
		Role:      role,
		Kind:      kind,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// Welcome is the message a panel shows before any conversation exists.
func Welcome(panel, sessionID, text string) Message {
	return NewMessage(panel, sessionID, RoleAssistant, KindWelcome, text)
}

// Store persists conversations. Implementations are safe for concurrent use.
type Store interface {
	Append(ctx context.Context, panel, sessionID string, msgs ...Message) error
	// List returns the newest limit messages oldest first; limit <= 0 means all.
	List(ctx context.Context, panel, sessionID string, limit int) ([]Message, error)
	Clear(ctx context.Context, panel, sessionID string) error
	Ping(ctx context.Context) error
}

type Options struct {
	TTL         time.Duration
	MaxMessages int
}

const (
	DefaultTTL         = 24 * time.Hour
	DefaultMaxMessages = 200
)

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxMessages <= 0 {
		o.MaxMessages = DefaultMaxMessages
	}
	return o
}

// Key is the storage key of one panel session.
func Key(panel, sessionID string) string {
	return fmt.Sprintf("chat:history:%s:%s", panel, sessionID)
}
