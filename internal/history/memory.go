// internal/history/memory.go
package history

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	msgs      []Message
	expiresAt time.Time
}

// MemoryStore is a process-local Store with the same trimming and expiry as RedisStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	opts     Options
	now      func() time.Time
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

func (s *MemoryStore) Append(_ context.Context, panel, sessionID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()

	key := Key(panel, sessionID)
	sess, ok := s.sessions[key]
	if !ok {
		sess = &memorySession{}
		s.sessions[key] = sess
	}

	sess.msgs = append(sess.msgs, msgs...)
	if over := len(sess.msgs) - s.opts.MaxMessages; over > 0 {
		sess.msgs = append([]Message(nil), sess.msgs[over:]...)
	}
	sess.expiresAt = s.now().Add(s.opts.TTL)
	return nil
}

func (s *MemoryStore) List(_ context.Context, panel, sessionID string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(panel, sessionID)
	sess, ok := s.sessions[key]
	if !ok {
		return []Message{}, nil
	}
	if s.expired(sess) {
		delete(s.sessions, key)
		return []Message{}, nil
	}

	msgs := sess.msgs
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, panel, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, Key(panel, sessionID))
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// sweep drops every expired session. Callers hold s.mu.
func (s *MemoryStore) sweep() {
	for key, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, key)
		}
	}
}

func (s *MemoryStore) expired(sess *memorySession) bool {
	return !s.now().Before(sess.expiresAt)
}
