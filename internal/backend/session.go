package backend

import (
	"encoding/json"
	"sync"
)

const sessionKey = "auth_session"

// KV is the subset of the local key-value store sessions are kept in.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	MultiRemove(keys ...string) error
}

// SessionStore persists the signed-in session across restarts.
type SessionStore struct {
	kv KV
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

func (s *SessionStore) Load() (*Session, error) {
	raw, ok, err := s.kv.Get(sessionKey)
	if err != nil || !ok {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// A corrupt entry reads as signed out.
		return nil, s.Clear()
	}
	return &sess, nil
}

func (s *SessionStore) Save(sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.kv.Set(sessionKey, string(data))
}

func (s *SessionStore) Clear() error {
	return s.kv.MultiRemove(sessionKey)
}

// Notifier fans session events out to subscribers.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(SessionEvent, *Session)
}

func (n *Notifier) Subscribe(fn func(SessionEvent, *Session)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(SessionEvent, *Session))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *Notifier) Notify(event SessionEvent, sess *Session) {
	n.mu.Lock()
	fns := make([]func(SessionEvent, *Session), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(event, sess)
	}
}
