package telegram

import "sync"

// step identifies where a chat is inside a multi-message conversation.
type step int

const (
	stepNone step = iota
	stepAwaitChannelLink // waiting for a forwarded channel message or @username
	stepAwaitPostText    // channel picked, waiting for the post body
	stepAwaitPostTime    // body collected, waiting for the HH:MM time
	stepAwaitBroadcast   // admin: waiting for the broadcast text
	stepAwaitGrantUserID // admin: waiting for the target Telegram ID
)

// session carries the partially collected state of one conversation.
type session struct {
	step      step
	channelID string
	text      string
	photoID   string
}

// sessionStore tracks per-chat conversation state. It replaces a framework
// FSM with a plain mutex-guarded map; state is transient and lost on
// restart, which only aborts half-finished dialogues.
type sessionStore struct {
	mu sync.Mutex
	m  map[int64]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{m: make(map[int64]*session)}
}

// get returns the active session for a chat, or nil.
func (s *sessionStore) get(chatID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[chatID]
}

// set replaces the session for a chat.
func (s *sessionStore) set(chatID int64, sess *session) {
	s.mu.Lock()
	s.m[chatID] = sess
	s.mu.Unlock()
}

// clear aborts any in-progress conversation for a chat.
func (s *sessionStore) clear(chatID int64) {
	s.mu.Lock()
	delete(s.m, chatID)
	s.mu.Unlock()
}
