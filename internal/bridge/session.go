package bridge

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/observability"
)

var (
	// ErrSessionNotFound means the pairing code is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired means the code or session outlived its window.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnauthorized means the token is invalid.
	ErrUnauthorized = errors.New("invalid session token")
)

// codeAlphabet excludes visually confusable characters (0, O, 1, I, L) so
// codes survive being read aloud or typed from a phone screen.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 6

// Session is one remote pairing. Created unconnected; the code is valid for
// the pairing window, and once connected the token is the sole credential
// until the inactivity window lapses.
type Session struct {
	Code         string
	Token        string
	CreatedAt    time.Time
	LastActivity time.Time
	Connected    bool

	push *PushChannel
}

// SessionStore owns every live session and tracks which one is current. The
// current session is the destination for assistant audio and events.
type SessionStore struct {
	pairingWindow    time.Duration
	inactivityWindow time.Duration
	logger           zerolog.Logger

	mu      sync.Mutex
	byCode  map[string]*Session
	byToken map[string]*Session
	current *Session
}

// NewSessionStore creates an empty store.
func NewSessionStore(pairingWindow, inactivityWindow time.Duration, logger zerolog.Logger) *SessionStore {
	return &SessionStore{
		pairingWindow:    pairingWindow,
		inactivityWindow: inactivityWindow,
		logger:           logger.With().Str("component", "sessions").Logger(),
		byCode:           make(map[string]*Session),
		byToken:          make(map[string]*Session),
	}
}

// Create sweeps stale sessions, then registers a new unconnected session as
// current and returns it.
func (s *SessionStore) Create() (*Session, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate session code: %w", err)
	}
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now()
	session := &Session{
		Code:         code,
		Token:        token,
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sweepLocked(now)
	s.byCode[code] = session
	s.byToken[token] = session
	s.current = session
	s.mu.Unlock()

	observability.RecordSessionCreated()
	s.logger.Info().Str("code", code).Msg("Session created")
	return session, nil
}

// Connect pairs a code with a client and returns the session token. The code
// is single-use for pairing; every later request carries the token.
func (s *SessionStore) Connect(code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byCode[code]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !session.Connected && time.Since(session.CreatedAt) > s.pairingWindow {
		s.dropLocked(session, "unpaired")
		return "", ErrSessionExpired
	}

	session.Connected = true
	session.LastActivity = time.Now()
	s.logger.Info().Str("code", code).Msg("Session connected")
	return session.Token, nil
}

// Authenticate resolves a token to its connected session and refreshes its
// activity clock.
func (s *SessionStore) Authenticate(token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byToken[token]
	if !ok || !session.Connected {
		return nil, ErrUnauthorized
	}
	if time.Since(session.LastActivity) > s.inactivityWindow {
		s.dropLocked(session, "inactive")
		return nil, ErrSessionExpired
	}

	session.LastActivity = time.Now()
	return session, nil
}

// Current returns the connected current session, or nil.
func (s *SessionStore) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.Connected {
		return s.current
	}
	return nil
}

// AttachPush binds a push channel to the session, replacing any prior one.
func (s *SessionStore) AttachPush(session *Session, push *PushChannel) {
	s.mu.Lock()
	prior := session.push
	session.push = push
	s.mu.Unlock()

	if prior != nil {
		prior.Close()
	}
}

// DetachPush clears the session's push channel if it still matches. The
// session itself survives until its inactivity timeout.
func (s *SessionStore) DetachPush(session *Session, push *PushChannel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.push == push {
		session.push = nil
	}
}

// Push returns the session's push channel, or nil when no client listens.
func (s *SessionStore) Push(session *Session) *PushChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session.push
}

// Count reports live sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byCode)
}

// sweepLocked drops unconnected sessions past the pairing window and
// connected sessions past the inactivity window. Runs on every creation, so
// no background timer is needed.
func (s *SessionStore) sweepLocked(now time.Time) {
	for _, session := range s.byCode {
		if !session.Connected && now.Sub(session.CreatedAt) > s.pairingWindow {
			s.dropLocked(session, "unpaired")
		} else if session.Connected && now.Sub(session.LastActivity) > s.inactivityWindow {
			s.dropLocked(session, "inactive")
		}
	}
}

func (s *SessionStore) dropLocked(session *Session, reason string) {
	if session.push != nil {
		session.push.Close()
		session.push = nil
	}
	delete(s.byCode, session.Code)
	delete(s.byToken, session.Token)
	if s.current == session {
		s.current = nil
	}

	observability.RecordSessionExpired(reason)
	s.logger.Info().Str("code", session.Code).Str("reason", reason).Msg("Session dropped")
}

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

func generateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
