package remote

import (
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// SessionSource supplies the bearer token of the ambient session.
// An empty token means nobody is signed in.
type SessionSource interface {
	Token() string
}

// StaticSession is a SessionSource whose token can be swapped at runtime.
type StaticSession struct {
	mu    sync.RWMutex
	token string
}

// NewStaticSession creates a session holding token.
func NewStaticSession(token string) *StaticSession {
	return &StaticSession{token: token}
}

// Token implements SessionSource.
func (s *StaticSession) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the token. An empty token signs the session out.
func (s *StaticSession) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Fingerprint identifies a token in logs without revealing it.
func Fingerprint(token string) string {
	if token == "" {
		return "none"
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
