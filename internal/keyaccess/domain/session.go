// Package domain provides the key session model for administrator key access.
package domain

import (
	"crypto/rsa"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source identifies how the active private key was acquired.
type Source string

const (
	// SourceFile means the key was loaded from an exported PEM key file.
	SourceFile Source = "file"

	// SourceAuthenticator means the key was unwrapped through a hardware
	// authenticator ceremony.
	SourceAuthenticator Source = "authenticator"
)

// Session is one administrator key session: the period during which a single
// private key is loaded and any decryption cache derived from it is valid.
//
// A session is created when a key is acquired and closed when the key is
// cleared or replaced. Closing drops the private key reference; consumers
// holding the session observe the closure through Active and PrivateKey and
// must discard any state derived from the key. Cached plaintext never
// survives a key swap silently because every consumer is bound to exactly
// one session.
type Session struct {
	id        uuid.UUID
	source    Source
	createdAt time.Time

	mu  sync.RWMutex
	key *rsa.PrivateKey
}

// NewSession creates an active key session for the given private key.
func NewSession(source Source, key *rsa.PrivateKey) *Session {
	return &Session{
		id:        uuid.Must(uuid.NewV7()),
		source:    source,
		createdAt: time.Now().UTC(),
		key:       key,
	}
}

// ID returns the unique session identifier (UUIDv7). Safe to log; it carries
// no key material.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Source returns how the session's key was acquired.
func (s *Session) Source() Source {
	return s.source
}

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// PrivateKey returns the session's private key, or ErrSessionClosed after
// Close. Callers must not retain the key beyond the current operation.
func (s *Session) PrivateKey() (*rsa.PrivateKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrSessionClosed
	}
	return s.key, nil
}

// Active reports whether the session still holds its private key.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// Close drops the session's private key reference. Idempotent. RSA key
// material lives in math/big integers that cannot be reliably zeroed in
// place, so the session drops the only reference it holds and leaves
// reclamation to the runtime.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
}
