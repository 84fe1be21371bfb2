package service

import (
	"context"
	"log/slog"
	"sync"

	keyDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
)

// Loader keeps exactly one administrator key session active at a time.
//
// The two acquisition modes are mutually exclusive by construction: loading
// from any provider closes the previous session, whatever its source. A
// failed load leaves the previous session untouched, so the caller never
// loses a working key to a typo'd passphrase or an aborted ceremony.
//
// Closing a session is what invalidates the decryption caches derived from
// it: cache owners are bound to one session and observe its closure.
type Loader struct {
	mu     sync.Mutex
	active *keyDomain.Session
	logger *slog.Logger
}

// NewLoader creates a Loader with no active session.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load acquires a private key from the provider and installs it as the
// active session, closing the previous one. On provider failure the active
// session is left unchanged and the error is returned as-is so its kind
// stays matchable.
func (l *Loader) Load(ctx context.Context, provider KeyProvider) (*keyDomain.Session, error) {
	key, source, err := provider.UnwrapPrivateKey(ctx)
	if err != nil {
		return nil, err
	}

	session := keyDomain.NewSession(source, key)

	l.mu.Lock()
	previous := l.active
	l.active = session
	l.mu.Unlock()

	if previous != nil {
		previous.Close()
		l.logger.Info("replaced key session",
			slog.String("previous_session_id", previous.ID().String()),
			slog.String("session_id", session.ID().String()),
			slog.String("source", string(source)),
		)
	} else {
		l.logger.Info("opened key session",
			slog.String("session_id", session.ID().String()),
			slog.String("source", string(source)),
		)
	}

	return session, nil
}

// Clear closes the active session, if any. Idempotent.
func (l *Loader) Clear() {
	l.mu.Lock()
	session := l.active
	l.active = nil
	l.mu.Unlock()

	if session != nil {
		session.Close()
		l.logger.Info("closed key session", slog.String("session_id", session.ID().String()))
	}
}

// Active returns the current session and whether one is loaded.
func (l *Loader) Active() (*keyDomain.Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active, l.active != nil
}
