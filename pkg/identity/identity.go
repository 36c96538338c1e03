// Package identity defines the external identity-provider contract: the
// engine validates a bearer token and resolves it to a stable player
// identity without knowing how that token was issued. The contract is
// owned by the engine; the implementation is supplied externally and is
// pluggable.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
)

// User is the resolved identity behind a validated token. Email is the
// stable identity a room's kick-ban survives token reissuance with (a
// player's PlayerID may be minted fresh per session by some providers);
// callers that have no such concept may leave it empty.
type User struct {
	PlayerID string
	Nickname string
	Email    string
}

// Provider validates an AUTHENTICATE frame's token and resolves it to a
// User. A production deployment backs this with whatever account system
// issues the bearer tokens; this package ships only the contract plus a
// development stand-in.
type Provider interface {
	ValidateToken(ctx context.Context, token string) (User, error)
}

// ErrInvalidToken is returned by a Provider when the token is unrecognized
// or expired.
var ErrInvalidToken = errors.New("identity: invalid token")

// DevProvider is an in-memory stand-in for local development and tests: it
// mints a fresh random token for any nickname via Issue, and validates
// tokens it issued itself. Never use this in production.
type DevProvider struct {
	mu     sync.RWMutex
	tokens map[string]User
}

// NewDevProvider returns an empty DevProvider.
func NewDevProvider() *DevProvider {
	return &DevProvider{tokens: map[string]User{}}
}

// Issue mints a new opaque token bound to a freshly generated player id and
// the given nickname. The nickname doubles as the dev stand-in's stable
// Email, so re-issuing a token for the same nickname models the same person
// reauthenticating under a new PlayerID.
func (d *DevProvider) Issue(nickname string) (token string, playerID string, err error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)

	idBuf := make([]byte, 8)
	if _, err := rand.Read(idBuf); err != nil {
		return "", "", err
	}
	playerID = hex.EncodeToString(idBuf)

	d.mu.Lock()
	d.tokens[token] = User{PlayerID: playerID, Nickname: nickname, Email: nickname}
	d.mu.Unlock()
	return token, playerID, nil
}

// ValidateToken implements Provider.
func (d *DevProvider) ValidateToken(ctx context.Context, token string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.tokens[token]
	if !ok {
		return User{}, ErrInvalidToken
	}
	return u, nil
}
