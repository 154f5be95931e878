// Package blacklist stores revoked tokens until they expire.
//
// Entries are keyed by the SHA-256 digest of the token, so the size of an entry does not
// depend on the size of the submitted string. A Store must be linearizable per key: once Add
// returns, every later Contains for the same token reports true until the expiry passes.
package blacklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrBackend wraps failures of the underlying store. Callers must treat it as an
	// infrastructure error, never as "not blacklisted".
	ErrBackend = errors.New("blacklist backend failure")

	// ErrClosed is returned by a store used after Close.
	ErrClosed = errors.New("blacklist store closed")
)

// Store records revoked tokens.
type Store interface {
	// Add blacklists token until expiresAt. Adding an already present token keeps the later expiry.
	Add(ctx context.Context, token string, expiresAt time.Time) error
	// Contains reports whether token is blacklisted and not yet expired.
	Contains(ctx context.Context, token string) (bool, error)
}

// Key returns the storage key for token.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}
