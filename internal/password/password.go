// Package password hashes and verifies user credentials.
//
// New hashes are produced with bcrypt (default) or argon2id. Verification dispatches on the
// stored hash prefix, so credentials created with either algorithm keep working after the
// configured algorithm changes. NeedsRehash reports hashes that should be upgraded on the
// next successful login.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Algorithm names a supported hashing algorithm.
type Algorithm string

const (
	// AlgorithmBcrypt selects bcrypt.
	AlgorithmBcrypt Algorithm = "bcrypt"
	// AlgorithmArgon2id selects argon2id.
	AlgorithmArgon2id Algorithm = "argon2id"

	// DefaultCost is the bcrypt work factor used when none is configured.
	DefaultCost = 12
	// MinCost is the lowest accepted bcrypt work factor.
	MinCost = 12
)

var (
	// ErrCostTooLow is returned when a bcrypt cost below MinCost is configured.
	ErrCostTooLow = errors.New("bcrypt cost too low")

	// ErrUnknownAlgorithm is returned for an unsupported algorithm name.
	ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")

	// ErrEmptyPassword is returned when an empty plaintext is hashed.
	ErrEmptyPassword = errors.New("password is empty")
)

// Options configures a Hasher.
type Options struct {
	// Algorithm used for new hashes. Empty means bcrypt.
	Algorithm Algorithm
	// Cost is the bcrypt work factor. Zero means DefaultCost.
	Cost int
	// Concurrency bounds simultaneous hash/verify operations. Zero means GOMAXPROCS.
	Concurrency int
}

// Hasher hashes and verifies passwords with bounded CPU concurrency.
type Hasher struct {
	algorithm Algorithm
	cost      int
	params    *argon2id.Params
	sem       *semaphore.Weighted
}

// New creates a Hasher from opts.
func New(opts Options) (*Hasher, error) {
	algo := opts.Algorithm
	if algo == "" {
		algo = AlgorithmBcrypt
	}

	if algo != AlgorithmBcrypt && algo != AlgorithmArgon2id {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}

	cost := opts.Cost
	if cost == 0 {
		cost = DefaultCost
	}

	if cost < MinCost {
		return nil, fmt.Errorf("%w: %d < %d", ErrCostTooLow, cost, MinCost)
	}

	if cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d exceeds maximum %d", cost, bcrypt.MaxCost)
	}

	n := opts.Concurrency
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		algorithm: algo,
		cost:      cost,
		params:    argon2id.DefaultParams,
		sem:       semaphore.NewWeighted(int64(n)),
	}, nil
}

// Algorithm returns the algorithm used for new hashes.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Hash hashes plaintext with the configured algorithm.
func (h *Hasher) Hash(plaintext string) (string, error) {
	return h.HashContext(context.Background(), plaintext)
}

// HashContext is Hash bounded by the hasher's concurrency limit.
// It fails with ctx.Err() if no slot frees up before ctx is done.
func (h *Hasher) HashContext(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	if h.algorithm == AlgorithmArgon2id {
		hash, err := argon2id.CreateHash(plaintext, h.params)
		if err != nil {
			return "", fmt.Errorf("failed to create argon2id hash: %w", err)
		}

		return hash, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to create bcrypt hash: %w", err)
	}

	return string(hash), nil
}

// Verify reports whether plaintext matches hash.
// A malformed or unsupported hash yields false and never panics.
func (h *Hasher) Verify(plaintext, hash string) bool {
	ok, err := h.VerifyContext(context.Background(), plaintext, hash)

	return ok && err == nil
}

// VerifyContext is Verify bounded by the hasher's concurrency limit.
// The error is only non-nil when ctx ends before a slot is available.
func (h *Hasher) VerifyContext(ctx context.Context, plaintext, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	switch algorithmOf(hash) {
	case AlgorithmBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Debug().Err(err).Msg("bcrypt hash could not be verified")
		}

		return err == nil, nil
	case AlgorithmArgon2id:
		match, err := argon2id.ComparePasswordAndHash(plaintext, hash)
		if err != nil {
			log.Debug().Err(err).Msg("argon2id hash could not be verified")

			return false, nil
		}

		return match, nil
	default:
		log.Debug().Msg("password hash has unknown format")

		return false, nil
	}
}

// NeedsRehash reports whether hash was produced with a different algorithm or weaker
// parameters than the hasher is configured for.
func (h *Hasher) NeedsRehash(hash string) bool {
	algo := algorithmOf(hash)
	if algo != h.algorithm {
		return true
	}

	if algo == AlgorithmBcrypt {
		cost, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			return true
		}

		return cost < h.cost
	}

	return false
}

func algorithmOf(hash string) Algorithm {
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return AlgorithmBcrypt
	case strings.HasPrefix(hash, "$argon2id$"):
		return AlgorithmArgon2id
	default:
		return ""
	}
}
