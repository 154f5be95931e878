// Package token issues, verifies and invalidates signed session tokens.
//
// Tokens are HS256 JWTs carrying the user identity and a snapshot of the user's role names.
// A token is valid iff its signature verifies, it has not expired and it is not blacklisted.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/blacklist"
	"github.com/GoUserAdmin/GoUserAdmin/internal/metrics"
)

const (
	// DefaultTTL is the lifetime of an issued token.
	DefaultTTL = 24 * time.Hour

	// DefaultIssuer is used when Config.Issuer is empty.
	DefaultIssuer = "gouseradmin"

	// MinSecretLength is the minimum accepted HS256 secret size in bytes.
	MinSecretLength = 32
)

// Config configures a Service.
type Config struct {
	// Secret is the HS256 signing key.
	Secret string
	// TTL is the token lifetime. Zero means DefaultTTL.
	TTL time.Duration
	// Issuer is written to and required in the iss claim.
	Issuer string
}

// Claims is the token payload.
type Claims struct {
	UserID uint64   `json:"userId"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Subject is the identity a token is issued for.
type Subject struct {
	UserID uint64
	Email  string
	Name   string
	Roles  []string
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// ExpiresIn is the lifetime in whole seconds.
	ExpiresIn int64
}

// Invalidation describes the outcome of Invalidate.
type Invalidation struct {
	// AlreadyInvalid is true when the token was already blacklisted or has expired.
	AlreadyInvalid bool
	// ExpiresAt is when the blacklist entry lapses.
	ExpiresAt time.Time
}

// Service issues and checks tokens against an injected blacklist.
type Service struct {
	secret    []byte
	ttl       time.Duration
	issuer    string
	blacklist blacklist.Store
	now       func() time.Time
}

// New creates a Service. It fails when the secret is missing or too short.
func New(cfg Config, bl blacklist.Store) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, MinSecretLength)
	}

	if bl == nil {
		return nil, errors.New("token blacklist store is nil")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	return &Service{
		secret:    []byte(cfg.Secret),
		ttl:       ttl,
		issuer:    issuer,
		blacklist: bl,
		now:       time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for sub valid for the configured TTL.
func (s *Service) Issue(sub Subject) (*Issued, error) {
	now := s.now()
	exp := now.Add(s.ttl)

	roles := sub.Roles
	if roles == nil {
		roles = []string{}
	}

	claims := Claims{
		UserID: sub.UserID,
		Email:  sub.Email,
		Name:   sub.Name,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(sub.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Issued{
		Token:     signed,
		IssuedAt:  now,
		ExpiresAt: exp,
		ExpiresIn: int64(s.ttl / time.Second),
	}, nil
}

// Verify checks the blacklist, then the signature and expiry of raw.
// Rejections wrap ErrInvalidToken. Blacklist failures are returned as-is.
func (s *Service) Verify(ctx context.Context, raw string) (*Claims, error) {
	listed, err := s.blacklist.Contains(ctx, raw)
	if err != nil {
		metrics.TokenVerifications.WithLabelValues("error").Inc()

		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}

	if listed {
		metrics.TokenVerifications.WithLabelValues("blacklisted").Inc()

		return nil, ErrTokenBlacklisted
	}

	claims, err := s.parse(raw, true)
	if err != nil {
		metrics.TokenVerifications.WithLabelValues(resultLabel(err)).Inc()

		return nil, err
	}

	metrics.TokenVerifications.WithLabelValues("valid").Inc()

	return claims, nil
}

// Invalidate blacklists raw until its own expiry, or for DefaultTTL from now when the expiry
// cannot be recovered. Invalidating twice is not an error.
func (s *Service) Invalidate(ctx context.Context, raw string) (*Invalidation, error) {
	listed, err := s.blacklist.Contains(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to check token blacklist: %w", err)
	}

	expiresAt := s.now().Add(DefaultTTL)

	// expired tokens still carry a trustworthy expiry as long as the signature holds
	if claims, perr := s.parse(raw, false); perr == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	} else if perr != nil {
		log.Debug().Err(perr).Msg("invalidating token with unrecoverable expiry")
	}

	if listed {
		return &Invalidation{AlreadyInvalid: true, ExpiresAt: expiresAt}, nil
	}

	if !expiresAt.After(s.now()) {
		// already dead, nothing to store
		return &Invalidation{AlreadyInvalid: true, ExpiresAt: expiresAt}, nil
	}

	if err := s.blacklist.Add(ctx, raw, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to blacklist token: %w", err)
	}

	return &Invalidation{ExpiresAt: expiresAt}, nil
}

func (s *Service) parse(raw string, checkExpiry bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}

	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := new(Claims)

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrTokenSignatureInvalid
	default:
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature_invalid"
	default:
		return "invalid"
	}
}
