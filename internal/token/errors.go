package token

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSecret is returned by New when no signing secret is configured.
	ErrMissingSecret = errors.New("token signing secret is not configured")

	// ErrSecretTooShort is returned by New when the signing secret is shorter than MinSecretLength.
	ErrSecretTooShort = errors.New("token signing secret is too short")

	// ErrInvalidToken is the parent of every reason a token is rejected.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenMalformed is returned for strings that are not a decodable JWT.
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)

	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)

	// ErrTokenSignatureInvalid is returned when the signature, algorithm or issuer does not match.
	ErrTokenSignatureInvalid = fmt.Errorf("%w: signature invalid", ErrInvalidToken)

	// ErrTokenBlacklisted is returned for tokens that were invalidated.
	ErrTokenBlacklisted = fmt.Errorf("%w: blacklisted", ErrInvalidToken)
)
