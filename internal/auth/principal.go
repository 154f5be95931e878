package auth

import (
	"context"
	"strings"

	"github.com/GoUserAdmin/GoUserAdmin/internal/authz"
)

// Principal is the authenticated caller attached to a request.
type Principal = authz.Principal

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)

	return p, ok && p != nil
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" unless the value has the form "Bearer <token>".
func BearerToken(header string) string {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	tok = strings.TrimSpace(tok)
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return ""
	}

	return tok
}
