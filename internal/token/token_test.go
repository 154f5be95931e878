package token

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoUserAdmin/GoUserAdmin/internal/blacklist"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T) (*Service, *blacklist.Memory) {
	t.Helper()

	bl := blacklist.NewMemory()
	t.Cleanup(func() { _ = bl.Close() })

	svc, err := New(Config{Secret: testSecret}, bl)
	require.NoError(t, err)

	return svc, bl
}

func testSubject() Subject {
	return Subject{UserID: 42, Email: "jane@example.com", Name: "Jane", Roles: []string{"staff"}}
}

func TestNew(t *testing.T) {
	bl := blacklist.NewMemory()
	defer func() { _ = bl.Close() }()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "missing secret", cfg: Config{}, wantErr: ErrMissingSecret},
		{name: "short secret", cfg: Config{Secret: "supersecret"}, wantErr: ErrSecretTooShort},
		{name: "ok", cfg: Config{Secret: testSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := New(tt.cfg, bl)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, DefaultTTL, svc.TTL())
		})
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc, _ := newService(t)

	issued, err := svc.Issue(testSubject())
	require.NoError(t, err)
	assert.Equal(t, int64(86400), issued.ExpiresIn)
	assert.Equal(t, DefaultTTL, issued.ExpiresAt.Sub(issued.IssuedAt))

	claims, err := svc.Verify(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "Jane", claims.Name)
	assert.Equal(t, []string{"staff"}, claims.Roles)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestIssueUniqueTokens(t *testing.T) {
	svc, _ := newService(t)

	a, err := svc.Issue(testSubject())
	require.NoError(t, err)

	b, err := svc.Issue(testSubject())
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
}

func TestVerifyRejections(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	issued, err := svc.Issue(testSubject())
	require.NoError(t, err)

	other, err := New(Config{Secret: strings.Repeat("x", 32)}, blacklist.NewMemory())
	require.NoError(t, err)

	foreign, err := other.Issue(testSubject())
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)

	otherIssuer, err := New(Config{Secret: testSecret, Issuer: "someone-else"}, blacklist.NewMemory())
	require.NoError(t, err)

	wrongIss, err := otherIssuer.Issue(testSubject())
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "garbage", token: "not-a-token", wantErr: ErrTokenMalformed},
		{name: "empty", token: "", wantErr: ErrTokenMalformed},
		{name: "foreign secret", token: foreign.Token, wantErr: ErrTokenSignatureInvalid},
		{name: "tampered signature", token: parts[0] + "." + parts[1] + "." + foreign.Token[strings.LastIndex(foreign.Token, ".")+1:], wantErr: ErrTokenSignatureInvalid},
		{name: "wrong issuer", token: wrongIss.Token, wantErr: ErrTokenSignatureInvalid},
		{name: "alg none", token: none, wantErr: ErrTokenSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Verify(ctx, tt.token)
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	svc, _ := newService(t)

	base := time.Now()
	svc.now = func() time.Time { return base }

	issued, err := svc.Issue(testSubject())
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(DefaultTTL + time.Second) }

	_, err = svc.Verify(context.Background(), issued.Token)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestInvalidate(t *testing.T) {
	svc, bl := newService(t)
	ctx := context.Background()

	issued, err := svc.Issue(testSubject())
	require.NoError(t, err)

	_, err = svc.Verify(ctx, issued.Token)
	require.NoError(t, err)

	inv, err := svc.Invalidate(ctx, issued.Token)
	require.NoError(t, err)
	assert.False(t, inv.AlreadyInvalid)
	assert.Equal(t, issued.ExpiresAt.Unix(), inv.ExpiresAt.Unix())

	_, err = svc.Verify(ctx, issued.Token)
	require.ErrorIs(t, err, ErrTokenBlacklisted)

	again, err := svc.Invalidate(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, again.AlreadyInvalid)
	assert.Equal(t, 1, bl.Len())
}

func TestInvalidateGarbage(t *testing.T) {
	svc, bl := newService(t)
	ctx := context.Background()

	before := time.Now()

	inv, err := svc.Invalidate(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, inv.AlreadyInvalid)
	assert.WithinDuration(t, before.Add(DefaultTTL), inv.ExpiresAt, time.Minute)
	assert.Equal(t, 1, bl.Len())
}

func TestInvalidateExpiredTokenIsAlreadyInvalid(t *testing.T) {
	svc, bl := newService(t)

	base := time.Now()
	svc.now = func() time.Time { return base.Add(-48 * time.Hour) }

	issued, err := svc.Issue(testSubject())
	require.NoError(t, err)

	svc.now = func() time.Time { return base }

	inv, err := svc.Invalidate(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.True(t, inv.AlreadyInvalid)
	assert.Equal(t, issued.ExpiresAt.Unix(), inv.ExpiresAt.Unix())
	assert.Equal(t, 0, bl.Len())
}

func TestInvalidateConcurrentWithVerify(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	issued, err := svc.Issue(testSubject())
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			_, err := svc.Invalidate(ctx, issued.Token)
			assert.NoError(t, err)
		}()

		go func() {
			defer wg.Done()

			_, err := svc.Verify(ctx, issued.Token)
			if err != nil {
				assert.ErrorIs(t, err, ErrTokenBlacklisted)
			}
		}()
	}

	wg.Wait()

	_, err = svc.Verify(ctx, issued.Token)
	require.ErrorIs(t, err, ErrTokenBlacklisted)
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Add(context.Context, string, time.Time) error { return errStoreDown }

func (failingStore) Contains(context.Context, string) (bool, error) { return false, errStoreDown }

func TestBlacklistFailureIsNotInvalidToken(t *testing.T) {
	svc, err := New(Config{Secret: testSecret}, failingStore{})
	require.NoError(t, err)

	issued, err := svc.Issue(testSubject())
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), issued.Token)
	require.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Invalidate(context.Background(), issued.Token)
	require.ErrorIs(t, err, errStoreDown)
}
