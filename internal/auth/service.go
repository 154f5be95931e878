package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoUserAdmin/GoUserAdmin/internal/authz"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/controller/user"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/models"
	"github.com/GoUserAdmin/GoUserAdmin/internal/metrics"
	"github.com/GoUserAdmin/GoUserAdmin/internal/password"
	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
	"github.com/GoUserAdmin/GoUserAdmin/internal/token"
)

// dummyPassword is hashed once and verified against for unknown emails.
const dummyPassword = "gouseradmin-dummy-password"

// Options configures a Service.
type Options struct {
	// DefaultRole is assigned to newly registered users. Empty assigns nothing.
	DefaultRole string
}

// Service provides authentication and authorization functionality.
type Service struct {
	db       *gorm.DB
	repo     *rbac.Repository
	hasher   *password.Hasher
	tokens   *token.Service
	engine   *authz.Engine
	validate *validator.Validate

	defaultRole string

	dummyOnce sync.Once
	dummyHash string
}

// LoginResult is the outcome of a successful Login.
type LoginResult struct {
	User  models.User
	Roles []string
}

// Session is a freshly issued token with its role snapshot.
type Session struct {
	Token     string
	ExpiresIn int64
	ExpiresAt time.Time
	Roles     []string
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type passwordChange struct {
	OldPassword string `validate:"required"`
	NewPassword string `validate:"required,min=8,max=72,nefield=OldPassword"`
}

// Profile is the current user with roles and resolved permission keys.
type Profile struct {
	User        models.User
	Roles       []string
	Permissions []string
}

// New creates a Service.
func New(
	db *gorm.DB,
	repo *rbac.Repository,
	hasher *password.Hasher,
	tokens *token.Service,
	engine *authz.Engine,
	opts Options,
) (*Service, error) {
	if db == nil {
		return nil, user.ErrDBNil
	}

	if repo == nil || hasher == nil || tokens == nil || engine == nil {
		return nil, errors.New("auth service dependencies must not be nil")
	}

	return &Service{
		db:          db,
		repo:        repo,
		hasher:      hasher,
		tokens:      tokens,
		engine:      engine,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		defaultRole: opts.DefaultRole,
	}, nil
}

// Login checks email and plaintext. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials after a comparable amount of hashing work.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	u, err := user.GetByEmail(ctx, s.db, email)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) && !errors.Is(err, user.ErrEmailEmpty) {
			metrics.Logins.WithLabelValues("error").Inc()

			return nil, fmt.Errorf("failed to load user: %w", err)
		}

		if _, verr := s.hasher.VerifyContext(ctx, plaintext, s.dummy()); verr != nil {
			metrics.Logins.WithLabelValues("error").Inc()

			return nil, verr
		}

		metrics.Logins.WithLabelValues("invalid").Inc()

		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.VerifyContext(ctx, plaintext, u.Password)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()

		return nil, err
	}

	if !ok {
		metrics.Logins.WithLabelValues("invalid").Inc()
		log.Info().Uint64("user_id", u.ID).Msg("login rejected: wrong password")

		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(u.Password) {
		s.rehash(ctx, u, plaintext)
	}

	roles, err := s.repo.GetUserRoleNames(ctx, u.ID)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()

		return nil, err
	}

	metrics.Logins.WithLabelValues("success").Inc()

	return &LoginResult{User: *u, Roles: roles}, nil
}

// IssueSession signs a token for u carrying the user's current role names.
func (s *Service) IssueSession(ctx context.Context, u *models.User) (*Session, error) {
	roles, err := s.repo.GetUserRoleNames(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	issued, err := s.tokens.Issue(token.Subject{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Roles:  roles,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		Token:     issued.Token,
		ExpiresIn: issued.ExpiresIn,
		ExpiresAt: issued.ExpiresAt,
		Roles:     roles,
	}, nil
}

// AuthenticateRequest turns an Authorization header value into a Principal.
// A missing or malformed header yields ErrAuthenticationRequired, a rejected token
// ErrAuthenticationFailed wrapping the reason. Other errors are infrastructure failures.
func (s *Service) AuthenticateRequest(ctx context.Context, header string) (*Principal, error) {
	raw := BearerToken(header)
	if raw == "" {
		return nil, ErrAuthenticationRequired
	}

	claims, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}

		return nil, err
	}

	p := &Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		Roles:  claims.Roles,
		Token:  raw,
	}

	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}

	return p, nil
}

// AuthorizeRequest returns nil when p satisfies req and ErrInsufficientPermissions when it does not.
func (s *Service) AuthorizeRequest(ctx context.Context, p *Principal, req authz.Requirement) error {
	ok, err := s.engine.Authorize(ctx, p, req)
	if err != nil {
		return fmt.Errorf("failed to authorize %s: %w", req, err)
	}

	if !ok {
		return ErrInsufficientPermissions
	}

	return nil
}

// Logout invalidates the bearer token in header. alreadyInvalid is true when it was
// invalidated before.
func (s *Service) Logout(ctx context.Context, header string) (alreadyInvalid bool, err error) {
	raw := BearerToken(header)
	if raw == "" {
		return false, ErrAuthenticationRequired
	}

	inv, err := s.tokens.Invalidate(ctx, raw)
	if err != nil {
		return false, err
	}

	return inv.AlreadyInvalid, nil
}

// Refresh issues a new token with fresh roles, then invalidates the principal's token.
// When invalidation fails the error is returned and the new token is not handed out.
func (s *Service) Refresh(ctx context.Context, p *Principal) (*Session, *models.User, error) {
	u, err := user.Get(ctx, s.db, p.UserID)
	if err != nil {
		return nil, nil, err
	}

	// the old token stays valid until its replacement exists
	session, err := s.IssueSession(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.tokens.Invalidate(ctx, p.Token); err != nil {
		return nil, nil, err
	}

	return session, u, nil
}

// Register creates an account and assigns the default role when one is configured.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := s.hasher.HashContext(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	u, err := user.Create(ctx, s.db, in.Name, in.Email, hash)
	if err != nil {
		return nil, err
	}

	if s.defaultRole == "" {
		return u, nil
	}

	role, err := s.repo.GetRoleByName(ctx, s.defaultRole)
	if err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			log.Warn().Str("role", s.defaultRole).Msg("default role does not exist, user has no role")

			return u, nil
		}

		return nil, err
	}

	if _, err := s.repo.AssignRoleToUser(ctx, u.ID, role.ID); err != nil {
		return nil, err
	}

	return u, nil
}

// ChangePassword replaces the password of userID after checking oldPassword.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if err := s.validate.Struct(passwordChange{OldPassword: oldPassword, NewPassword: newPassword}); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	u, err := user.Get(ctx, s.db, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.VerifyContext(ctx, oldPassword, u.Password)
	if err != nil {
		return err
	}

	if !ok {
		return ErrInvalidOldPassword
	}

	hash, err := s.hasher.HashContext(ctx, newPassword)
	if err != nil {
		return err
	}

	return user.UpdatePassword(ctx, s.db, userID, hash)
}

// Me returns the profile of the principal's user read from the database.
func (s *Service) Me(ctx context.Context, p *Principal) (*Profile, error) {
	u, err := user.Get(ctx, s.db, p.UserID)
	if err != nil {
		return nil, err
	}

	roles, err := s.repo.GetUserRoleNames(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	perms, err := s.repo.GetUserPermissions(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(perms))
	for _, perm := range perms {
		keys = append(keys, perm.Key)
	}

	return &Profile{User: *u, Roles: roles, Permissions: keys}, nil
}

// HashPassword hashes plaintext with the configured algorithm.
func (s *Service) HashPassword(ctx context.Context, plaintext string) (string, error) {
	return s.hasher.HashContext(ctx, plaintext)
}

func (s *Service) rehash(ctx context.Context, u *models.User, plaintext string) {
	hash, err := s.hasher.HashContext(ctx, plaintext)
	if err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("failed to rehash password")

		return
	}

	if err := user.UpdatePassword(ctx, s.db, u.ID, hash); err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("failed to store rehashed password")

		return
	}

	u.Password = hash

	log.Info().Uint64("user_id", u.ID).Str("algorithm", string(s.hasher.Algorithm())).Msg("password rehashed")
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			log.Error().Err(err).Msg("failed to create dummy password hash")

			return
		}

		s.dummyHash = hash
	})

	return s.dummyHash
}
