package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/auth"
	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/repository"
	"github.com/servisdesk/servisdesk/internal/security"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

// AuthService coordinates login, logout and password changes.
type AuthService struct {
	identities repository.IdentityRepository
	profiles   repository.ProfileRepository
	tx         repository.Transactor
	tokenMgr   *auth.TokenManager
	revoked    auth.RevocationStore
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	IdentityRepo repository.IdentityRepository
	ProfileRepo  repository.ProfileRepository
	Transactor   repository.Transactor
	Tokens       *auth.TokenManager
	Revocations  auth.RevocationStore
	Logger       *zap.Logger
	BcryptCost   int
	Clock        func() time.Time
}

// LoginResult is an issued access token.
type LoginResult struct {
	Identity  domain.Identity
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		identities: deps.IdentityRepo,
		profiles:   deps.ProfileRepo,
		tx:         deps.Transactor,
		tokenMgr:   deps.Tokens,
		revoked:    deps.Revocations,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
		now:        clock,
	}
}

func invalidCredentials() error {
	return apperrors.NewUnauthorized("invalid credentials")
}

// Login authenticates an active identity and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	identity, err := s.identities.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, invalidCredentials()
		}
		s.logger.Error("login lookup failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	if !identity.IsActive {
		return nil, invalidCredentials()
	}
	if err := auth.ComparePassword(identity.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unreadable", zap.Int64("identity_id", identity.ID), zap.Error(err))
		}
		return nil, invalidCredentials()
	}

	token, exp, err := s.tokenMgr.GenerateToken(identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.now()
	if err := s.recordLogin(ctx, identity.ID, now); err != nil {
		s.logger.Warn("unable to record last login", zap.Int64("identity_id", identity.ID), zap.Error(err))
	} else {
		identity.LastLogin = &now
	}
	return &LoginResult{Identity: *identity, Token: token, ExpiresAt: exp}, nil
}

// recordLogin stamps last_login and refreshes the profile in one transaction,
// like every other identity save.
func (s *AuthService) recordLogin(ctx context.Context, identityID int64, at time.Time) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.identities.TouchLastLogin(ctx, identityID, at); err != nil {
			return err
		}
		profile, err := s.profiles.GetByIdentity(ctx, identityID)
		if apperrors.IsNoRows(err) {
			return s.profiles.Create(ctx, domain.NewProfile(identityID))
		}
		if err != nil {
			return err
		}
		return s.profiles.Update(ctx, profile)
	})
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		s.logger.Error("token revocation failed", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.Identity, current, new1, new2 string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	identity, err := s.identities.GetByID(ctx, actor.ID)
	if err != nil {
		return apperrors.MapError(err)
	}

	fields := apperrors.FieldErrors{}
	if err := auth.ComparePassword(identity.PasswordHash, current); err != nil {
		fields.Add("old_password", "current password is incorrect")
	}
	addFieldError(fields, "new_password2", security.ValidatePasswordPair(new1, new2))
	if err := fields.Err(); err != nil {
		return err
	}

	hash, err := auth.HashPassword(new1, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	identity.PasswordHash = hash
	profile, err := s.profiles.GetByIdentity(ctx, identity.ID)
	if err != nil {
		if !apperrors.IsNoRows(err) {
			return apperrors.MapError(err)
		}
		profile = domain.NewProfile(identity.ID)
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return saveIdentityWithProfile(ctx, s.identities, s.profiles, identity, profile)
	})
	if err != nil {
		s.logger.Error("password update failed", zap.Int64("identity_id", identity.ID), zap.Error(err))
		return apperrors.MapError(err)
	}
	return nil
}
