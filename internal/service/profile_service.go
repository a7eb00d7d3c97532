package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/repository"
	"github.com/servisdesk/servisdesk/internal/security"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

// ProfileService lets an identity read and edit its own record.
type ProfileService struct {
	identities repository.IdentityRepository
	profiles   repository.ProfileRepository
	tx         repository.Transactor
	logger     *zap.Logger
}

// ProfileUpdateInput is a partial edit of the caller's own record.
type ProfileUpdateInput struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	Department *string
	Position   *string
}

// NewProfileService constructs the service.
func NewProfileService(identities repository.IdentityRepository, profiles repository.ProfileRepository, tx repository.Transactor, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{identities: identities, profiles: profiles, tx: tx, logger: logger}
}

// Get returns the caller's identity and profile.
func (s *ProfileService) Get(ctx context.Context, actor *domain.Identity) (*domain.IdentityWithProfile, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	identity, err := s.identities.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, s.storeError("load identity", err)
	}
	profile, err := s.profiles.GetByIdentity(ctx, actor.ID)
	if err != nil {
		if !apperrors.IsNoRows(err) {
			return nil, s.storeError("load profile", err)
		}
		profile = domain.NewProfile(actor.ID)
	}
	return &domain.IdentityWithProfile{Identity: *identity, Profile: *profile}, nil
}

// Update edits the caller's names, email and profile fields together.
func (s *ProfileService) Update(ctx context.Context, actor *domain.Identity, input ProfileUpdateInput) (*domain.IdentityWithProfile, error) {
	current, err := s.Get(ctx, actor)
	if err != nil {
		return nil, err
	}
	identity, profile := current.Identity, current.Profile

	fields := apperrors.FieldErrors{}
	if input.FirstName != nil {
		addFieldError(fields, "first_name", security.ValidateName(*input.FirstName))
		identity.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		addFieldError(fields, "last_name", security.ValidateName(*input.LastName))
		identity.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		identity.Email = strings.TrimSpace(*input.Email)
		addFieldError(fields, "email", security.ValidateEmail(identity.Email))
	}
	applyProfileInput(&profile, input.Phone, input.Department, input.Position)
	validateProfileFields(fields, profile.Phone, profile.Department, profile.Position)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return saveIdentityWithProfile(ctx, s.identities, s.profiles, &identity, &profile)
	})
	if err != nil {
		return nil, s.storeError("save profile", err)
	}
	return &domain.IdentityWithProfile{Identity: identity, Profile: profile}, nil
}

func (s *ProfileService) storeError(op string, err error) error {
	mapped := apperrors.ToDomainError(err)
	if mapped.Code == apperrors.CodeInternal {
		s.logger.Error("profile store failure", zap.String("op", op), zap.Error(err))
	}
	return mapped
}
