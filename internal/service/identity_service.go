package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/auth"
	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/events"
	"github.com/servisdesk/servisdesk/internal/policy"
	"github.com/servisdesk/servisdesk/internal/repository"
	"github.com/servisdesk/servisdesk/internal/search"
	"github.com/servisdesk/servisdesk/internal/security"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

// IdentityService manages accounts and their profiles on behalf of administrators.
type IdentityService struct {
	identities repository.IdentityRepository
	profiles   repository.ProfileRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// IdentityDependencies encapsulates repositories required for identity management.
type IdentityDependencies struct {
	IdentityRepo repository.IdentityRepository
	ProfileRepo  repository.ProfileRepository
	Transactor   repository.Transactor
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	BcryptCost   int
	Clock        func() time.Time
}

// IdentityCreateInput carries the new-account form.
type IdentityCreateInput struct {
	Username   string
	Email      string
	FirstName  string
	LastName   string
	Password1  string
	Password2  string
	Phone      string
	Department string
	Position   string
	IsStaff    bool
}

// IdentityUpdateInput carries a partial account update. NewPassword1 and
// NewPassword2 are applied only when NewPassword1 is non-empty.
type IdentityUpdateInput struct {
	Username     *string
	Email        *string
	FirstName    *string
	LastName     *string
	Phone        *string
	Department   *string
	Position     *string
	IsStaff      *bool
	IsActive     *bool
	NewPassword1 string
	NewPassword2 string
}

// NewIdentityService constructs the service.
func NewIdentityService(deps IdentityDependencies) *IdentityService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		identities: deps.IdentityRepo,
		profiles:   deps.ProfileRepo,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
		now:        clock,
	}
}

func requireIdentityAdmin(actor *domain.Identity) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !policy.CanManageIdentities(actor) {
		return apperrors.NewForbidden("administrator required")
	}
	return nil
}

// CreateIdentity registers a new account together with its profile.
func (s *IdentityService) CreateIdentity(ctx context.Context, actor *domain.Identity, input IdentityCreateInput) (*domain.IdentityWithProfile, error) {
	if err := requireIdentityAdmin(actor); err != nil {
		return nil, err
	}
	created, err := s.create(ctx, input, false)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.EventIdentityCreated, actor.ID, created.Identity.ID, created.Identity.Username)
	return created, nil
}

// CreateSuperuser provisions an administrator without an acting identity.
// Used by operator tooling only.
func (s *IdentityService) CreateSuperuser(ctx context.Context, input IdentityCreateInput) (*domain.IdentityWithProfile, error) {
	input.IsStaff = true
	return s.create(ctx, input, true)
}

// Seed provisions a regular or staff account without an acting identity.
func (s *IdentityService) Seed(ctx context.Context, input IdentityCreateInput) (*domain.IdentityWithProfile, error) {
	return s.create(ctx, input, false)
}

func (s *IdentityService) create(ctx context.Context, input IdentityCreateInput, superuser bool) (*domain.IdentityWithProfile, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	fields := apperrors.FieldErrors{}
	addFieldError(fields, "username", security.ValidateUsername(input.Username))
	addFieldError(fields, "email", security.ValidateEmail(input.Email))
	addFieldError(fields, "first_name", security.ValidateName(input.FirstName))
	addFieldError(fields, "last_name", security.ValidateName(input.LastName))
	addFieldError(fields, "password2", security.ValidatePasswordPair(input.Password1, input.Password2))
	validateProfileFields(fields, input.Phone, input.Department, input.Position)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, input.Username, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password1, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	identity := &domain.Identity{
		Username:     input.Username,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        input.Email,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      input.IsStaff,
		IsSuperuser:  superuser,
	}
	profile := domain.NewProfile(0)
	profile.Phone = strings.TrimSpace(input.Phone)
	profile.Department = strings.TrimSpace(input.Department)
	profile.Position = strings.TrimSpace(input.Position)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.identities.Create(ctx, identity); err != nil {
			return err
		}
		profile.IdentityID = identity.ID
		return s.profiles.Create(ctx, profile)
	})
	if err != nil {
		return nil, s.storeError("create identity", err)
	}
	return &domain.IdentityWithProfile{Identity: *identity, Profile: *profile}, nil
}

// GetIdentity returns an account with its profile.
func (s *IdentityService) GetIdentity(ctx context.Context, actor *domain.Identity, id int64) (*domain.IdentityWithProfile, error) {
	if err := requireIdentityAdmin(actor); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// UpdateIdentity applies an administrator's edit to an account and its profile.
func (s *IdentityService) UpdateIdentity(ctx context.Context, actor *domain.Identity, id int64, input IdentityUpdateInput) (*domain.IdentityWithProfile, error) {
	if err := requireIdentityAdmin(actor); err != nil {
		return nil, err
	}
	if input.IsActive != nil && !*input.IsActive && !policy.CanDeactivateIdentity(actor, id) {
		return nil, apperrors.NewForbidden("you cannot deactivate your own account")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	identity, profile := current.Identity, current.Profile

	fields := apperrors.FieldErrors{}
	if input.Username != nil {
		identity.Username = strings.TrimSpace(*input.Username)
		addFieldError(fields, "username", security.ValidateUsername(identity.Username))
	}
	if input.Email != nil {
		identity.Email = strings.TrimSpace(*input.Email)
		addFieldError(fields, "email", security.ValidateEmail(identity.Email))
	}
	if input.FirstName != nil {
		addFieldError(fields, "first_name", security.ValidateName(*input.FirstName))
		identity.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		addFieldError(fields, "last_name", security.ValidateName(*input.LastName))
		identity.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.NewPassword1 != "" || input.NewPassword2 != "" {
		addFieldError(fields, "new_password2", security.ValidatePasswordPair(input.NewPassword1, input.NewPassword2))
	}
	applyProfileInput(&profile, input.Phone, input.Department, input.Position)
	validateProfileFields(fields, profile.Phone, profile.Department, profile.Position)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if input.IsStaff != nil {
		identity.IsStaff = *input.IsStaff
	}
	if input.IsActive != nil {
		identity.IsActive = *input.IsActive
	}
	if input.NewPassword1 != "" {
		hash, err := auth.HashPassword(input.NewPassword1, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		identity.PasswordHash = hash
	}
	if input.Username != nil {
		if err := s.ensureUsernameFree(ctx, identity.Username, identity.ID); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, &identity, &profile); err != nil {
		return nil, err
	}
	return &domain.IdentityWithProfile{Identity: identity, Profile: profile}, nil
}

// ToggleActive flips the active flag of another account.
func (s *IdentityService) ToggleActive(ctx context.Context, actor *domain.Identity, id int64) (*domain.IdentityWithProfile, error) {
	if err := requireIdentityAdmin(actor); err != nil {
		return nil, err
	}
	if !policy.CanDeactivateIdentity(actor, id) {
		return nil, apperrors.NewForbidden("you cannot deactivate your own account")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	identity, profile := current.Identity, current.Profile
	identity.IsActive = !identity.IsActive
	if err := s.save(ctx, &identity, &profile); err != nil {
		return nil, err
	}
	return &domain.IdentityWithProfile{Identity: identity, Profile: profile}, nil
}

// DeleteIdentity removes another account. The store cascades to its profile,
// created tickets and comments, and unassigns its tickets.
func (s *IdentityService) DeleteIdentity(ctx context.Context, actor *domain.Identity, id int64) error {
	if err := requireIdentityAdmin(actor); err != nil {
		return err
	}
	if !policy.CanDeleteIdentity(actor, id) {
		return apperrors.NewForbidden("you cannot delete your own account")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.identities.Delete(ctx, id); err != nil {
		return s.storeError("delete identity", err)
	}
	s.publishEvent(ctx, events.EventIdentityDeleted, actor.ID, id, current.Identity.Username)
	return nil
}

// SearchIdentities returns one page of accounts matching criteria.
func (s *IdentityService) SearchIdentities(ctx context.Context, actor *domain.Identity, criteria search.IdentityCriteria, page int) (*search.Page[domain.IdentityWithProfile], error) {
	if err := requireIdentityAdmin(actor); err != nil {
		return nil, err
	}
	total, err := s.identities.Count(ctx, criteria)
	if err != nil {
		return nil, s.storeError("count identities", err)
	}
	window := search.Paginate(total, page, search.IdentityPageSize)
	items, err := s.identities.Search(ctx, criteria, window.Size, window.Offset())
	if err != nil {
		return nil, s.storeError("search identities", err)
	}
	result := search.NewPage(items, window)
	return &result, nil
}

func (s *IdentityService) load(ctx context.Context, id int64) (*domain.IdentityWithProfile, error) {
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("identity", map[string]any{"id": id})
		}
		return nil, s.storeError("load identity", err)
	}
	profile, err := s.profiles.GetByIdentity(ctx, id)
	if err != nil {
		if !apperrors.IsNoRows(err) {
			return nil, s.storeError("load profile", err)
		}
		profile = domain.NewProfile(id)
	}
	return &domain.IdentityWithProfile{Identity: *identity, Profile: *profile}, nil
}

// save persists the identity and synchronises its profile in one transaction.
// A missing profile row is recreated.
func (s *IdentityService) save(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return saveIdentityWithProfile(ctx, s.identities, s.profiles, identity, profile)
	})
	if err != nil {
		return s.storeError("save identity", err)
	}
	return nil
}

func saveIdentityWithProfile(ctx context.Context, identities repository.IdentityRepository, profiles repository.ProfileRepository, identity *domain.Identity, profile *domain.Profile) error {
	if err := identities.Update(ctx, identity); err != nil {
		return err
	}
	profile.IdentityID = identity.ID
	err := profiles.Update(ctx, profile)
	if apperrors.IsNoRows(err) {
		return profiles.Create(ctx, profile)
	}
	return err
}

func (s *IdentityService) ensureUsernameFree(ctx context.Context, username string, selfID int64) error {
	existing, err := s.identities.GetByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewConflict("username already taken", map[string]any{"username": username})
	case err == nil, apperrors.IsNoRows(err):
		return nil
	default:
		return s.storeError("lookup username", err)
	}
}

func (s *IdentityService) storeError(op string, err error) error {
	if apperrors.IsUniqueViolation(err) {
		return apperrors.NewConflict("username already taken", nil)
	}
	mapped := apperrors.ToDomainError(err)
	if mapped.Code == apperrors.CodeInternal {
		s.logger.Error("identity store failure", zap.String("op", op), zap.Error(err))
	}
	return mapped
}

func (s *IdentityService) publishEvent(ctx context.Context, eventType events.EventType, actorID, identityID int64, username string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, actorID, identityID, s.now(), events.IdentityPayload{Username: username}))
}

func addFieldError(fields apperrors.FieldErrors, field string, err error) {
	if err != nil {
		fields.Add(field, err.Error())
	}
}

func applyProfileInput(profile *domain.Profile, phone, department, position *string) {
	if phone != nil {
		profile.Phone = strings.TrimSpace(*phone)
	}
	if department != nil {
		profile.Department = strings.TrimSpace(*department)
	}
	if position != nil {
		profile.Position = strings.TrimSpace(*position)
	}
}

func validateProfileFields(fields apperrors.FieldErrors, phone, department, position string) {
	addFieldError(fields, "phone", security.ValidateMaxLength(phone, domain.ProfilePhoneMaxLength))
	addFieldError(fields, "department", security.ValidateMaxLength(department, domain.ProfileDepartmentMaxLength))
	addFieldError(fields, "position", security.ValidateMaxLength(position, domain.ProfilePositionMaxLength))
}
