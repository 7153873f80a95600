package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-ordering-api/apperror"
	"food-ordering-api/models"
	"food-ordering-api/store"
	"food-ordering-api/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// ProfileInput holds optional profile changes. Nil fields are kept.
type ProfileInput struct {
	Name    *string
	Phone   *string
	Address *string
}

// AuthService provides authentication related services
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*token.Pair, *models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Access, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	// UpdateProfile changes the caller's own name, phone or address.
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error)
	// UpdateRole is admin-only. When role is owner and restaurantID is set,
	// the restaurant is assigned to the user.
	UpdateRole(ctx context.Context, userID string, role models.Role, restaurantID string) (*models.User, error)
}

type AuthOptions struct {
	InitialAdminEmail string
	// RevalidateRefresh re-reads the user on refresh so role changes and
	// removals take effect before the refresh token expires.
	RevalidateRefresh bool
	StoreTimeout      time.Duration
}

type authService struct {
	users   store.CredentialStore
	catalog store.Catalog
	tokens  *token.Service
	opts    AuthOptions
	log     *zap.Logger
}

func NewAuthService(users store.CredentialStore, catalog store.Catalog, tokens *token.Service, opts AuthOptions, log *zap.Logger) AuthService {
	opts.InitialAdminEmail = models.NormalizeEmail(opts.InitialAdminEmail)
	return &authService{
		users:   users,
		catalog: catalog,
		tokens:  tokens,
		opts:    opts,
		log:     log.With(zap.String("service", "auth")),
	}
}

// Register creates a new customer account
func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.Name) == "" {
		return nil, apperror.New(apperror.InvalidInput, "name and email are required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := models.RoleCustomer
	if s.opts.InitialAdminEmail != "" && email == s.opts.InitialAdminEmail {
		role = models.RoleAdmin
		s.log.Info("registering initial admin", zap.String("email", email))
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		Phone:        in.Phone,
		Address:      in.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := withTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.Stringer("role", user.Role))
	return user, nil
}

// Login authenticates a user and returns an access/refresh pair
func (s *authService) Login(ctx context.Context, email, password string) (*token.Pair, *models.User, error) {
	ctx, cancel := withTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperror.NotFound) {
		return nil, nil, apperror.New(apperror.InvalidCredentials, "incorrect email or password")
	}
	if err != nil {
		return nil, nil, err
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, apperror.New(apperror.InvalidCredentials, "incorrect email or password")
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, user, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*token.Access, error) {
	if !s.opts.RevalidateRefresh {
		return s.tokens.Refresh(refreshToken)
	}

	claims, err := s.tokens.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, apperror.NotFound) {
		return nil, apperror.New(apperror.InvalidToken, "user no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if user.Role != claims.Role {
		s.log.Info("role changed since token issue",
			zap.String("user_id", user.ID), zap.Stringer("from", claims.Role), zap.Stringer("to", user.Role))
	}
	return s.tokens.IssueAccess(user.ID, user.Role)
}

func (s *authService) Me(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return s.users.FindByID(ctx, userID)
}

func (s *authService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPasswordHash(oldPassword, user.PasswordHash) {
		return apperror.New(apperror.InvalidCredentials, "incorrect current password")
	}
	hashed, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hashed)
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	if in.Name == nil && in.Phone == nil && in.Address == nil {
		return nil, apperror.New(apperror.InvalidInput, "nothing to update")
	}
	update := store.ProfileUpdate{Phone: trimmed(in.Phone), Address: trimmed(in.Address)}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.New(apperror.InvalidInput, "name cannot be empty")
		}
		update.Name = &name
	}

	ctx, cancel := withTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	s.log.Info("profile updated", zap.String("user_id", user.ID))
	return user, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func (s *authService) UpdateRole(ctx context.Context, userID string, role models.Role, restaurantID string) (*models.User, error) {
	if !role.Valid() {
		return nil, apperror.New(apperror.InvalidInput, models.ErrInvalidRole.Error())
	}
	if restaurantID != "" && role != models.RoleOwner {
		return nil, apperror.New(apperror.InvalidInput, "restaurant_id is only valid when assigning the owner role")
	}

	ctx, cancel := withTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	// Assign the restaurant before the role so an owner never exists without it.
	if restaurantID != "" {
		if _, err := s.catalog.Restaurant(ctx, restaurantID); err != nil {
			return nil, err
		}
		if err := s.catalog.AssignOwner(ctx, restaurantID, userID); err != nil {
			return nil, err
		}
	}
	user, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		if restaurantID != "" {
			return nil, apperror.Wrap(apperror.KindOf(err), err,
				fmt.Sprintf("restaurant %s was assigned but the role change failed; retry the request", restaurantID))
		}
		return nil, err
	}
	s.log.Info("user role updated",
		zap.String("user_id", user.ID), zap.Stringer("role", role), zap.String("restaurant_id", restaurantID))
	return user, nil
}

// withTimeout bounds one unit of store work. A zero timeout only adds cancellation.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
