package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"authd/internal/models"
	"authd/internal/password"
	"authd/internal/storage"
	"authd/internal/token"
)

// Service implements the account lifecycle operations: registration, the
// login variants, password changes, and the one-shot admin bootstrap.
type Service struct {
	users  storage.Storage
	codec  *token.Codec
	ttl    time.Duration
	policy models.SecurityConfig
	logger *slog.Logger
}

// NewService creates the auth service.
func NewService(users storage.Storage, codec *token.Codec, policy models.SecurityConfig, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		codec:  codec,
		ttl:    policy.TokenTTL(),
		policy: policy,
		logger: logger,
	}
}

// Register creates an account with a password credential and signs it in.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.TokenResponse, error) {
	user := models.NewUser(models.NormalizeEmail(req.Email), req.Name)

	credential, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user.Credential = credential

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("account registered", "user_id", created.ID, "email", created.Email)
	return s.issue(created)
}

// Login verifies an email and password pair and signs the account in. Wrong
// email and wrong password produce the same error; deactivated accounts are
// refused after the credential check so the response does not reveal whether
// the password was right.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, user.Credential) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrForbidden
	}

	s.logger.Info("login", "user_id", user.ID)
	return s.issue(user)
}

// LoginFromProvider signs in an identity asserted by an external sign-in
// provider, creating the account on first sight. The provider subject is
// pinned on first login and must match on every subsequent one.
func (s *Service) LoginFromProvider(ctx context.Context, email, subject, name string, verified bool) (*models.TokenResponse, error) {
	email = models.NormalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		user = models.NewUser(email, name)
		user.ProviderSubject = subject
		user.IsVerified = verified
		if user, err = s.users.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("account provisioned from provider", "user_id", user.ID, "email", email)
	case err != nil:
		return nil, err
	default:
		if user.ProviderSubject != "" && user.ProviderSubject != subject {
			return nil, ErrInvalidCredentials
		}
		if user.ProviderSubject == "" || (verified && !user.IsVerified) {
			user.ProviderSubject = subject
			user.IsVerified = user.IsVerified || verified
			user.UpdatedAt = time.Now().UTC()
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
		}
	}

	if !user.IsActive {
		return nil, ErrForbidden
	}

	return s.issue(user)
}

// ChangePassword replaces the caller's credential after verifying the current
// one. Accounts provisioned by a provider have no credential yet and may set
// one with any current password except empty.
func (s *Service) ChangePassword(ctx context.Context, user *models.User, req *models.ChangePasswordRequest) error {
	if user.Credential != "" && !password.Verify(req.CurrentPassword, user.Credential) {
		return ErrInvalidCredentials
	}

	credential, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	user.Credential = credential
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", user.ID)
	return nil
}

// AdminLogin signs in a deployment operator using the admin allow-list and
// the shared master password. The account is created as an admin on first
// use and promoted if it already exists without the role.
func (s *Service) AdminLogin(ctx context.Context, req *models.AdminLoginRequest) (*models.TokenResponse, error) {
	email := models.NormalizeEmail(req.Email)

	if s.policy.AdminMasterPassword == "" || !s.onAllowList(email) {
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.policy.AdminMasterPassword)) != 1 {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		user = models.NewUser(email, email)
		user.SetRole(models.RoleAdmin)
		user.IsVerified = true
		if user, err = s.users.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("admin account provisioned", "user_id", user.ID, "email", email)
	case err != nil:
		return nil, err
	default:
		if !user.IsActive {
			return nil, ErrForbidden
		}
		if user.Role != models.RoleAdmin || !user.IsAdmin {
			user.SetRole(models.RoleAdmin)
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
			s.logger.Info("account promoted via admin login", "user_id", user.ID)
		}
	}

	return s.issue(user)
}

// Bootstrap promotes the calling account to admin when the presented secret
// matches the deployment's bootstrap secret. Used once to create the first
// admin; the secret check fails closed when none is configured.
func (s *Service) Bootstrap(ctx context.Context, user *models.User, secret string) error {
	if s.policy.AdminBootstrapSecret == "" {
		return ErrNotEligible
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.policy.AdminBootstrapSecret)) != 1 {
		return ErrNotEligible
	}

	if user.Role == models.RoleAdmin && user.IsAdmin {
		return nil
	}

	user.SetRole(models.RoleAdmin)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Warn("account promoted via bootstrap secret", "user_id", user.ID, "email", user.Email)
	return nil
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.ttl
}

func (s *Service) onAllowList(email string) bool {
	for _, allowed := range s.policy.AdminEmails {
		if models.NormalizeEmail(allowed) == email {
			return true
		}
	}
	return false
}

func (s *Service) issue(user *models.User) (*models.TokenResponse, error) {
	signed, err := s.codec.Issue(user.Email, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return models.NewTokenResponse(signed, s.ttl, user), nil
}
