package authsvc

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
	"github.com/mkrupp/postboard/internal/repo/user"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
)

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// BcryptCost is the work factor for new password hashes.
	BcryptCost int `env:"BCRYPT_COST" default:"10"`

	// CookieSecure marks the session cookie Secure. Enable behind TLS.
	CookieSecure bool `env:"COOKIE_SECURE" default:"false"`
}

// AuthService provides registration, login and profile management.
type AuthService struct {
	Config   AuthConfig
	UserRepo user.Repository
	Hasher   PasswordHasher
	Tokens   *TokenService
	Log      logging.Logger
	Now      func() time.Time

	// dummyHash is verified against when the email is unknown so both login
	// failures take about as long.
	dummyHash string
}

// NewAuthService creates a new AuthService with the given user repository factory,
// token service and configuration.
func NewAuthService(
	repoFactory user.RepositoryFactory,
	tokens *TokenService,
	cfg AuthConfig,
) (*AuthService, error) {
	log := logging.GetLogger("svc.authsvc.auth_service")

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		log.Warn("bcrypt cost out of range, using default",
			"cost", cfg.BcryptCost, "default", bcrypt.DefaultCost)
	}

	userRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	hasher := NewBcryptHasher(cfg.BcryptCost)

	dummyHash, err := hasher.Hash("dummy-password")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &AuthService{
		Config:    cfg,
		UserRepo:  userRepo,
		Hasher:    hasher,
		Tokens:    tokens,
		Log:       log,
		Now:       time.Now,
		dummyHash: dummyHash,
	}, nil
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}

	return s.Now().UTC()
}

// RegisterUser creates a new account. The password is hashed before storage.
// Returns ErrEmailExists if the email is already registered.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (err error) {
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	name = strings.TrimSpace(name)

	if err := errors.Join(validateName(name), validateEmail(email), validatePassword(password)); err != nil {
		return err
	}

	if _, exists, err := s.UserRepo.GetUserByEmail(ctx, email); err != nil {
		return fmt.Errorf("get user: %w", err)
	} else if exists {
		return domain.ErrEmailExists
	}

	passwordHash, err := s.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	//nolint:exhaustruct
	id, err := s.UserRepo.CreateUser(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	log = log.With(logging.Group("user", "id", id))

	return nil
}

// Login checks the credentials and issues a session token.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ string, err error) {
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	if err := validateEmail(email); err != nil {
		return "", err
	}

	user, ok, err := s.UserRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}

	if !ok {
		_ = s.Hasher.Verify(password, s.dummyHash)

		return "", domain.ErrInvalidCredentials
	}

	if !s.Hasher.Verify(password, user.PasswordHash) {
		return "", domain.ErrInvalidCredentials
	}

	//nolint:exhaustruct
	token, err := s.Tokens.Issue(domain.Claims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	log = log.With(logging.Group("user", "id", user.ID))

	return token, nil
}

// ListUsers returns every registered user.
func (s *AuthService) ListUsers(ctx context.Context) (_ []domain.User, err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "list users failed", "error", err)
		}
	}()

	users, err := s.UserRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

// GetProfile returns the user with id or ErrUserNotFound.
func (s *AuthService) GetProfile(ctx context.Context, id domain.UserID) (*domain.User, error) {
	user, ok, err := s.UserRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	} else if !ok {
		return nil, domain.ErrUserNotFound
	}

	return user, nil
}

// UpdateProfile applies the fields set in update. A new email must not belong to
// another user; a new password is re-hashed.
func (s *AuthService) UpdateProfile(ctx context.Context, id domain.UserID, update domain.ProfileUpdate) (err error) {
	log := s.Log.With(logging.Group("user", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "update profile failed", "error", err)
		} else {
			log.DebugContext(ctx, "profile updated")
		}
	}()

	//nolint:exhaustruct
	change := domain.UserUpdate{Email: update.Email}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := validateName(name); err != nil {
			return err
		}

		change.Name = &name
	}

	if update.Email != nil {
		if err := validateEmail(*update.Email); err != nil {
			return err
		}
	}

	if update.Password != nil {
		if err := validatePassword(*update.Password); err != nil {
			return err
		}
	}

	current, err := s.GetProfile(ctx, id)
	if err != nil {
		return err
	}

	if update.Email != nil && *update.Email != current.Email {
		if _, taken, err := s.UserRepo.GetUserByEmail(ctx, *update.Email); err != nil {
			return fmt.Errorf("get user: %w", err)
		} else if taken {
			return domain.ErrEmailExists
		}
	}

	if update.Password != nil {
		passwordHash, err := s.Hasher.Hash(*update.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		change.PasswordHash = &passwordHash
	}

	if change.IsEmpty() {
		return nil
	}

	found, err := s.UserRepo.UpdateUser(ctx, id, change)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	} else if !found {
		return domain.ErrUserNotFound
	}

	return nil
}

// DeleteUser removes the user with id. Returns ErrUserNotFound if nothing was deleted.
func (s *AuthService) DeleteUser(ctx context.Context, id domain.UserID) (err error) {
	log := s.Log.With(logging.Group("user", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user deleted")
		}
	}()

	found, err := s.UserRepo.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	} else if !found {
		return domain.ErrUserNotFound
	}

	return nil
}

// ChangePassword replaces the password of the user with id.
func (s *AuthService) ChangePassword(ctx context.Context, id domain.UserID, password string) (err error) {
	log := s.Log.With(logging.Group("user", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "change password failed", "error", err)
		} else {
			log.DebugContext(ctx, "password changed")
		}
	}()

	if err := validatePassword(password); err != nil {
		return err
	}

	if _, err := s.GetProfile(ctx, id); err != nil {
		return err
	}

	passwordHash, err := s.Hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	//nolint:exhaustruct
	found, err := s.UserRepo.UpdateUser(ctx, id, domain.UserUpdate{PasswordHash: &passwordHash})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	} else if !found {
		return domain.ErrUserNotFound
	}

	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < minNameLength {
		return domain.Invalidf("name must be at least %d characters", minNameLength)
	}

	return nil
}

// validateEmail accepts a bare address only, not "Name <addr>".
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.Invalidf("invalid email address")
	}

	// a domain without a dot is a valid RFC 5322 address but not a deliverable one
	_, host, _ := strings.Cut(addr.Address, "@")
	if !strings.Contains(host, ".") {
		return domain.Invalidf("invalid email address")
	}

	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return domain.Invalidf("password must be at least %d characters", minPasswordLength)
	}

	return nil
}
