package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	repo "github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/pkg/mailer"
	"github.com/oksasatya/user-management-api/pkg/validation"
)

type AuthConfig struct {
	AppName           string
	PasswordMinLength int
	RequireAge        bool
}

// AuthService orchestrates signup, login, identity lookup and logout.
// Publisher, Indexer, Revoker and Metrics are optional.
type AuthService struct {
	Repo      repo.UserRepository
	Hasher    PasswordHasher
	Tokens    TokenIssuer
	Revoker   TokenRevoker
	Publisher EmailPublisher
	Indexer   UserIndexer
	Metrics   AuthMetrics
	Logger    *logrus.Logger

	cfg      AuthConfig
	validate *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(repo repo.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *logrus.Logger, cfg AuthConfig) *AuthService {
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = 6
	}
	return &AuthService{
		Repo:     repo,
		Hasher:   hasher,
		Tokens:   tokens,
		Logger:   logger,
		cfg:      cfg,
		validate: validation.New(),
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Age      *int
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	ID        int64
	Name      string
	Email     string
	Token     string
	ExpiresAt time.Time
}

type signupFields struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,max=255"`
	Password   string `json:"password" validate:"required"`
	Age        *int   `json:"age" validate:"required_if=RequireAge true"`
	RequireAge bool   `json:"-"`
}

type loginFields struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Signup validates input, creates the user and returns a fresh token.
// Email uniqueness is ultimately decided by the store's constraint.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	res, err := s.signup(ctx, in)
	s.recordSignup(err)
	return res, err
}

func (s *AuthService) signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	if err := checkFields(s.validate, signupFields{
		Name:       name,
		Email:      strings.TrimSpace(in.Email),
		Password:   in.Password,
		Age:        in.Age,
		RequireAge: s.cfg.RequireAge,
	}); err != nil {
		return nil, err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(s.validate, in.Email)
	if err != nil {
		return nil, err
	}

	// Fast path for the common duplicate; the insert below is authoritative.
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if err := validatePassword(in.Password, s.cfg.PasswordMinLength); err != nil {
		return nil, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &entity.User{Name: name, Email: email, PasswordHash: hash, Age: in.Age}
	if err := s.Repo.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repo.ErrValueTooLong):
			return nil, valueTooLong()
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	s.afterSignup(ctx, u)
	return res, nil
}

// Login verifies credentials. Unknown email and wrong password both yield
// ErrInvalidCredentials, and both paths run one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	res, err := s.login(ctx, in)
	s.recordLogin(err)
	return res, err
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if err := checkFields(s.validate, loginFields{Email: email, Password: in.Password}); err != nil {
		return nil, err
	}

	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.burnVerify(in.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if !s.Hasher.Verify(in.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// Me returns the public profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID int64) (*entity.PublicProfile, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user %d: %w", userID, err)
	}
	p := u.Profile()
	return &p, nil
}

// Logout revokes the presented token until it expires. Without a revoker
// tokens stay valid until expiry and logout is client-side only.
func (s *AuthService) Logout(ctx context.Context, id entity.Identity) (bool, error) {
	if s.Revoker == nil || id.TokenID == "" {
		return false, nil
	}
	if err := s.Revoker.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return true, nil
}

func (s *AuthService) issue(u *entity.User) (*AuthResult, error) {
	token, exp, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{ID: u.ID, Name: u.Name, Email: u.Email, Token: token, ExpiresAt: exp}, nil
}

// burnVerify spends the same work as a real comparison against a hash that
// no password matches.
func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.UnusableHash()
		if err != nil {
			s.logWarn(err, "dummy hash unavailable")
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash != "" {
		_ = s.Hasher.Verify(password, s.dummyHash)
	}
}

// afterSignup runs best-effort side effects; failures are logged only.
func (s *AuthService) afterSignup(ctx context.Context, u *entity.User) {
	if s.Publisher != nil {
		if err := s.Publisher.PublishJSON(ctx, mailer.WelcomeJob(s.cfg.AppName, u.Name, u.Email)); err != nil {
			s.logWarn(err, "enqueue welcome email failed", logrus.Fields{"user_id": u.ID})
		}
	}
	if s.Indexer != nil {
		if err := s.Indexer.Index(ctx, u); err != nil {
			s.logWarn(err, "index user failed", logrus.Fields{"user_id": u.ID})
		}
	}
}

func (s *AuthService) recordSignup(err error) {
	if s.Metrics != nil {
		s.Metrics.RecordSignup(outcomeOf(err))
	}
}

func (s *AuthService) recordLogin(err error) {
	if s.Metrics != nil {
		s.Metrics.RecordLogin(outcomeOf(err))
	}
}

func (s *AuthService) logWarn(err error, msg string, fields ...logrus.Fields) {
	if s.Logger == nil {
		return
	}
	entry := s.Logger.WithError(err)
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	entry.Warn(msg)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case IsValidation(err):
		return OutcomeInvalid
	case errors.Is(err, ErrEmailTaken):
		return OutcomeConflict
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	default:
		return OutcomeError
	}
}
