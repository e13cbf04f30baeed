package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	repo "github.com/oksasatya/user-management-api/internal/domain/repository"
	"github.com/oksasatya/user-management-api/pkg/validation"
)

const (
	DefaultListLimit  = 10
	MaxListLimit      = 100
	DefaultSearchSize = 10
)

// UserService implements the user CRUD behind the auth gate.
type UserService struct {
	Repo    repo.UserRepository
	Hasher  PasswordHasher
	Indexer UserIndexer
	Logger  *logrus.Logger

	passwordMinLength int
	validate          *validator.Validate
}

func NewUserService(repo repo.UserRepository, hasher PasswordHasher, logger *logrus.Logger, passwordMinLength int) *UserService {
	if passwordMinLength <= 0 {
		passwordMinLength = 6
	}
	return &UserService{
		Repo:              repo,
		Hasher:            hasher,
		Logger:            logger,
		passwordMinLength: passwordMinLength,
		validate:          validation.New(),
	}
}

type CreateUserInput struct {
	Name     string
	Email    string
	Age      *int
	Password string
}

type UpdateUserInput struct {
	Name  *string
	Email *string
	Age   *int
}

type createFields struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,max=255"`
	Age   *int   `json:"age" validate:"required"`
}

// List returns one page of users ordered by id. Out-of-range paging values
// are clamped.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.Repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr("get user", err)
	}
	return u, nil
}

// Create adds a user on behalf of an operator. Without a password the row
// gets a hash no input can match, so the account cannot log in.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	name := strings.TrimSpace(in.Name)
	if err := checkFields(s.validate, createFields{Name: name, Email: strings.TrimSpace(in.Email), Age: in.Age}); err != nil {
		return nil, err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(s.validate, in.Email)
	if err != nil {
		return nil, err
	}

	var hash string
	if in.Password != "" {
		if err := validatePassword(in.Password, s.passwordMinLength); err != nil {
			return nil, err
		}
		hash, err = s.Hasher.Hash(in.Password)
	} else {
		hash, err = s.Hasher.UnusableHash()
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &entity.User{Name: name, Email: email, PasswordHash: hash, Age: in.Age}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, s.mapRepoErr("create user", err)
	}
	s.index(ctx, u)
	return u, nil
}

// Update applies a partial update; at least one field must be present.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*entity.User, error) {
	patch := repo.UserPatch{Age: in.Age}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidField("name", "must not be empty")
		}
		if err := validateName(s.validate, name); err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if in.Email != nil {
		email, err := normalizeEmail(s.validate, *in.Email)
		if err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if patch.Empty() {
		return nil, &ValidationError{
			Message: "at least one of name, email, age is required",
			Details: map[string]string{"payload": "no updatable fields"},
		}
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}

	u, err := s.Repo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.mapRepoErr("update user", err)
	}
	s.index(ctx, u)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return s.mapRepoErr("delete user", err)
	}
	if s.Indexer != nil {
		if err := s.Indexer.Delete(ctx, id); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("remove user from index failed")
		}
	}
	return nil
}

// Search queries the user index. It returns an empty result when search is
// not configured.
func (s *UserService) Search(ctx context.Context, q string, size int) ([]entity.PublicProfile, error) {
	q = strings.TrimSpace(q)
	if s.Indexer == nil || q == "" {
		return []entity.PublicProfile{}, nil
	}
	if size <= 0 {
		size = DefaultSearchSize
	}
	if size > MaxListLimit {
		size = MaxListLimit
	}
	res, err := s.Indexer.Search(ctx, q, size)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	if res == nil {
		res = []entity.PublicProfile{}
	}
	return res, nil
}

func (s *UserService) index(ctx context.Context, u *entity.User) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.Index(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("index user failed")
	}
}

func (s *UserService) mapRepoErr(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repo.ErrDuplicateEmail):
		return ErrEmailTaken
	case errors.Is(err, repo.ErrValueTooLong):
		return valueTooLong()
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
