package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrValueTooLong means a field exceeded its column width.
	ErrValueTooLong = errors.New("value too long")
)

// UserPatch carries the optional fields of a partial update.
type UserPatch struct {
	Name  *string
	Email *string
	Age   *int
}

func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Age == nil
}

// UserRepository defines the interface for user-related database operations.
// Create and Update must report ErrDuplicateEmail atomically when the email
// is already taken; lookups report ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, limit, offset int) ([]*entity.User, error)
	Update(ctx context.Context, id int64, patch UserPatch) (*entity.User, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}
