package application

import (
	"context"
	"time"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	UnusableHash() (string, error)
}

type TokenIssuer interface {
	Issue(userID int64, email string) (string, time.Time, error)
}

// TokenRevoker records token ids that must be rejected before they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
}

// EmailPublisher enqueues outgoing email jobs.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserIndexer keeps a search index of public user fields.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, q string, size int) ([]entity.PublicProfile, error)
}

// AuthMetrics counts auth outcomes.
type AuthMetrics interface {
	RecordSignup(outcome string)
	RecordLogin(outcome string)
}

const (
	OutcomeSuccess            = "success"
	OutcomeInvalid            = "invalid"
	OutcomeConflict           = "conflict"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)
