package entity

import "time"

// Identity is the verified claim set of a bearer token. It lives in the
// request context for a single request and is never persisted.
type Identity struct {
	UserID    int64
	Email     string
	TokenID   string
	ExpiresAt time.Time
}
