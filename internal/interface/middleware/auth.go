package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/response"
)

const (
	MsgAuthRequired = "authentication required"
	MsgInvalidToken = "invalid or expired token"
	MsgRevokedToken = "token has been revoked"
)

// Gate rejection reasons, used as metric labels.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonExpiredToken = "expired_token"
	ReasonRevokedToken = "revoked_token"
)

type TokenVerifier interface {
	Verify(token string) (*helpers.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type GateMetrics interface {
	RecordGateRejection(reason string)
}

// AuthConfig wires the gate. Denylist and Metrics are optional.
type AuthConfig struct {
	Tokens   TokenVerifier
	Denylist RevocationChecker
	Metrics  GateMetrics
	Logger   *logrus.Logger
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id entity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached by the gate, if any.
func IdentityFrom(ctx context.Context) (entity.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(entity.Identity)
	return id, ok
}

// Auth guards protected routes. A missing or non-bearer Authorization header
// is 401; a token that fails verification or was revoked is 403. On success
// the verified identity is attached to the request context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, cfg, http.StatusUnauthorized, MsgAuthRequired, ReasonMissingToken)
			return
		}

		claims, err := cfg.Tokens.Verify(token)
		if err != nil {
			reason := ReasonInvalidToken
			if errors.Is(err, helpers.ErrExpiredToken) {
				reason = ReasonExpiredToken
			}
			reject(c, cfg, http.StatusForbidden, MsgInvalidToken, reason)
			return
		}

		if cfg.Denylist != nil && claims.ID != "" {
			revoked, err := cfg.Denylist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil && cfg.Logger != nil {
				// fail open: the signature and expiry were already checked
				cfg.Logger.WithError(err).WithField("request_id", c.GetString(response.RequestIDKey)).
					Warn("token denylist unavailable")
			}
			if revoked {
				reject(c, cfg, http.StatusForbidden, MsgRevokedToken, ReasonRevokedToken)
				return
			}
		}

		id := entity.Identity{UserID: claims.UserID, Email: claims.Email, TokenID: claims.ID}
		if claims.ExpiresAt != nil {
			id.ExpiresAt = claims.ExpiresAt.Time
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// bearerToken extracts the credential from "Bearer <token>". The scheme is
// case-insensitive. Only an empty credential counts as absent; anything else
// is left for Verify to reject.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func reject(c *gin.Context, cfg AuthConfig, status int, msg, reason string) {
	if cfg.Metrics != nil {
		cfg.Metrics.RecordGateRejection(reason)
	}
	if cfg.Logger != nil {
		cfg.Logger.WithFields(logrus.Fields{
			"reason":     reason,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(response.RequestIDKey),
		}).Debug("auth gate rejected request")
	}
	response.Error(c, status, msg, nil)
}
