package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/user-management-api/internal/interface/http"
	"github.com/oksasatya/user-management-api/internal/interface/middleware"
)

// LimiterFunc builds a rate limiter allowing max requests per window per key.
type LimiterFunc func(max int, window time.Duration, key middleware.KeyFunc) gin.HandlerFunc

// AuthModule mounts the signup, login, session lookup and logout routes.
// POST /auth/users is the unauthenticated create variant and is only
// mounted when OpenUserCreate is set.
type AuthModule struct {
	Handler        *handlers.AuthHandler
	Users          *handlers.UserHandler
	Gate           gin.HandlerFunc
	Limit          LimiterFunc
	OpenUserCreate bool
}

func NewAuthModule(h *handlers.AuthHandler, users *handlers.UserHandler, gate gin.HandlerFunc, limit LimiterFunc, openUserCreate bool) *AuthModule {
	return &AuthModule{Handler: h, Users: users, Gate: gate, Limit: limit, OpenUserCreate: openUserCreate}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")

	// Public, limited per IP and route
	auth.POST("/signup", m.Limit(10, time.Minute, middleware.KeyByIPAndPath()), m.Handler.Signup)
	auth.POST("/login", m.Limit(10, time.Minute, middleware.KeyByIPAndPath()), m.Handler.Login)
	if m.OpenUserCreate {
		auth.POST("/users", m.Limit(10, time.Minute, middleware.KeyByIPAndPath()), m.Users.Create)
	}

	// Protected
	auth.GET("/me", m.Gate, m.Handler.Me)
	auth.POST("/logout", m.Gate, m.Handler.Logout)
}
