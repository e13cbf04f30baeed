package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/user-management-api/internal/interface/http"
	"github.com/oksasatya/user-management-api/internal/interface/middleware"
)

// UserModule mounts user CRUD. Every route sits behind the auth gate.
type UserModule struct {
	Handler *handlers.UserHandler
	Gate    gin.HandlerFunc
	Limit   LimiterFunc
}

func NewUserModule(h *handlers.UserHandler, gate gin.HandlerFunc, limit LimiterFunc) *UserModule {
	return &UserModule{Handler: h, Gate: gate, Limit: limit}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(m.Gate, m.Limit(120, time.Minute, middleware.KeyByUser()))
	{
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.POST("", m.Handler.Create)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
