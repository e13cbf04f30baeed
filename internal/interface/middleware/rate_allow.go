package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// AllowFunc reports whether a request bypasses rate limiting.
type AllowFunc func(*gin.Context) bool

// AllowPrivateIP lets loopback and RFC 1918 clients through.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(clientIP(c))
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// AllowPaths lets the given route patterns through, e.g. /health.
func AllowPaths(paths ...string) AllowFunc {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(c *gin.Context) bool {
		_, ok := set[routeOf(c)]
		return ok
	}
}

// AnyOf combines allow rules.
func AnyOf(rules ...AllowFunc) AllowFunc {
	return func(c *gin.Context) bool {
		for _, r := range rules {
			if r != nil && r(c) {
				return true
			}
		}
		return false
	}
}
