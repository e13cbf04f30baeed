package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const realIPKey = "real_ip"

// RealIP stores the client IP under "real_ip". When trustProxyHeaders is set
// it prefers CF-Connecting-IP, then the left-most X-Forwarded-For entry;
// otherwise it uses gin's ClientIP.
func RealIP(trustProxyHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ""
		if trustProxyHeaders {
			ip = proxyIP(c)
		}
		if ip == "" {
			ip = c.ClientIP()
		}
		c.Set(realIPKey, ip)
		c.Next()
	}
}

func proxyIP(c *gin.Context) string {
	if cf := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); cf != "" {
		if ip := net.ParseIP(cf); ip != nil {
			return ip.String()
		}
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return ""
}

// clientIP returns the address stored by RealIP, falling back to "unknown".
func clientIP(c *gin.Context) string {
	if ip := c.GetString(realIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
