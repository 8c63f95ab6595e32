// Package identity derives a stable per-visitor identifier from request
// signals. Likes, view dedup and analytics all key off the same string,
// so every path must resolve through this package.
package identity

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserKey is set by the auth middleware for authenticated requests.
const ContextUserKey = "auth_user_id"

const (
	maxIPLen       = 45
	maxUALen       = 100
	maxLangLen     = 20
	fingerprintLen = 16
)

// Resolve returns "user:<id>" for authenticated principals, otherwise a
// coarse anonymous identity "anon:<ip>:<fingerprint>". It only reads
// request signals and always yields a usable string.
func Resolve(c *gin.Context) string {
	if raw, exists := c.Get(ContextUserKey); exists {
		if id, ok := raw.(uint); ok && id > 0 {
			return fmt.Sprintf("user:%d", id)
		}
	}

	ip := ClientIP(c)
	token := Fingerprint(c.GetHeader("User-Agent"), c.GetHeader("Accept-Language"))
	return fmt.Sprintf("anon:%s:%s", ip, token)
}

// ClientIP picks the client address with proxy-aware precedence:
// CDN header, first forwarded-for entry, real-ip header, then the
// transport peer. Falls back to "unknown" rather than failing.
func ClientIP(c *gin.Context) string {
	ip := strings.TrimSpace(c.GetHeader("CF-Connecting-IP"))

	if ip == "" {
		if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
			parts := strings.Split(forwarded, ",")
			ip = strings.TrimSpace(parts[0])
		}
	}
	if ip == "" {
		ip = strings.TrimSpace(c.GetHeader("X-Real-IP"))
	}
	if ip == "" {
		ip = c.RemoteIP()
	}
	if ip == "" {
		ip = "unknown"
	}

	ip = strings.TrimPrefix(ip, "::ffff:")
	if len(ip) > maxIPLen {
		ip = ip[:maxIPLen]
	}
	return ip
}

// Fingerprint condenses user-agent and accept-language into a short
// stable token. Intentionally coarse: minor header noise is stripped so
// that repeat requests from the same browser collapse to one identity.
func Fingerprint(userAgent, acceptLanguage string) string {
	ua := userAgent
	if ua == "" {
		ua = "unknown"
	}
	if len(ua) > maxUALen {
		ua = ua[:maxUALen]
	}
	lang := acceptLanguage
	if len(lang) > maxLangLen {
		lang = lang[:maxLangLen]
	}

	var b strings.Builder
	for _, r := range ua + "|" + lang {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r >= 'A' && r <= 'Z' {
			b.WriteRune(r + ('a' - 'A'))
		}
	}

	token := base64.StdEncoding.EncodeToString([]byte(b.String()))
	if len(token) > fingerprintLen {
		token = token[:fingerprintLen]
	}
	return token
}
