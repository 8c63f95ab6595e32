package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/inkwell/internal/db"
	"github.com/inkwell/internal/identity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionUserKey = "user_id"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 校验凭据，写入会话并签发 API 访问令牌。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}

	var user db.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondError(c, http.StatusInternalServerError, "login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "login failed")
		return
	}

	token, err := a.tokens.Sign(user.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": user.Username,
	})
}

// Logout 清理会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// OptionalAuth resolves the authenticated principal when a session or
// bearer token is present and stores it for the identity resolver.
// Anonymous requests pass through untouched.
func (a *API) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := a.principal(c); ok {
			c.Set(identity.ContextUserKey, id)
		}
		c.Next()
	}
}

// AuthRequired 保护后台接口，未认证请求返回 401。
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := a.principal(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		c.Set(identity.ContextUserKey, id)
		c.Next()
	}
}

func (a *API) principal(c *gin.Context) (uint, bool) {
	session := sessions.Default(c)
	if raw := session.Get(sessionUserKey); raw != nil {
		if id, ok := raw.(uint); ok && id > 0 {
			return id, true
		}
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		if id, err := a.tokens.Verify(token); err == nil && id > 0 {
			return id, true
		}
	}

	return 0, false
}
