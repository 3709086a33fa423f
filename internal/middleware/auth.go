package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	apperrors "github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

const (
	ContextSession = "session"
	ContextToken   = "session_token"
)

var (
	ErrMissingToken = apperrors.Unauthorized(errors.New("missing authorization header"))
	ErrTokenFormat  = apperrors.Unauthorized(errors.New("invalid authorization format"))
	ErrRoleDenied   = apperrors.Forbidden("not available for this role", nil)
)

// SessionResolver maps a bearer token to its live session.
type SessionResolver interface {
	Current(token string) (*model.Session, error)
}

type AuthMiddleware struct {
	sessions SessionResolver
}

func NewAuthMiddleware(sessions SessionResolver) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// BearerToken extracts the token from an Authorization header. The SSE
// stream cannot set headers from a browser, so a token query parameter is
// accepted too.
func BearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if t := c.Query("token"); t != "" {
			return t, nil
		}
		return "", ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrTokenFormat
	}
	return parts[1], nil
}

// Authenticate resolves the session and stores it in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		sess, err := m.sessions.Current(token)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextSession, sess)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// RequireRole admits only sessions holding one of roles.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			httputil.RespondWithError(c, ErrMissingToken)
			return
		}
		for _, r := range roles {
			if sess.User.Role == r {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, ErrRoleDenied)
	}
}

// SessionFrom returns the session set by Authenticate.
func SessionFrom(c *gin.Context) (*model.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*model.Session)
	return sess, ok
}
