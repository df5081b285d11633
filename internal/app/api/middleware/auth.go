package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/pkg/logctx"
	"github.com/fatflowers/pointsledger/pkg/response"
)

// RoleKey holds the caller's role claim in gin.Context.
const RoleKey = "role"

const defaultAdminRole = "admin"

var errMissingBearer = errors.New("missing bearer token")

// Claims are issued by the web application; sub is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func bearerToken(c *gin.Context) (string, error) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", errMissingBearer
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if raw == "" {
		return "", errMissingBearer
	}
	return raw, nil
}

func abort(c *gin.Context, status int, code response.APIResponseCode, msg string) {
	c.AbortWithStatusJSON(status, response.ErrorT[any](code, msg))
}

// JWTAuth validates an HS256 bearer token and stores the subject as user_id
// and the role claim in gin.Context and the request context.
func JWTAuth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	return func(c *gin.Context) {
		raw, err := bearerToken(c)
		if err != nil {
			abort(c, http.StatusUnauthorized, response.APIResponseCodeUnauthorized, err.Error())
			return
		}
		if secret == "" {
			abort(c, http.StatusUnauthorized, response.APIResponseCodeUnauthorized, "authentication is not configured")
			return
		}
		claims := &Claims{}
		tok, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid || claims.Subject == "" {
			abort(c, http.StatusUnauthorized, response.APIResponseCodeUnauthorized, "invalid token")
			return
		}

		c.Set(logctx.UserIDKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		//nolint:staticcheck // string keys are shared with gin.Context lookups
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logctx.UserIDKey, claims.Subject))
		if l, ok := c.Get(logctx.LoggerKey); ok {
			if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
				setLogger(c, lg.With("user_id", claims.Subject))
			}
		}
		c.Next()
	}
}

// RequireRole must run after JWTAuth. An empty role means "admin".
func RequireRole(role string) gin.HandlerFunc {
	if role == "" {
		role = defaultAdminRole
	}
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != role {
			abort(c, http.StatusForbidden, response.APIResponseCodeForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

// CronAuth accepts only requests carrying the shared cron secret as a bearer
// token. With no secret configured every request is rejected.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c)
		if err != nil || secret == "" || subtle.ConstantTimeCompare([]byte(raw), []byte(secret)) != 1 {
			abort(c, http.StatusUnauthorized, response.APIResponseCodeUnauthorized, "invalid cron secret")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id set by JWTAuth.
func UserID(c *gin.Context) string {
	return c.GetString(logctx.UserIDKey)
}
