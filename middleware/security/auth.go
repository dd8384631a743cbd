package security

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	usermodel "linkchat/module/user/model"
	"linkchat/tools/errs"
)

// CtxUserKey is where the middleware stores the authenticated user;
// downstream handlers read it through CurrentUser.
const CtxUserKey = "authUser"

// Authenticator matches the auth collaborator's verify capability.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*usermodel.User, error)
}

// Middleware authenticates bearer tokens on the HTTP API.
func Middleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenMissing)
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		c.Set(CtxUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the identity the middleware attached, nil outside
// an authenticated route.
func CurrentUser(c *gin.Context) *usermodel.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*usermodel.User)
	return u
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return authz
	}
	if t, err := c.Cookie("access_token"); err == nil {
		return t
	}
	return ""
}
