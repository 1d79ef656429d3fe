package webserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/collablink/collab-comms/src/api/engine"
	"github.com/collablink/collab-comms/src/api/types"
)

// JWTMiddleware resolves the caller to (user id, role) from a bearer
// token issued by the session service. The engine never authenticates;
// it only consumes the identity resolved here.
func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil },
			jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !tok.Valid {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		uid, ok := claims["uid"].(float64)
		if !ok || uid <= 0 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		role, _ := claims["role"].(string)
		if !types.Role(role).Valid() {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("uid", uint64(uid))
		c.Set("role", types.Role(role))
		c.Next()
	}
}

// callerIdentity reads what JWTMiddleware stored on the request.
func callerIdentity(c *gin.Context) engine.Identity {
	uid, _ := c.Get("uid")
	role, _ := c.Get("role")
	id := engine.Identity{}
	if v, ok := uid.(uint64); ok {
		id.UserID = v
	}
	if v, ok := role.(types.Role); ok {
		id.Role = v
	}
	return id
}
