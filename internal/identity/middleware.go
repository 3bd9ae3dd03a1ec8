package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type claimsKey struct{}

// WithClaims returns ctx carrying the authenticated claims.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the claims stored by the bearer middleware.
func ClaimsFrom(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

// Bearer enforces bearer access tokens signed with HS256.
func Bearer(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil || claims.Kind != kindAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("claims", claims)
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireAdmin lets only confirmed admins through. A check that timed out is refused
// with its own message so the console can offer a retry.
func RequireAdmin(roles *RoleChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		switch roles.Check(c.Request.Context(), claims.Subject) {
		case RoleAdmin:
			c.Next()
		case RoleUnknown:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "could not verify admin access, please try again"})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have admin access"})
		}
	}
}
