package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// identityKey is the gin context key the middleware stores the caller under.
const identityKey = "auth.identity"

// Result is the outcome of authorizing a single request: either an
// authenticated identity or a rejection reason destined for a 401 body.
type Result struct {
	Identity Identity
	Reason   string
}

// Authenticated reports whether the gate admitted the request.
func (r Result) Authenticated() bool {
	return r.Reason == ""
}

func rejected(reason string) Result {
	return Result{Reason: reason}
}

// Authorize evaluates a raw Authorization header value against the token
// service. It never panics and performs no I/O; the HTTP layer maps a
// rejection to a 401 response.
func (s *TokenService) Authorize(header string) Result {
	if !strings.HasPrefix(header, bearerPrefix) {
		return rejected("Missing or invalid token")
	}

	claims, err := s.Verify(header[len(bearerPrefix):])
	if err != nil {
		return rejected(err.Error())
	}

	id, idOK := claims["id"].(string)
	email, emailOK := claims["email"].(string)
	if !idOK || !emailOK {
		return rejected("Invalid token payload structure")
	}

	return Result{Identity: Identity{ID: id, Email: email}}
}

// Middleware gates protected routes. Requests without a valid bearer token
// are terminated with 401 and a {status, message} body; otherwise the
// identity is attached to the request context for downstream handlers.
func Middleware(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := tokens.Authorize(c.GetHeader("Authorization"))
		if !result.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": result.Reason,
			})
			return
		}

		c.Set(identityKey, result.Identity)
		c.Next()
	}
}

// IdentityFromContext returns the identity attached by Middleware.
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
