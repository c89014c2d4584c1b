package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/ledger"
)

// DevCallerHeader names the caller directly when no TokenIssuer is configured.
const DevCallerHeader = "X-Ledger-Caller"

const ctxCaller = "ledger_caller"

// ResolveCaller returns a Gin middleware that derives the caller identity.
//
// A Bearer token must verify against tokens or the request is rejected with
// 401. Requests without a token continue anonymously. When tokens is nil the
// middleware runs in development mode and takes the caller from the
// X-Ledger-Caller header instead.
func ResolveCaller(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			if h := c.GetHeader(DevCallerHeader); h != "" {
				account, err := ledger.ParseAccountID(h)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				c.Set(ctxCaller, account)
			}
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization must be a Bearer token",
			})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token: " + err.Error(),
			})
			return
		}

		c.Set(ctxCaller, claims.Caller())
		c.Next()
	}
}

// RequireCaller returns a Gin middleware that rejects anonymous requests.
// It must run after ResolveCaller.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerFromCtx(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "caller identity required",
			})
			return
		}
		c.Next()
	}
}

// CallerFromCtx retrieves the caller injected by ResolveCaller. Anonymous
// requests yield the empty account ID.
func CallerFromCtx(c *gin.Context) ledger.AccountID {
	v, _ := c.Get(ctxCaller)
	account, _ := v.(ledger.AccountID)
	return account
}
