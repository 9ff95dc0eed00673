package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorKey holds the authenticated operator's user id in the gin context.
const operatorKey = "operatorId"

var (
	errNoCredentials  = errors.New("missing Authorization header")
	errBadCredentials = errors.New("invalid Authorization header format")
	errTokenRejected  = errors.New("invalid or expired token")
)

// bearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errBadCredentials
	}
	return token, nil
}

// requireOperator admits only requests that carry a token issued by the
// auth service.
func (h *Handler) requireOperator(c *gin.Context) {
	token, err := bearerToken(c.GetHeader("Authorization"))
	if err == nil {
		var id int
		if id, err = h.services.ParseToken(token); err == nil {
			c.Set(operatorKey, id)
			c.Next()
			return
		}
		if h.log != nil {
			h.log.Debugw("token_rejected", "path", c.FullPath(), "err", err)
		}
		err = errTokenRejected
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
}

// operatorID reports the id stored by requireOperator. It is false when auth
// is disabled.
func operatorID(c *gin.Context) (int, bool) {
	v, ok := c.Get(operatorKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
