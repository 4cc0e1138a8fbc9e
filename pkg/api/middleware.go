package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/solyn-ai/solyn/pkg/config"
)

const tenantHeader = "X-Tenant-ID"

// authMiddleware enforces bearer JWT authentication on every route except
// the configured exempt prefixes.
func authMiddleware(cfg *config.HTTPConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, prefix := range cfg.JWTExempt {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"code": "unauthorized", "message": "missing bearer token"})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"code": "unauthorized", "message": "invalid token"})
			return
		}
		c.Next()
	}
}

// issueToken signs a development bearer token scoped to a tenant.
func issueToken(secret, tenantID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": tenantID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// tenantID resolves the tenant scope of a request from the X-Tenant-ID
// header.
func tenantID(c *gin.Context) string {
	return c.GetHeader(tenantHeader)
}
