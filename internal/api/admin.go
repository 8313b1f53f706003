package api

import (
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// requireAdmin accepts an HS256 bearer token signed with the admin secret.
// Without a configured secret the admin routes are disabled.
func (a *ChatAPI) requireAdmin(c *gin.Context) {
	if len(a.adminSecret) == 0 {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin API disabled"})
		return
	}

	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.NewValidationError("unexpected signing method", jwt.ValidationErrorSignatureInvalid)
		}
		return a.adminSecret, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		if sub, _ := claims["sub"].(string); sub != "" {
			c.Set("admin", sub)
		}
	}
	c.Next()
}

// ListExchanges returns the newest transcript rows.
func (a *ChatAPI) ListExchanges(c *gin.Context) {
	if a.Exchanges == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transcript disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	exchanges, err := a.Exchanges.Recent(limit)
	if err != nil {
		a.log.WithError(err).Error("listing exchanges")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list exchanges"})
		return
	}

	fallbacks, err := a.Exchanges.FallbackCount()
	if err != nil {
		a.log.WithError(err).Warn("counting fallbacks")
	}

	c.JSON(http.StatusOK, gin.H{"exchanges": exchanges, "count": len(exchanges), "fallbacks": fallbacks})
}

// ResetMetrics zeroes the JSON status counters. Prometheus counters are
// cumulative and stay untouched.
func (a *ChatAPI) ResetMetrics(c *gin.Context) {
	if a.Monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitor disabled"})
		return
	}
	prev := a.Monitor.ResetCounters()
	a.log.WithField("admin", c.GetString("admin")).Info("status counters reset")
	c.JSON(http.StatusOK, gin.H{"previous": prev})
}
