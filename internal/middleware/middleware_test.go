package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"branch-pos/internal/auth"
	"branch-pos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRouter(t *testing.T, tokens *auth.TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zaptest.NewLogger(t)))
	api := r.Group("/api", AuthMiddleware(tokens))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "role": Role(c)})
	})
	api.GET("/users", RequireCapability(auth.CapManageUsers), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenManager("middleware-secret-123456", time.Hour)
	r := newRouter(t, tokens)

	cashier, err := tokens.GenerateToken(&models.User{ID: 7, Role: models.RoleCashier})
	require.NoError(t, err)
	owner, err := tokens.GenerateToken(&models.User{ID: 1, Role: models.RoleOwner})
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/api/me", "", http.StatusUnauthorized},
		{"no bearer prefix", "/api/me", cashier, http.StatusUnauthorized},
		{"garbage token", "/api/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/api/me", "Bearer " + cashier, http.StatusOK},
		{"cashier lacks capability", "/api/users", "Bearer " + cashier, http.StatusForbidden},
		{"owner has capability", "/api/users", "Bearer " + owner, http.StatusNoContent},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, c.path, nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, c.want, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if c.want >= 400 {
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}
