package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/services"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authTestRouter(cfg *config.HTTPConfig) *gin.Engine {
	router := gin.New()
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	protected := router.Group("/api/v1")
	protected.Use(authMiddleware(cfg))
	protected.POST("/auth/token", func(c *gin.Context) { c.Status(http.StatusOK) })
	protected.POST("/threads", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.DefaultHTTPConfig()
	cfg.JWTSecret = "test-secret"
	router := authTestRouter(cfg)

	do := func(path, token string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("missing token is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("/api/v1/threads", ""))
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("/api/v1/threads", "not-a-jwt"))
	})

	t.Run("valid token passes", func(t *testing.T) {
		token, err := issueToken(cfg.JWTSecret, "tenant-1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, do("/api/v1/threads", token))
	})

	t.Run("token signed with a different secret is rejected", func(t *testing.T) {
		token, err := issueToken("other-secret", "tenant-1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do("/api/v1/threads", token))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := issueToken(cfg.JWTSecret, "tenant-1", -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do("/api/v1/threads", token))
	})

	t.Run("exempt routes skip authentication", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do("/api/v1/auth/token", ""))

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"validation", services.NewValidationError("thread_id", "required"), http.StatusBadRequest, "validation_error"},
		{"not found", services.ErrNotFound, http.StatusNotFound, "not_found"},
		{"memory not found", services.ErrMemoryNotFound, http.StatusNotFound, "memory_not_found"},
		{"tenant mismatch", services.ErrTenantMismatch, http.StatusForbidden, "tenant_mismatch"},
		{"tenant disabled", services.ErrTenantDisabled, http.StatusForbidden, "tenant_disabled"},
		{"assistant inactive", services.ErrAssistantInactive, http.StatusForbidden, "assistant_inactive"},
		{"thread busy", services.ErrThreadBusy, http.StatusConflict, "thread_busy"},
		{"workflow error", &workflow.Error{Node: "sales", Err: fmt.Errorf("boom")}, http.StatusInternalServerError, "workflow_error"},
		{"provider error", &llm.Error{StatusCode: 503, Message: "unavailable"}, http.StatusBadGateway, "llm_unavailable"},
		{"provider error inside workflow error",
			&workflow.Error{Node: "sales", Err: &llm.Error{Message: "unavailable"}},
			http.StatusBadGateway, "llm_unavailable"},
		{"unknown", fmt.Errorf("wat"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedCode)
		})
	}
}
