package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/services"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

// respondError maps the service error taxonomy to HTTP statuses with stable
// code strings.
func respondError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"code": "validation_error", "field": ve.Field, "message": ve.Message,
		})
	case errors.Is(err, services.ErrMemoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "memory_not_found", "message": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": err.Error()})
	case errors.Is(err, services.ErrTenantMismatch):
		c.JSON(http.StatusForbidden, gin.H{"code": "tenant_mismatch", "message": err.Error()})
	case errors.Is(err, services.ErrTenantDisabled):
		c.JSON(http.StatusForbidden, gin.H{"code": "tenant_disabled", "message": err.Error()})
	case errors.Is(err, services.ErrAssistantInactive):
		c.JSON(http.StatusForbidden, gin.H{"code": "assistant_inactive", "message": err.Error()})
	case errors.Is(err, services.ErrThreadBusy):
		c.JSON(http.StatusConflict, gin.H{"code": "thread_busy", "message": err.Error()})
	case llm.IsProviderError(err):
		c.JSON(http.StatusBadGateway, gin.H{"code": "llm_unavailable", "message": err.Error()})
	case workflow.IsWorkflowError(err):
		c.JSON(http.StatusInternalServerError, gin.H{"code": "workflow_error", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": err.Error()})
	}
}
