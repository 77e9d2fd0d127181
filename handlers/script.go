package handlers

import (
	"net/http"

	"github.com/agentportal/aserver/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ScriptHandler struct {
	ScriptService *services.ScriptService
	Logger        *zap.Logger
}

func NewScriptHandler(scriptService *services.ScriptService, logger *zap.Logger) *ScriptHandler {
	return &ScriptHandler{ScriptService: scriptService, Logger: logger}
}

// GetScript returns the scripts for a queue
// GET /getscript?queue_name=
func (h *ScriptHandler) GetScript(c *gin.Context) {
	queueName := c.Query("queue_name")
	if queueName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing queue_name field"})
		return
	}

	scripts, err := h.ScriptService.GetScripts(c.Request.Context(), queueName)
	if err != nil {
		h.Logger.Error("failed to get scripts", zap.String("queue_name", queueName), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "mysql error"})
		return
	}
	if len(scripts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "script not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "data": scripts})
}

// GetAllScripts returns every script
// GET /getallscripts
func (h *ScriptHandler) GetAllScripts(c *gin.Context) {
	scripts, err := h.ScriptService.ListScripts(c.Request.Context())
	if err != nil {
		h.Logger.Error("failed to list scripts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "mysql error"})
		return
	}
	if len(scripts) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "script not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "data": scripts})
}
