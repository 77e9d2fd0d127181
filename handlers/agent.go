package handlers

import (
	"errors"
	"net/http"

	"github.com/agentportal/aserver/db"
	"github.com/agentportal/aserver/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AgentHandler struct {
	AgentService *services.AgentService
	TokenService *services.TokenService
	Logger       *zap.Logger

	// LegacyStatusCodes reports an extension lookup failure as 200 with the cause.
	LegacyStatusCodes bool
}

func NewAgentHandler(agentService *services.AgentService, tokenService *services.TokenService, logger *zap.Logger, legacyStatusCodes bool) *AgentHandler {
	return &AgentHandler{
		AgentService:      agentService,
		TokenService:      tokenService,
		Logger:            logger,
		LegacyStatusCodes: legacyStatusCodes,
	}
}

// Welcome answers the root route
// GET /
func (h *AgentHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the agent portal."})
}

// VerifyAgent checks credentials and returns the agent record with a session token
// GET /agentverify?username=&password=
func (h *AgentHandler) VerifyAgent(c *gin.Context) {
	username := c.Query("username")
	password := c.Query("password")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing username"})
		return
	}
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "missing password"})
		return
	}

	agent, err := h.AgentService.VerifyAgent(c.Request.Context(), username, password)
	switch {
	case errors.Is(err, services.ErrLoginFailed):
		c.JSON(http.StatusNotFound, gin.H{"message": "Login failed"})
		return
	case errors.Is(err, services.ErrAmbiguousAgent):
		c.JSON(http.StatusNotImplemented, gin.H{"message": "records returned is not 1"})
		return
	case err != nil:
		h.Logger.Error("agent verify failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "mysql error"})
		return
	}

	resp := gin.H{"message": "success", "data": []db.Agent{agent}}
	if h.TokenService != nil {
		token, err := h.TokenService.Issue(agent)
		if err != nil {
			h.Logger.Error("failed to issue session token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to issue token"})
			return
		}
		resp["token"] = token
	}
	c.JSON(http.StatusOK, resp)
}

// GetAllAgents dumps every agent record
// GET /getallagentrecs
func (h *AgentHandler) GetAllAgents(c *gin.Context) {
	agents, err := h.AgentService.ListAgents(c.Request.Context())
	if err != nil {
		h.Logger.Error("failed to list agents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "mysql error"})
		return
	}
	if len(agents) == 0 {
		c.JSON(http.StatusNoContent, gin.H{"message": "no agent records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "data": agents})
}

// GetAgent returns the agent record for a username
// GET /getagentrec/:username
func (h *AgentHandler) GetAgent(c *gin.Context) {
	agents, err := h.AgentService.GetAgentsByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.Logger.Error("failed to get agent", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "mysql error"})
		return
	}
	if len(agents) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "no agent records", "data": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "data": agents})
}

// UpdateProfile updates an agent's profile and extension
// POST /updateProfile
func (h *AgentHandler) UpdateProfile(c *gin.Context) {
	var req db.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required field(s)"})
		return
	}

	updated, err := h.AgentService.UpdateProfile(c.Request.Context(), req)
	switch {
	case errors.Is(err, services.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required field(s)"})
	case errors.Is(err, services.ErrInvalidExtension):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid extension"})
	case errors.Is(err, services.ErrExtensionLookup):
		status := http.StatusInternalServerError
		if h.LegacyStatusCodes {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{"message": "Extension lookup error"})
	case err != nil:
		h.Logger.Error("failed to update profile", zap.Int64("agent_id", req.AgentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "MySQL error"})
	case updated:
		c.JSON(http.StatusOK, gin.H{"message": "Success!"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Failed!"})
	}
}

// AddAgents creates agents in bulk
// POST /addAgents
func (h *AgentHandler) AddAgents(c *gin.Context) {
	var req db.AddAgentsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required field(s)"})
		return
	}

	result := h.AgentService.AddAgents(c.Request.Context(), req.Data)
	h.Logger.Info("bulk agent creation finished",
		zap.Int("requested", len(req.Data)),
		zap.Int("created", result.Created),
		zap.Int("lookup_errors", len(result.LookupErrors)),
		zap.Int("write_errors", len(result.WriteErrors)))

	c.JSON(http.StatusOK, gin.H{
		"message":       result.Message(),
		"created":       result.Created,
		"lookup_errors": len(result.LookupErrors),
		"write_errors":  len(result.WriteErrors),
	})
}

// DeleteAgent removes an agent
// POST /DeleteAgent
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	var req db.DeleteAgentRequest
	if err := c.ShouldBind(&req); err != nil || req.AgentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing required field"})
		return
	}

	deleted, err := h.AgentService.DeleteAgent(c.Request.Context(), req.AgentID)
	switch {
	case err != nil:
		h.Logger.Error("failed to delete agent", zap.Int64("agent_id", req.AgentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "MySQL error"})
	case deleted:
		c.JSON(http.StatusOK, gin.H{"message": "Success!"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Failed!"})
	}
}

// UpdateLayout stores the agent dashboard layout
// POST /updateLayoutConfig
func (h *AgentHandler) UpdateLayout(c *gin.Context) {
	var req db.UpdateLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing Parameters"})
		return
	}

	updated, err := h.AgentService.UpdateLayout(c.Request.Context(), req.AgentID, req.Layout)
	switch {
	case errors.Is(err, services.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing Parameters"})
	case err != nil:
		h.Logger.Error("failed to update layout", zap.Int64("agent_id", req.AgentID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "MySQL error"})
	case updated:
		c.JSON(http.StatusOK, gin.H{"message": "Success!"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Failed!"})
	}
}
