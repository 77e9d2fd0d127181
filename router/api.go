package router

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agentportal/aserver/handlers"
	"github.com/agentportal/aserver/internal/telephony"
	"github.com/agentportal/aserver/services"
)

// Deps are the process-wide collaborators the routes are built from.
type Deps struct {
	PG       *sql.DB
	Notifier telephony.Notifier
	Logger   *zap.Logger

	Schedule *services.OperatingHoursService
	// Tokens is nil when no JWT secret is configured; routes are then open.
	Tokens *services.TokenService

	LegacyStatusCodes bool
}

func NewGinRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestID())
	r.Use(handlers.RequestLogger(deps.Logger))
	r.Use(handlers.CORS())

	// Initialize services
	extensionResolver := services.NewExtensionResolver(deps.PG)
	agentService := services.NewAgentService(deps.PG, extensionResolver, deps.Logger)
	scriptService := services.NewScriptService(deps.PG)
	scheduleService := deps.Schedule
	if scheduleService == nil {
		scheduleService = services.NewOperatingHoursService(deps.PG, deps.Notifier, deps.Logger, nil)
	}

	// Initialize handlers
	agentHandler := handlers.NewAgentHandler(agentService, deps.Tokens, deps.Logger, deps.LegacyStatusCodes)
	scriptHandler := handlers.NewScriptHandler(scriptService, deps.Logger)
	operatingHoursHandler := handlers.NewOperatingHoursHandler(scheduleService, deps.Logger, deps.LegacyStatusCodes)
	healthHandler := handlers.NewHealthHandler(deps.PG)
	authMiddleware := handlers.NewAuthMiddleware(deps.Tokens, deps.Logger)

	// PUBLIC ROUTES
	r.GET("/", agentHandler.Welcome)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/agentverify", agentHandler.VerifyAgent)
	r.GET("/OperatingHours", operatingHoursHandler.GetOperatingHours)

	// AGENT ROUTES (session token required when auth is configured)
	agent := r.Group("/")
	agent.Use(authMiddleware.RequireAgent())
	{
		agent.GET("/getallagentrecs", agentHandler.GetAllAgents)
		agent.GET("/getagentrec/:username", agentHandler.GetAgent)
		agent.GET("/getscript", scriptHandler.GetScript)
		agent.GET("/getallscripts", scriptHandler.GetAllScripts)

		agent.POST("/updateProfile", agentHandler.UpdateProfile)
		agent.POST("/addAgents", agentHandler.AddAgents)
		agent.POST("/DeleteAgent", agentHandler.DeleteAgent)
		agent.POST("/updateLayoutConfig", agentHandler.UpdateLayout)
		agent.POST("/OperatingHours", operatingHoursHandler.SetOperatingHours)
	}

	return r
}
