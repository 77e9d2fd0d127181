package handlers

import (
	"errors"
	"net/http"

	"github.com/agentportal/aserver/db"
	"github.com/agentportal/aserver/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// storeErrorMessage is the legacy failure text clients match on.
const storeErrorMessage = "mysql Error"

type OperatingHoursHandler struct {
	Service *services.OperatingHoursService
	Logger  *zap.Logger

	// LegacyStatusCodes reports store failures as 200 with a failure payload.
	LegacyStatusCodes bool
}

func NewOperatingHoursHandler(service *services.OperatingHoursService, logger *zap.Logger, legacyStatusCodes bool) *OperatingHoursHandler {
	return &OperatingHoursHandler{Service: service, Logger: logger, LegacyStatusCodes: legacyStatusCodes}
}

func (h *OperatingHoursHandler) storeFailureStatus() int {
	if h.LegacyStatusCodes {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// GetOperatingHours reports the stored schedule and whether the center is open now
// GET /OperatingHours
func (h *OperatingHoursHandler) GetOperatingHours(c *gin.Context) {
	status, err := h.Service.Status(c.Request.Context())
	if err != nil {
		h.Logger.Error("failed to read operating hours", zap.Error(err))
		c.JSON(h.storeFailureStatus(), gin.H{"status": "Failure", "message": storeErrorMessage})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "Success",
		"message":       "Server responding with Start and End times",
		"start":         status.Start,
		"end":           status.End,
		"mode":          status.Mode,
		"business_mode": status.BusinessMode,
		"isOpen":        status.IsOpen,
		"current":       status.Current,
	})
}

// SetOperatingHours stores a new schedule
// POST /OperatingHours
func (h *OperatingHoursHandler) SetOperatingHours(c *gin.Context) {
	var req db.SetOperatingHoursRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "Failure", "message": "Invalid request body: " + err.Error()})
		return
	}

	_, err := h.Service.SetSchedule(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "Success"})
	case errors.Is(err, services.ErrMissingParameters):
		c.JSON(http.StatusBadRequest, gin.H{"status": "Failure", "message": "Missing Parameters"})
	case errors.Is(err, db.ErrInvalidTimeOfDay), errors.Is(err, db.ErrInvalidBusinessMode):
		c.JSON(http.StatusBadRequest, gin.H{"status": "Failure", "message": err.Error()})
	default:
		h.Logger.Error("failed to store operating hours", zap.Error(err))
		c.JSON(h.storeFailureStatus(), gin.H{"status": "Failure", "message": storeErrorMessage})
	}
}
