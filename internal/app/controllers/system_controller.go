package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/services"
	"github.com/schoolguidance/tracker/internal/middleware"
)

// SystemController serves the system settings
type SystemController struct {
	settingsService services.SettingsService
	logger          zerolog.Logger
}

// NewSystemController creates a new SystemController
func NewSystemController(settingsService services.SettingsService, logger zerolog.Logger) *SystemController {
	return &SystemController{settingsService: settingsService, logger: logger}
}

// GetSettings returns the system settings
// @Summary Get system settings
// @Description Public so clients can show the current school year and the maintenance message.
// @Tags system
// @Produce json
// @Success 200 {object} dto.APIResponse{data=models.SystemSettings} "Settings"
// @Router /system/settings [get]
func (c *SystemController) GetSettings(ctx *gin.Context) {
	settings, err := c.settingsService.GetSettings(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, ""))
}

// UpdateSettings changes the system settings
// @Summary Update system settings
// @Description Setting isSystemActive=false freezes the system for everyone except administrators.
// @Tags system
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateSettingsRequest true "Changes"
// @Success 200 {object} dto.APIResponse{data=models.SystemSettings} "Settings updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid settings"
// @Router /system/settings [put]
func (c *SystemController) UpdateSettings(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req dto.UpdateSettingsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	settings, err := c.settingsService.UpdateSettings(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("adminUserID", actor.UserID).
		Bool("isSystemActive", settings.IsSystemActive).
		Str("currentSchoolYear", settings.CurrentSchoolYear).
		Msg("System settings updated")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, "Settings updated"))
}

// Ping is the liveness probe
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string "pong"
// @Router /ping [get]
func (c *SystemController) Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "pong"})
}
