package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/services"
	"github.com/schoolguidance/tracker/internal/middleware"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
)

// CounselorController serves the counselor dashboard and counseling sessions
type CounselorController struct {
	dashboardService  services.DashboardService
	counselingService services.CounselingService
	logger            zerolog.Logger
}

// NewCounselorController creates a new CounselorController
func NewCounselorController(dashboardService services.DashboardService, counselingService services.CounselingService, logger zerolog.Logger) *CounselorController {
	return &CounselorController{
		dashboardService:  dashboardService,
		counselingService: counselingService,
		logger:            logger,
	}
}

// Stats returns the dashboard totals
// @Summary Dashboard statistics
// @Tags counselor
// @Produce json
// @Security BearerAuth
// @Param school_year query string false "School year; defaults to the current one"
// @Success 200 {object} dto.APIResponse{data=dto.DashboardStats} "Statistics"
// @Router /counselor/dashboard/stats [get]
func (c *CounselorController) Stats(ctx *gin.Context) {
	stats, err := c.dashboardService.Stats(ctx.Request.Context(), ctx.Query("school_year"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}

// Analytics returns violation breakdowns
// @Summary Violation analytics
// @Tags counselor
// @Produce json
// @Security BearerAuth
// @Param school_year query string false "School year; defaults to the current one"
// @Success 200 {object} dto.APIResponse{data=dto.Analytics} "Analytics"
// @Router /counselor/dashboard/analytics [get]
func (c *CounselorController) Analytics(ctx *gin.Context) {
	analytics, err := c.dashboardService.Analytics(ctx.Request.Context(), ctx.Query("school_year"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(analytics, ""))
}

// ListSessions lists counseling sessions
// @Summary List counseling sessions
// @Tags counselor
// @Produce json
// @Security BearerAuth
// @Param mine query bool false "Only sessions of the calling counselor"
// @Param student_id query int false "Student"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Sessions"
// @Router /counselor/counseling-sessions [get]
func (c *CounselorController) ListSessions(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	studentID, ok := queryInt64(ctx, "student_id")
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	sessions, total, err := c.counselingService.List(ctx.Request.Context(), actor.UserID, ctx.Query("mine") == "true", studentID, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondPage(ctx, sessions, total, page, size, "")
}

// CreateSession schedules a counseling session
// @Summary Schedule a counseling session
// @Description The student is notified of the schedule.
// @Tags counselor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CounselingSessionRequest true "Session"
// @Success 201 {object} dto.APIResponse{data=models.CounselingSession} "Session scheduled"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /counselor/counseling-sessions [post]
func (c *CounselorController) CreateSession(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req dto.CounselingSessionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	session, err := c.counselingService.Create(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(session, "Counseling session scheduled"))
}

// UpdateSession records the outcome of a session
// @Summary Update a counseling session
// @Tags counselor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Param request body dto.UpdateCounselingSessionRequest true "Changes"
// @Success 200 {object} dto.APIResponse{data=models.CounselingSession} "Session updated"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /counselor/counseling-sessions/{id} [put]
func (c *CounselorController) UpdateSession(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateCounselingSessionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	session, err := c.counselingService.Update(ctx.Request.Context(), actor.UserID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(session, "Counseling session updated"))
}
