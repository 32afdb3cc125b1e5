package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/services"
	"github.com/schoolguidance/tracker/internal/middleware"
)

// SchoolYearController serves school years, rollover and promotion
type SchoolYearController struct {
	schoolYearService services.SchoolYearService
	logger            zerolog.Logger
}

// NewSchoolYearController creates a new SchoolYearController
func NewSchoolYearController(schoolYearService services.SchoolYearService, logger zerolog.Logger) *SchoolYearController {
	return &SchoolYearController{schoolYearService: schoolYearService, logger: logger}
}

// Available lists the known school years, newest first
// @Summary Available school years
// @Tags school-years
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]string} "School years"
// @Router /school-years [get]
// @Router /counselor/school-years [get]
func (c *SchoolYearController) Available(ctx *gin.Context) {
	years, err := c.schoolYearService.Available(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(years, ""))
}

// Rollover moves every enrolled student into the next school year
// @Summary Roll over the school year
// @Description Archives each student's current year, promotes them one grade and makes the new year current. A dry run reports the counts and changes nothing.
// @Tags school-years
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RolloverRequest false "Rollover options"
// @Success 200 {object} dto.APIResponse{data=dto.RolloverResult} "Rollover finished"
// @Failure 400 {object} dto.ErrorResponse "Invalid school year"
// @Router /school-years/rollover [post]
func (c *SchoolYearController) Rollover(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req dto.RolloverRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.schoolYearService.Rollover(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		c.logger.Error().Err(err).Str("newSchoolYear", req.NewSchoolYear).Msg("Rollover failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	message := "School year rollover completed"
	if result.DryRun {
		message = "Dry run completed, no changes were saved"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, message))
}

// Promote applies per-student promotion decisions
// @Summary Promote students
// @Tags school-years
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PromoteRequest true "Decisions"
// @Success 200 {object} dto.APIResponse{data=dto.PromotionResult} "Promotion finished"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Router /school-years/promote [post]
func (c *SchoolYearController) Promote(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req dto.PromoteRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.schoolYearService.Promote(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Promotion completed"))
}

// BulkPromote promotes a whole grade
// @Summary Bulk promote a grade
// @Description Grade 12 students graduate; everyone else moves up one grade.
// @Tags school-years
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkPromoteRequest true "Grade and years"
// @Success 200 {object} dto.APIResponse{data=dto.PromotionResult} "Promotion finished"
// @Router /school-years/bulk-promote [post]
func (c *SchoolYearController) BulkPromote(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req dto.BulkPromoteRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.schoolYearService.BulkPromote(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Bulk promotion completed"))
}

// Preview suggests a promotion action per student
// @Summary Promotion preview
// @Tags school-years
// @Produce json
// @Security BearerAuth
// @Param school_year query string false "School year; defaults to the current one"
// @Success 200 {object} dto.APIResponse{data=dto.PromotionPreview} "Preview"
// @Router /school-years/promotion-preview [get]
func (c *SchoolYearController) Preview(ctx *gin.Context) {
	preview, err := c.schoolYearService.Preview(ctx.Request.Context(), ctx.Query("school_year"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(preview, ""))
}
