package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/services"
	"github.com/schoolguidance/tracker/internal/middleware"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
)

// ViolationController serves violation records, tallies and the violation catalog
type ViolationController struct {
	violationService services.ViolationService
	logger           zerolog.Logger
}

// NewViolationController creates a new ViolationController
func NewViolationController(violationService services.ViolationService, logger zerolog.Logger) *ViolationController {
	return &ViolationController{violationService: violationService, logger: logger}
}

// Record adds a violation directly
// @Summary Record a violation
// @Description Records a violation for a student and refreshes their tally.
// @Tags counselor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RecordViolationRequest true "Violation"
// @Success 201 {object} dto.APIResponse{data=dto.RecordViolationResult} "Violation recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Student or violation type not found"
// @Router /counselor/violations [post]
func (c *ViolationController) Record(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req dto.RecordViolationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.violationService.Record(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		c.logger.Warn().Err(err).Int64("studentID", req.StudentID).Msg("Record violation failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(result, "Violation recorded successfully"))
}

// List lists violation records
// @Summary List violations
// @Tags counselor
// @Produce json
// @Security BearerAuth
// @Param student_id query int false "Student"
// @Param school_year query string false "School year"
// @Param status query string false "active, resolved, dismissed or appealed"
// @Param category query string false "Violation category"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Violations"
// @Router /counselor/violations [get]
func (c *ViolationController) List(ctx *gin.Context) {
	studentID, ok := queryInt64(ctx, "student_id")
	if !ok {
		return
	}
	filter := dto.ViolationFilter{
		StudentID:  studentID,
		SchoolYear: ctx.Query("school_year"),
		Status:     ctx.Query("status"),
		Category:   ctx.Query("category"),
	}
	page, size := helpers.ParsePaginationParams(ctx)

	records, total, err := c.violationService.List(ctx.Request.Context(), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondPage(ctx, records, total, page, size, "")
}

// Tallies lists per-student violation tallies
// @Summary List violation tallies
// @Tags counselor
// @Produce json
// @Security BearerAuth
// @Param grade_level query int false "Grade level 7-12"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Tallies"
// @Router /counselor/tallies [get]
func (c *ViolationController) Tallies(ctx *gin.Context) {
	grade, ok := queryInt(ctx, "grade_level")
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	tallies, total, err := c.violationService.Tallies(ctx.Request.Context(), grade, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondPage(ctx, tallies, total, page, size, "")
}

// ListTypes lists the violation catalog
// @Summary List violation types
// @Tags violation-types
// @Produce json
// @Security BearerAuth
// @Param include_inactive query bool false "Include inactive types"
// @Success 200 {object} dto.APIResponse{data=[]models.ViolationType} "Violation types"
// @Router /violation-types [get]
func (c *ViolationController) ListTypes(ctx *gin.Context) {
	activeOnly := ctx.Query("include_inactive") != "true"

	types, err := c.violationService.ListTypes(ctx.Request.Context(), activeOnly)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if types == nil {
		types = []models.ViolationType{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(types, ""))
}

// CreateType adds a violation type
// @Summary Create a violation type
// @Tags violation-types
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ViolationTypeRequest true "Violation type"
// @Success 201 {object} dto.APIResponse{data=models.ViolationType} "Violation type created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 409 {object} dto.ErrorResponse "Name already exists"
// @Router /violation-types [post]
func (c *ViolationController) CreateType(ctx *gin.Context) {
	var req dto.ViolationTypeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	vt, err := c.violationService.CreateType(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(vt, "Violation type created"))
}

// UpdateType changes a violation type
// @Summary Update a violation type
// @Tags violation-types
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Violation type ID"
// @Param request body dto.ViolationTypeRequest true "Violation type"
// @Success 200 {object} dto.APIResponse{data=models.ViolationType} "Violation type updated"
// @Failure 404 {object} dto.ErrorResponse "Violation type not found"
// @Router /violation-types/{id} [put]
func (c *ViolationController) UpdateType(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.ViolationTypeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	vt, err := c.violationService.UpdateType(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(vt, "Violation type updated"))
}
