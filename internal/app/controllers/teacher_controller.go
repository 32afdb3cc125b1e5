package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/services"
	"github.com/schoolguidance/tracker/internal/middleware"
)

// TeacherController serves teacher profiles and the admin approval queue
type TeacherController struct {
	teacherService services.TeacherService
	logger         zerolog.Logger
}

// NewTeacherController creates a new TeacherController
func NewTeacherController(teacherService services.TeacherService, logger zerolog.Logger) *TeacherController {
	return &TeacherController{teacherService: teacherService, logger: logger}
}

// Profile returns the calling teacher's record
// @Summary Teacher profile
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.Teacher} "Profile"
// @Failure 404 {object} dto.ErrorResponse "Teacher profile not found"
// @Router /teacher/profile [get]
func (c *TeacherController) Profile(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	teacher, err := c.teacherService.Profile(ctx.Request.Context(), actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(teacher, ""))
}

// AdvisingStudents lists the students of the teacher's advisory class
// @Summary Advisory class students
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Student} "Students"
// @Router /teacher/advising-students [get]
func (c *TeacherController) AdvisingStudents(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	students, err := c.teacherService.AdvisingStudents(ctx.Request.Context(), actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if students == nil {
		students = []models.Student{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(students, ""))
}

// AdvisorySection returns the advisory class with violation counts per school year
// @Summary Advisory section overview
// @Tags teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AdvisorySection} "Advisory section"
// @Failure 404 {object} dto.ErrorResponse "Teacher profile not found"
// @Router /teacher/advisory-section [get]
func (c *TeacherController) AdvisorySection(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	section, err := c.teacherService.AdvisorySection(ctx.Request.Context(), actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(section, ""))
}

// UpdateAdvisorySection reassigns section, grade and strand of advisees
// @Summary Update advisory section placements
// @Tags teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateAdvisorySectionRequest true "Placement updates"
// @Success 200 {object} dto.APIResponse{data=dto.AdvisoryUpdateResult} "Per-row result"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Teacher has no advisory class"
// @Router /teacher/advisory-section [post]
func (c *TeacherController) UpdateAdvisorySection(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req dto.UpdateAdvisorySectionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.teacherService.UpdateAdvisorySection(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, fmt.Sprintf("Updated %d students", result.Updated)))
}

// ListPending lists teacher registrations awaiting approval
// @Summary Pending teacher registrations
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Teacher} "Pending teachers"
// @Router /admin/teachers/pending [get]
func (c *TeacherController) ListPending(ctx *gin.Context) {
	teachers, err := c.teacherService.ListPending(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if teachers == nil {
		teachers = []models.Teacher{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(teachers, ""))
}

// Approve activates a teacher account
// @Summary Approve a teacher
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Teacher ID"
// @Success 200 {object} dto.APIResponse{data=models.Teacher} "Teacher approved"
// @Failure 404 {object} dto.ErrorResponse "Teacher not found"
// @Failure 409 {object} dto.ErrorResponse "Teacher already approved"
// @Router /admin/teachers/{id}/approve [post]
func (c *TeacherController) Approve(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	teacher, err := c.teacherService.Approve(ctx.Request.Context(), actor.UserID, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(teacher, "Teacher approved"))
}

// Reject declines a teacher registration
// @Summary Reject a teacher
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Teacher ID"
// @Param request body dto.RejectTeacherRequest false "Reason"
// @Success 200 {object} dto.APIResponse{data=models.Teacher} "Teacher rejected"
// @Failure 404 {object} dto.ErrorResponse "Teacher not found"
// @Failure 409 {object} dto.ErrorResponse "Teacher already rejected"
// @Router /admin/teachers/{id}/reject [post]
func (c *TeacherController) Reject(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.RejectTeacherRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	teacher, err := c.teacherService.Reject(ctx.Request.Context(), actor.UserID, id, req.Reason)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(teacher, "Teacher rejected"))
}
