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

// ReportController serves report submission and the counselor review workflow
type ReportController struct {
	reportService services.ReportService
	logger        zerolog.Logger
}

// NewReportController creates a new ReportController
func NewReportController(reportService services.ReportService, logger zerolog.Logger) *ReportController {
	return &ReportController{reportService: reportService, logger: logger}
}

// Submit files a report as the calling student or teacher
// @Summary Submit a report
// @Description Students may name another student or leave the name empty to file a self-report. Teachers must name an existing student. Every counselor is notified.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SubmitReportRequest true "Report"
// @Success 201 {object} dto.APIResponse{data=models.Report} "Report submitted"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /student/reports [post]
// @Router /teacher/reports [post]
func (c *ReportController) Submit(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req dto.SubmitReportRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	rep, err := c.reportService.Submit(ctx.Request.Context(), actor, &req)
	if err != nil {
		c.logger.Warn().Err(err).Int64("userID", actor.UserID).Msg("Report submission failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(rep, "Report submitted successfully"))
}

// ListMine lists the caller's own reports
// @Summary List my reports
// @Description Students see reports they filed and reports filed about them. Teachers see the reports they filed.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Report} "Reports"
// @Router /student/reports [get]
// @Router /teacher/reports [get]
func (c *ReportController) ListMine(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	reports, err := c.reportService.ListMine(ctx.Request.Context(), actor)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(reports, ""))
}

// List lists every report for counselors
// @Summary List reports
// @Tags counselor
// @Produce json
// @Security BearerAuth
// @Param type query string false "student or teacher" Enums(student, teacher)
// @Param status query string false "Report status"
// @Param school_year query string false "School year, e.g. 2024-2025"
// @Param student_id query int false "Reported student"
// @Param search query string false "Matches title and description"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Reports"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /counselor/reports [get]
func (c *ReportController) List(ctx *gin.Context) {
	studentID, ok := queryInt64(ctx, "student_id")
	if !ok {
		return
	}
	filter := dto.ReportFilter{
		ReportType:        models.ReportType(ctx.Query("type")),
		Status:            ctx.Query("status"),
		SchoolYear:        ctx.Query("school_year"),
		ReportedStudentID: studentID,
		Search:            ctx.Query("search"),
	}
	page, size := helpers.ParsePaginationParams(ctx)

	reports, total, err := c.reportService.List(ctx.Request.Context(), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondPage(ctx, reports, total, page, size, "")
}

// Get returns one report
// @Summary Get a report
// @Tags counselor
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Success 200 {object} dto.APIResponse{data=models.Report} "Report"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Router /counselor/reports/{id} [get]
func (c *ReportController) Get(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	rep, err := c.reportService.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(rep, ""))
}

// UpdateStatus moves a report through the workflow
// @Summary Update report status
// @Description Applies a workflow transition. Verifying a report records a violation and refreshes the student's tally; resolving closes it. Re-applying the current status is a no-op.
// @Tags counselor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param request body dto.UpdateReportStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResult} "Status updated"
// @Failure 400 {object} dto.ErrorResponse "Unknown status"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Router /counselor/reports/{id}/status [post]
func (c *ReportController) UpdateStatus(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateReportStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.reportService.UpdateStatus(ctx.Request.Context(), actor.UserID, id, &req)
	if err != nil {
		c.logger.Warn().Err(err).Int64("reportID", id).Str("status", req.Status).Msg("Report status update failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, transitionMessage(result)))
}

// SendGuidanceNotice summons the parties of a report
// @Summary Send guidance notice
// @Description Marks the report summoned and notifies the reported student and the reporter. Sending it again re-notifies them.
// @Tags counselor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param request body dto.GuidanceNoticeRequest true "Notice"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResult} "Notice sent"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Router /counselor/reports/{id}/guidance-notice [post]
func (c *ReportController) SendGuidanceNotice(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.GuidanceNoticeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.reportService.SendGuidanceNotice(ctx.Request.Context(), actor.UserID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Guidance notice sent"))
}

// MarkInvalid closes a report without a violation
// @Summary Mark report invalid
// @Tags counselor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param request body dto.MarkInvalidRequest false "Reason"
// @Success 200 {object} dto.APIResponse{data=dto.TransitionResult} "Report marked invalid"
// @Failure 404 {object} dto.ErrorResponse "Report not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Router /counselor/reports/{id}/invalid [post]
func (c *ReportController) MarkInvalid(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.MarkInvalidRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.reportService.MarkInvalid(ctx.Request.Context(), actor.UserID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Report marked as invalid"))
}

func transitionMessage(result *dto.TransitionResult) string {
	if !result.Changed {
		return "Report already has this status"
	}
	return "Report status updated to " + string(result.NewStatus)
}
