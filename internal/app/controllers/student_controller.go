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

// StudentController manages student records
type StudentController struct {
	studentService services.StudentService
	logger         zerolog.Logger
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService services.StudentService, logger zerolog.Logger) *StudentController {
	return &StudentController{studentService: studentService, logger: logger}
}

// Profile returns the calling student's record
// @Summary Student profile
// @Tags student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.Student} "Profile"
// @Failure 404 {object} dto.ErrorResponse "Student profile not found"
// @Router /student/profile [get]
func (c *StudentController) Profile(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}

	student, err := c.studentService.Profile(ctx.Request.Context(), actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, ""))
}

// List lists active students
// @Summary List students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param grade_level query int false "Grade level 7-12"
// @Param strand query string false "Strand"
// @Param section query string false "Section"
// @Param school_year query string false "School year"
// @Param search query string false "Name, username or student ID"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Students"
// @Router /students [get]
func (c *StudentController) List(ctx *gin.Context) {
	grade, ok := queryInt(ctx, "grade_level")
	if !ok {
		return
	}
	filter := dto.StudentFilter{
		GradeLevel: grade,
		Strand:     ctx.Query("strand"),
		Section:    ctx.Query("section"),
		SchoolYear: ctx.Query("school_year"),
		Search:     ctx.Query("search"),
		ActiveOnly: ctx.Query("include_inactive") != "true",
	}
	page, size := helpers.ParsePaginationParams(ctx)

	students, total, err := c.studentService.List(ctx.Request.Context(), filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondPage(ctx, students, total, page, size, "")
}

// Search finds students by name, username or student ID
// @Summary Search students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search text"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Students"
// @Failure 400 {object} dto.ErrorResponse "Missing query"
// @Router /students/search [get]
func (c *StudentController) Search(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)

	students, total, err := c.studentService.Search(ctx.Request.Context(), ctx.Query("q"), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondPage(ctx, students, total, page, size, "")
}

// ListArchived lists archived students
// @Summary List archived students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Archived students"
// @Router /students/archived [get]
func (c *StudentController) ListArchived(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)

	students, total, err := c.studentService.ListArchived(ctx.Request.Context(), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondPage(ctx, students, total, page, size, "")
}

// Get returns one student
// @Summary Get a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [get]
func (c *StudentController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	student, err := c.studentService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, ""))
}

// Create adds a student account
// @Summary Add a student
// @Description Creates the user account and student record. Without a password the student receives an account setup email.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateStudentRequest true "Student"
// @Success 201 {object} dto.APIResponse{data=models.Student} "Student created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 409 {object} dto.ErrorResponse "Username, email or student ID already exists"
// @Router /students [post]
func (c *StudentController) Create(ctx *gin.Context) {
	var req dto.CreateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := c.studentService.Create(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("username", req.Username).Msg("Create student failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(student, "Student created successfully"))
}

// BulkCreate adds many students
// @Summary Bulk add students
// @Description Each row is created independently; failed rows are listed with their index and reason.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkAddStudentsRequest true "Students"
// @Success 200 {object} dto.APIResponse{data=dto.BulkAddResult} "Bulk add finished"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Router /students/bulk [post]
func (c *StudentController) BulkCreate(ctx *gin.Context) {
	var req dto.BulkAddStudentsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	result, err := c.studentService.BulkCreate(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Bulk add finished"))
}

// Update changes a student's record
// @Summary Update a student
// @Description A strand or section change is recorded in the strand change history.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param request body dto.UpdateStudentRequest true "Changes"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid enrollment"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [put]
func (c *StudentController) Update(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := c.studentService.Update(ctx.Request.Context(), actor.UserID, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Student updated successfully"))
}

// Archive archives a student
// @Summary Archive a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse "Student archived"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [delete]
func (c *StudentController) Archive(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.studentService.Archive(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Student archived successfully"))
}

// Restore brings an archived student back
// @Summary Restore an archived student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse "Student restored"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/archived/{id}/restore [post]
func (c *StudentController) Restore(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.studentService.Restore(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Student restored successfully"))
}

// Delete permanently removes an archived student
// @Summary Delete an archived student
// @Description Only archived students can be deleted. The user account and all related records are removed.
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse "Student deleted"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 409 {object} dto.ErrorResponse "Student is not archived"
// @Router /students/archived/{id} [delete]
func (c *StudentController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.studentService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("studentID", id).Msg("Student permanently deleted")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Student deleted permanently"))
}

// ViolationHistory returns a student's violations, tally and enrollment history
// @Summary Student violation history
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentViolationHistory} "History"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id}/violation-history [get]
func (c *StudentController) ViolationHistory(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	history, err := c.studentService.ViolationHistory(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(history, ""))
}

// UpdateMissingSchoolYear fills the school year of students without one
// @Summary Fill missing school years
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateSchoolYearRequest false "School year; defaults to the current one"
// @Success 200 {object} dto.APIResponse{data=map[string]int64} "Students updated"
// @Router /students/update-school-year [post]
func (c *StudentController) UpdateMissingSchoolYear(ctx *gin.Context) {
	var req dto.UpdateSchoolYearRequest
	if ctx.Request.ContentLength > 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	updated, err := c.studentService.UpdateMissingSchoolYear(ctx.Request.Context(), req.SchoolYear)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"updated": updated}, "School years updated"))
}
