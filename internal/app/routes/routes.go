package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/schoolguidance/tracker/internal/app/controllers"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/middleware"
)

// Controllers groups every HTTP controller the router mounts
type Controllers struct {
	Auth          *controllers.AuthController
	Students      *controllers.StudentController
	Teachers      *controllers.TeacherController
	Reports       *controllers.ReportController
	Violations    *controllers.ViolationController
	Notifications *controllers.NotificationController
	SchoolYears   *controllers.SchoolYearController
	Counselor     *controllers.CounselorController
	System        *controllers.SystemController
	// WebSocket upgrades /notifications/ws; it authenticates on its own
	WebSocket gin.HandlerFunc
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/ping", c.System.Ping)

	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
		auth.POST("/logout", c.Auth.Logout)
		auth.POST("/forgot-password", c.Auth.ForgotPassword)
		auth.POST("/reset-password", c.Auth.ResetPassword)
	}
	v1.GET("/system/settings", c.System.GetSettings)

	if c.WebSocket != nil {
		v1.GET("/notifications/ws", c.WebSocket)
	}

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/profile", c.Auth.Profile)
	authenticated.GET("/violation-types", c.Violations.ListTypes)

	notifications := authenticated.Group("/notifications")
	{
		notifications.GET("", c.Notifications.List)
		notifications.GET("/unread-count", c.Notifications.UnreadCount)
		notifications.POST("/:id/read", c.Notifications.MarkAsRead)
		notifications.POST("/read-all", c.Notifications.MarkAllAsRead)
		notifications.DELETE("/:id", c.Notifications.Delete)

		staff := notifications.Group("")
		staff.Use(authMiddleware.RolesAllowed(models.RoleCounselor, models.RoleAdmin))
		{
			staff.POST("/counseling", c.Notifications.SendCounseling)
			staff.POST("/bulk", c.Notifications.SendBulk)
		}
	}

	student := authenticated.Group("/student")
	student.Use(authMiddleware.RolesAllowed(models.RoleStudent))
	{
		student.GET("/profile", c.Students.Profile)
		student.GET("/reports", c.Reports.ListMine)
		student.POST("/reports", c.Reports.Submit)
		student.GET("/notifications", c.Notifications.List)
	}

	teacher := authenticated.Group("/teacher")
	teacher.Use(authMiddleware.RolesAllowed(models.RoleTeacher))
	{
		teacher.GET("/profile", c.Teachers.Profile)
		teacher.GET("/advising-students", c.Teachers.AdvisingStudents)
		teacher.GET("/advisory-section", c.Teachers.AdvisorySection)
		teacher.POST("/advisory-section", c.Teachers.UpdateAdvisorySection)
		teacher.GET("/reports", c.Reports.ListMine)
		teacher.POST("/reports", c.Reports.Submit)
		teacher.GET("/notifications", c.Notifications.List)
	}

	counselor := authenticated.Group("/counselor")
	counselor.Use(authMiddleware.RolesAllowed(models.RoleCounselor))
	{
		counselor.GET("/reports", c.Reports.List)
		counselor.GET("/reports/:id", c.Reports.Get)
		counselor.POST("/reports/:id/status", c.Reports.UpdateStatus)
		counselor.POST("/reports/:id/guidance-notice", c.Reports.SendGuidanceNotice)
		counselor.POST("/reports/:id/invalid", c.Reports.MarkInvalid)

		counselor.POST("/violations", c.Violations.Record)
		counselor.GET("/violations", c.Violations.List)
		counselor.GET("/tallies", c.Violations.Tallies)

		counselor.GET("/dashboard/stats", c.Counselor.Stats)
		counselor.GET("/dashboard/analytics", c.Counselor.Analytics)
		counselor.GET("/school-years", c.SchoolYears.Available)

		counselor.GET("/counseling-sessions", c.Counselor.ListSessions)
		counselor.POST("/counseling-sessions", c.Counselor.CreateSession)
		counselor.PUT("/counseling-sessions/:id", c.Counselor.UpdateSession)
	}

	// Student management is shared by counselors and admins
	students := authenticated.Group("/students")
	students.Use(authMiddleware.RolesAllowed(models.RoleCounselor, models.RoleAdmin))
	{
		students.GET("", c.Students.List)
		students.POST("", c.Students.Create)
		students.POST("/bulk", c.Students.BulkCreate)
		students.GET("/search", c.Students.Search)
		students.GET("/archived", c.Students.ListArchived)
		students.POST("/archived/:id/restore", c.Students.Restore)
		students.DELETE("/archived/:id", c.Students.Delete)
		students.POST("/update-school-year", c.Students.UpdateMissingSchoolYear)
		students.GET("/:id", c.Students.Get)
		students.PUT("/:id", c.Students.Update)
		students.DELETE("/:id", c.Students.Archive)
		students.GET("/:id/violation-history", c.Students.ViolationHistory)
	}

	violationTypes := authenticated.Group("/violation-types")
	violationTypes.Use(authMiddleware.RolesAllowed(models.RoleCounselor, models.RoleAdmin))
	{
		violationTypes.POST("", c.Violations.CreateType)
		violationTypes.PUT("/:id", c.Violations.UpdateType)
	}

	schoolYears := authenticated.Group("/school-years")
	{
		schoolYears.GET("", c.SchoolYears.Available)

		staff := schoolYears.Group("")
		staff.Use(authMiddleware.RolesAllowed(models.RoleCounselor, models.RoleAdmin))
		{
			staff.POST("/rollover", c.SchoolYears.Rollover)
		}

		counselorOnly := schoolYears.Group("")
		counselorOnly.Use(authMiddleware.RolesAllowed(models.RoleCounselor))
		{
			counselorOnly.POST("/promote", c.SchoolYears.Promote)
			counselorOnly.POST("/bulk-promote", c.SchoolYears.BulkPromote)
			counselorOnly.GET("/promotion-preview", c.SchoolYears.Preview)
		}
	}

	admin := authenticated.Group("/admin")
	admin.Use(authMiddleware.RolesAllowed(models.RoleAdmin))
	{
		admin.GET("/teachers/pending", c.Teachers.ListPending)
		admin.POST("/teachers/:id/approve", c.Teachers.Approve)
		admin.POST("/teachers/:id/reject", c.Teachers.Reject)
	}

	system := authenticated.Group("/system")
	system.Use(authMiddleware.RolesAllowed(models.RoleAdmin))
	{
		system.PUT("/settings", c.System.UpdateSettings)
	}
}
