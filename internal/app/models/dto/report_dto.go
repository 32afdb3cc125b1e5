package dto

import (
	"time"

	"github.com/schoolguidance/tracker/internal/app/models"
)

// SubmitReportRequest files a report. ReportedStudentName is matched against
// "First Last" of students; no match makes a student report a self-report.
type SubmitReportRequest struct {
	Title               string     `json:"title" binding:"required,max=255"`
	Description         string     `json:"description" binding:"required"`
	ReportedStudentID   *int64     `json:"reportedStudentId,omitempty"`
	ReportedStudentName string     `json:"reportedStudentName,omitempty"`
	ViolationTypeID     *int64     `json:"violationTypeId,omitempty"`
	CustomViolation     string     `json:"customViolation,omitempty"`
	Severity            string     `json:"severity,omitempty" binding:"omitempty,severity"`
	Location            string     `json:"location,omitempty"`
	Witnesses           string     `json:"witnesses,omitempty"`
	IncidentDate        *time.Time `json:"incidentDate,omitempty"`
}

// UpdateReportStatusRequest moves a report through the workflow
type UpdateReportStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes,omitempty"`
}

// GuidanceNoticeRequest summons the parties of a report
type GuidanceNoticeRequest struct {
	Message       string     `json:"message" binding:"required"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
}

// MarkInvalidRequest closes a report with no violation
type MarkInvalidRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ReportFilter narrows report lists
type ReportFilter struct {
	ReportType        models.ReportType
	Status            string
	SchoolYear        string
	ReportedStudentID *int64
	ReporterUserID    *int64
	Search            string
}

// TransitionResult is returned by every workflow endpoint
type TransitionResult struct {
	Report            *models.Report          `json:"report"`
	OldStatus         models.ReportStatus     `json:"oldStatus"`
	NewStatus         models.ReportStatus     `json:"newStatus"`
	Changed           bool                    `json:"changed"`
	ViolationRecord   *models.ViolationRecord `json:"violationRecord,omitempty"`
	NotificationsSent int                     `json:"notificationsSent"`
}
