package models

import "time"

// NotificationType categorizes a notification
type NotificationType string

const (
	NotificationSystemAlert       NotificationType = "system_alert"
	NotificationReportSubmitted   NotificationType = "report_submitted"
	NotificationReportUpdated     NotificationType = "report_updated"
	NotificationReminder          NotificationType = "reminder"
	NotificationAnnouncement      NotificationType = "announcement"
	NotificationGradePromotion    NotificationType = "grade_promotion"
	NotificationStrandChange      NotificationType = "strand_change"
	NotificationSummons           NotificationType = "summons"
	NotificationReportInvalid     NotificationType = "report_invalid"
	NotificationReportCleared     NotificationType = "report_cleared"
	NotificationViolation         NotificationType = "violation_recorded"
	NotificationTeacherRegistered NotificationType = "teacher_registration"
	NotificationCounseling        NotificationType = "counseling_schedule"
)

// Notification is an in-app message for one user
type Notification struct {
	ID               int64            `json:"id" db:"id"`
	UserID           int64            `json:"userId" db:"user_id"`
	Title            string           `json:"title" db:"title"`
	Message          string           `json:"message" db:"message"`
	NotificationType NotificationType `json:"notificationType" db:"notification_type"`
	IsRead           bool             `json:"isRead" db:"is_read"`
	RelatedReportID  *int64           `json:"relatedReportId,omitempty" db:"related_report_id"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
}

// SystemSettings is the singleton configuration row
type SystemSettings struct {
	CurrentSchoolYear   string     `json:"currentSchoolYear" db:"current_school_year" example:"2024-2025"`
	SchoolYearStartDate *time.Time `json:"schoolYearStartDate,omitempty" db:"school_year_start_date"`
	SchoolYearEndDate   *time.Time `json:"schoolYearEndDate,omitempty" db:"school_year_end_date"`
	IsSystemActive      bool       `json:"isSystemActive" db:"is_system_active"`
	SystemMessage       string     `json:"systemMessage,omitempty" db:"system_message"`
	UpdatedBy           *int64     `json:"updatedBy,omitempty" db:"updated_by"`
	LastUpdated         time.Time  `json:"lastUpdated" db:"last_updated"`
}
