package dto

import "time"

// CounselingNotificationRequest tells a student about a counseling schedule
type CounselingNotificationRequest struct {
	StudentID     int64      `json:"studentId" binding:"required,min=1"`
	ReportID      *int64     `json:"reportId,omitempty"`
	Message       string     `json:"message" binding:"required"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
}

// BulkNotificationRequest sends one message to many users. When UserIDs is
// empty, RoleType/GradeLevel select the audience.
type BulkNotificationRequest struct {
	Title      string  `json:"title" binding:"required,max=255"`
	Message    string  `json:"message" binding:"required"`
	UserIDs    []int64 `json:"userIds,omitempty"`
	RoleType   string  `json:"roleType,omitempty" binding:"omitempty,oneof=STUDENT TEACHER COUNSELOR"`
	GradeLevel *int    `json:"gradeLevel,omitempty" binding:"omitempty,gradelevel"`
	Type       string  `json:"type,omitempty" binding:"omitempty,oneof=system_alert reminder announcement"`
}

// BulkNotificationResult reports how many users were notified
type BulkNotificationResult struct {
	Sent int `json:"sent"`
}

// UnreadCount is the unread badge value
type UnreadCount struct {
	Count int64 `json:"count"`
}
