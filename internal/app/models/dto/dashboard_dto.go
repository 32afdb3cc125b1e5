package dto

import "github.com/schoolguidance/tracker/internal/app/models"

// DashboardStats is the counselor dashboard summary
type DashboardStats struct {
	SchoolYear           string                   `json:"schoolYear"`
	TotalStudents        int64                    `json:"totalStudents"`
	TotalViolations      int64                    `json:"totalViolations"`
	TotalReports         int64                    `json:"totalReports"`
	PendingReports       int64                    `json:"pendingReports"`
	ViolationsBySeverity map[string]int64         `json:"violationsBySeverity"`
	RecentViolations     []models.ViolationRecord `json:"recentViolations"`
}

// Analytics breaks violations down for charts
type Analytics struct {
	SchoolYear        string           `json:"schoolYear"`
	ByCategory        map[string]int64 `json:"byCategory"`
	BySeverity        map[string]int64 `json:"bySeverity"`
	ByMonth           map[string]int64 `json:"byMonth"`
	ByGradeLevel      map[string]int64 `json:"byGradeLevel"`
	ReportsByStatus   map[string]int64 `json:"reportsByStatus"`
	TopViolationTypes []CountByName    `json:"topViolationTypes"`
}

// CountByName is a labelled counter
type CountByName struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
