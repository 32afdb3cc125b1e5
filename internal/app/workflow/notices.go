package workflow

import (
	"fmt"

	"github.com/schoolguidance/tracker/internal/app/models"
)

// Notice is a notification to be stored and pushed
type Notice struct {
	UserID   int64
	Title    string
	Message  string
	Type     models.NotificationType
	ReportID *int64
}

// NoticeContext carries what the notice texts need about a report
type NoticeContext struct {
	ReportID   int64
	Title      string
	ReportType models.ReportType

	// User ids; zero when absent
	ReporterUserID int64
	StudentUserID  int64
	CounselorIDs   []int64

	// Message overrides the summons text; Reason is the invalid/dismiss reason
	Message string
	Reason  string

	// Filled for verified reports
	ViolationName   string
	Category        string
	SeverityLevel   models.SeverityLevel
	TotalViolations int
}

func (c NoticeContext) reporterIsStudent() bool {
	return c.ReporterUserID != 0 && c.ReporterUserID == c.StudentUserID
}

// Notices returns the fan-out for a plan. A no-op plan notifies nobody unless
// force is set (re-sending a summons).
func Notices(plan Plan, c NoticeContext, force bool) []Notice {
	if !plan.Changed && !force {
		return nil
	}

	reportID := c.ReportID
	var out []Notice
	add := func(userID int64, title, message string, typ models.NotificationType) {
		if userID == 0 {
			return
		}
		out = append(out, Notice{UserID: userID, Title: title, Message: message, Type: typ, ReportID: &reportID})
	}

	switch plan.To {
	case models.StatusSummoned:
		msg := c.Message
		if msg == "" {
			msg = fmt.Sprintf("You have been summoned to the guidance office regarding %q. Please report as soon as possible.", c.Title)
		}
		add(c.StudentUserID, "Guidance Office Notice", msg, models.NotificationSummons)
		if !c.reporterIsStudent() {
			if c.ReportType == models.ReportTypeTeacher {
				add(c.ReporterUserID, "Guidance Notice Sent",
					fmt.Sprintf("A guidance notice has been sent regarding your report: %s", c.Title),
					models.NotificationSystemAlert)
			} else {
				add(c.ReporterUserID, "Guidance Office Notice", msg, models.NotificationSummons)
			}
		}

	case models.StatusVerified:
		add(c.StudentUserID, "Violation Notice",
			fmt.Sprintf("The report %q has been validated after counseling. It will be tallied as a violation: %s (%s).",
				c.Title, c.ViolationName, c.SeverityLevel),
			models.NotificationViolation)
		if !c.reporterIsStudent() {
			add(c.ReporterUserID, "Report Status Update",
				fmt.Sprintf("Report %q has been updated to: %s", c.Title, plan.To),
				models.NotificationReportUpdated)
		}
		for _, id := range c.CounselorIDs {
			add(id, "New Violation Recorded",
				fmt.Sprintf("Violation recorded from report %q.\nType: %s\nCategory: %s\nSeverity: %s\nStudent total violations: %d",
					c.Title, c.ViolationName, c.Category, c.SeverityLevel, c.TotalViolations),
				models.NotificationViolation)
		}

	case models.StatusInvalid:
		reason := c.Reason
		if reason == "" {
			reason = DefaultInvalidReason
		}
		if !c.reporterIsStudent() {
			add(c.ReporterUserID, fmt.Sprintf("Report Invalid: %s", c.Title),
				fmt.Sprintf("Your report %q has been marked as INVALID after investigation.\n\nReason: %s\n\n"+
					"The reported incident was investigated and found to be unsubstantiated. No violation will be tallied.",
					c.Title, reason),
				models.NotificationReportInvalid)
		}
		add(c.StudentUserID, "Report Cleared - No Violation",
			fmt.Sprintf("After investigation, the report concerning you has been marked as INVALID.\n\nReport: %s\nReason: %s\n\n"+
				"No violation has been recorded in your file.", c.Title, reason),
			models.NotificationReportCleared)

	case models.StatusDismissed:
		add(c.StudentUserID, "Report Status Update",
			fmt.Sprintf("The report %q has been dismissed after investigation. No violation will be recorded.", c.Title),
			models.NotificationReportCleared)
		if !c.reporterIsStudent() {
			add(c.ReporterUserID, "Report Status Update",
				fmt.Sprintf("Report %q has been updated to: %s", c.Title, plan.To),
				models.NotificationReportUpdated)
		}

	default:
		studentMsg := fmt.Sprintf("Report %q status updated to: %s", c.Title, plan.To)
		if plan.To == models.StatusResolved {
			studentMsg = fmt.Sprintf("The report %q has been resolved and closed.", c.Title)
		}
		add(c.StudentUserID, "Report Status Update", studentMsg, models.NotificationReportUpdated)
		if !c.reporterIsStudent() {
			add(c.ReporterUserID, "Report Status Update",
				fmt.Sprintf("Report %q has been updated to: %s", c.Title, plan.To),
				models.NotificationReportUpdated)
		}
	}

	return out
}
