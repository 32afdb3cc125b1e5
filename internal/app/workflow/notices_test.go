package workflow

import (
	"testing"

	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipients(ns []Notice) []int64 {
	ids := make([]int64, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, n.UserID)
	}
	return ids
}

func plan(t *testing.T, from models.ReportStatus, to string) Plan {
	t.Helper()
	p, err := PlanTransition(from, to)
	require.NoError(t, err)
	return p
}

func TestNotices_VerifyNotifiesStudentReporterAndEveryCounselor(t *testing.T) {
	ctx := NoticeContext{
		ReportID: 3, Title: "Fight", ReportType: models.ReportTypeStudent,
		ReporterUserID: 10, StudentUserID: 20, CounselorIDs: []int64{30, 31},
		ViolationName: "Physical fight", Category: models.CategoryMisbehavior,
		SeverityLevel: models.SeverityLevelHigh, TotalViolations: 2,
	}

	ns := Notices(plan(t, models.StatusSummoned, "verified"), ctx, false)
	assert.Equal(t, []int64{20, 10, 30, 31}, recipients(ns))
	assert.Equal(t, "Violation Notice", ns[0].Title)
	assert.Contains(t, ns[2].Message, "Student total violations: 2")
	require.NotNil(t, ns[0].ReportID)
	assert.Equal(t, int64(3), *ns[0].ReportID)
}

func TestNotices_SummonsToStudentAndDistinctReporter(t *testing.T) {
	ctx := NoticeContext{Title: "Vape", ReportType: models.ReportTypeStudent, ReporterUserID: 10, StudentUserID: 20, Message: "See me at 2pm"}
	ns := Notices(plan(t, models.StatusPending, "summoned"), ctx, false)

	assert.Equal(t, []int64{20, 10}, recipients(ns))
	for _, n := range ns {
		assert.Equal(t, models.NotificationSummons, n.Type)
		assert.Equal(t, "See me at 2pm", n.Message)
	}
}

func TestNotices_SummonsTeacherReportGetsFYI(t *testing.T) {
	ctx := NoticeContext{Title: "Cutting", ReportType: models.ReportTypeTeacher, ReporterUserID: 10, StudentUserID: 20}
	ns := Notices(plan(t, models.StatusPending, "summoned"), ctx, false)

	require.Len(t, ns, 2)
	assert.Contains(t, ns[0].Message, "summoned to the guidance office")
	assert.Equal(t, "Guidance Notice Sent", ns[1].Title)
	assert.Equal(t, models.NotificationSystemAlert, ns[1].Type)
}

func TestNotices_SelfReportNotifiesOnce(t *testing.T) {
	ctx := NoticeContext{Title: "Late", ReportType: models.ReportTypeStudent, ReporterUserID: 20, StudentUserID: 20}
	ns := Notices(plan(t, models.StatusPending, "summoned"), ctx, false)
	assert.Equal(t, []int64{20}, recipients(ns))
}

func TestNotices_InvalidNotifiesReporterAndStudent(t *testing.T) {
	ctx := NoticeContext{Title: "Rumor", ReporterUserID: 10, StudentUserID: 20}
	ns := Notices(plan(t, models.StatusUnderReview, "invalid"), ctx, false)

	require.Len(t, ns, 2)
	assert.Equal(t, "Report Invalid: Rumor", ns[0].Title)
	assert.Contains(t, ns[0].Message, DefaultInvalidReason)
	assert.Equal(t, models.NotificationReportCleared, ns[1].Type)
}

func TestNotices_NoOpSendsNothingUnlessForced(t *testing.T) {
	ctx := NoticeContext{Title: "x", ReporterUserID: 10, StudentUserID: 20}
	p := plan(t, models.StatusSummoned, "summoned")

	assert.Empty(t, Notices(p, ctx, false))
	assert.Len(t, Notices(p, ctx, true), 2)
}

func TestNotices_MissingStudentSkipped(t *testing.T) {
	ctx := NoticeContext{Title: "x", ReporterUserID: 10}
	ns := Notices(plan(t, models.StatusVerified, "resolved"), ctx, false)
	assert.Equal(t, []int64{10}, recipients(ns))
}
