package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/migrations"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/schoolyear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withTestServices runs fn against services bound to one transaction that is
// rolled back afterwards; service transactions become savepoints. Requires
// GUIDANCE_TEST_DB to hold a PostgreSQL connection string.
func withTestServices(t *testing.T, fn func(ctx context.Context, svc *Services, repos *repositories.Repositories)) {
	t.Helper()
	dsn := os.Getenv("GUIDANCE_TEST_DB")
	if dsn == "" {
		t.Skip("GUIDANCE_TEST_DB not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.NewMigrator(pool).
		MigrateFromDirectory(ctx, filepath.Join("..", "..", "..", "migrations")))

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	store := NewStore(tx)
	svc := NewServices(Dependencies{
		Store:    store,
		Logger:   zerolog.Nop(),
		Security: SecurityOptions{PasswordResetTTL: time.Hour},
	})
	fn(ctx, svc, store.Repos())
}

func newUser(t *testing.T, ctx context.Context, repos *repositories.Repositories, username string, role models.RoleType) *models.User {
	t.Helper()
	u := &models.User{
		Username: username, Email: username + "@school.test", Password: "x",
		FirstName: "Test", LastName: username, RoleType: role, IsActive: true,
	}
	require.NoError(t, repos.Users.Create(ctx, u))
	return u
}

func newStudent(t *testing.T, ctx context.Context, svc *Services, username string, grade int, strand string) *models.Student {
	t.Helper()
	st, err := svc.Students.Create(ctx, &dto.CreateStudentRequest{
		Username: username, Email: username + "@school.test", Password: "password123",
		FirstName: "Test", LastName: username, GradeLevel: grade, Strand: strand,
		Section: "Rizal", SchoolYear: "2024-2025",
	})
	require.NoError(t, err)
	return st
}

func activeYears(history []models.StudentSchoolYearHistory) []string {
	var years []string
	for _, h := range history {
		if h.IsActive {
			years = append(years, h.SchoolYear)
		}
	}
	return years
}

func TestReportTransitionsApplyEffects(t *testing.T) {
	withTestServices(t, func(ctx context.Context, svc *Services, repos *repositories.Repositories) {
		counselorUser := newUser(t, ctx, repos, "itest_counselor", models.RoleCounselor)
		require.NoError(t, repos.Counselors.Create(ctx, &models.Counselor{UserID: counselorUser.ID, EmployeeID: "C-ITEST"}))

		reporter := newStudent(t, ctx, svc, "itest_rep", 9, "")
		reported := newStudent(t, ctx, svc, "itest_tgt", 9, "")
		vt := &models.ViolationType{
			Name: "itest bullying", Category: models.CategoryBullying,
			SeverityLevel: models.SeverityLevelHigh, IsActive: true, ApplicableGrades: "7,8,9,10,11,12",
		}
		require.NoError(t, repos.ViolationTypes.Create(ctx, vt))

		rep := &models.Report{
			ReportType: models.ReportTypeStudent, Title: "Pushed at the canteen", Description: "details",
			ReporterUserID: reporter.UserID, ReporterStudentID: &reporter.ID, ReportedStudentID: &reported.ID,
			ViolationTypeID: &vt.ID, Severity: models.SeverityMedium, Status: models.StatusPending,
			VerificationStatus: models.VerificationPending, SchoolYear: "2024-2025",
		}
		require.NoError(t, repos.Reports.Create(ctx, rep))

		// a pending report cannot back a manual record
		_, err := svc.Violations.Record(ctx, counselorUser.ID, &dto.RecordViolationRequest{
			StudentID: reported.ID, ViolationTypeID: vt.ID, RelatedReportID: &rep.ID,
		})
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		missing := rep.ID + 100000
		_, err = svc.Violations.Record(ctx, counselorUser.ID, &dto.RecordViolationRequest{
			StudentID: reported.ID, ViolationTypeID: vt.ID, RelatedReportID: &missing,
		})
		assert.ErrorIs(t, err, apperrors.ErrReportNotFound)

		// illegal move leaves nothing behind
		_, err = svc.Reports.UpdateStatus(ctx, counselorUser.ID, rep.ID, &dto.UpdateReportStatusRequest{Status: "resolved"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		stored, err := repos.Reports.GetByID(ctx, rep.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, stored.Status)

		res, err := svc.Reports.SendGuidanceNotice(ctx, counselorUser.ID, rep.ID, &dto.GuidanceNoticeRequest{Message: "Please see the guidance office."})
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, models.StatusSummoned, res.NewStatus)
		assert.NotNil(t, res.Report.SummonsSentAt)
		assert.Positive(t, res.NotificationsSent)
		unreadAfterSummons, err := repos.Notifications.CountUnread(ctx, reported.UserID)
		require.NoError(t, err)

		// a repeated summons re-notifies without touching the report
		again, err := svc.Reports.SendGuidanceNotice(ctx, counselorUser.ID, rep.ID, &dto.GuidanceNoticeRequest{Message: "Reminder."})
		require.NoError(t, err)
		assert.False(t, again.Changed)
		assert.Positive(t, again.NotificationsSent)
		assert.Equal(t, res.Report.SummonsSentAt.Unix(), again.Report.SummonsSentAt.Unix())
		unread, err := repos.Notifications.CountUnread(ctx, reported.UserID)
		require.NoError(t, err)
		assert.Greater(t, unread, unreadAfterSummons)

		verified, err := svc.Reports.UpdateStatus(ctx, counselorUser.ID, rep.ID, &dto.UpdateReportStatusRequest{Status: "verified"})
		require.NoError(t, err)
		require.NotNil(t, verified.ViolationRecord)
		assert.Equal(t, models.VerificationVerified, verified.Report.VerificationStatus)

		records, err := repos.Violations.ListByStudent(ctx, reported.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		tally, err := repos.Tallies.GetByStudent(ctx, reported.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, tally.TotalViolations)

		noop, err := svc.Reports.UpdateStatus(ctx, counselorUser.ID, rep.ID, &dto.UpdateReportStatusRequest{Status: "verified"})
		require.NoError(t, err)
		assert.False(t, noop.Changed)
		records, err = repos.Violations.ListByStudent(ctx, reported.ID)
		require.NoError(t, err)
		assert.Len(t, records, 1)

		resolved, err := svc.Reports.UpdateStatus(ctx, counselorUser.ID, rep.ID, &dto.UpdateReportStatusRequest{Status: "resolved"})
		require.NoError(t, err)
		assert.True(t, resolved.Changed)
		assert.NotNil(t, resolved.Report.ResolvedAt)
		records, err = repos.Violations.ListByStudent(ctx, reported.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, models.ViolationResolved, records[0].Status)
	})
}

func TestRolloverArchivesAndPromotes(t *testing.T) {
	withTestServices(t, func(ctx context.Context, svc *Services, repos *repositories.Repositories) {
		admin := newUser(t, ctx, repos, "itest_admin", models.RoleAdmin)
		year := "2024-2025"
		_, err := svc.Settings.UpdateSettings(ctx, admin.ID, &dto.UpdateSettingsRequest{CurrentSchoolYear: &year})
		require.NoError(t, err)

		grade10 := newStudent(t, ctx, svc, "itest_g10", 10, "")
		grade11 := newStudent(t, ctx, svc, "itest_g11", 11, "STEM")

		// the section changes after creation; the archive keeps the final one
		section := "Mabini"
		_, err = svc.Students.Update(ctx, admin.ID, grade10.ID, &dto.UpdateStudentRequest{Section: &section})
		require.NoError(t, err)

		dry, err := svc.SchoolYears.Rollover(ctx, admin.ID, &dto.RolloverRequest{NewSchoolYear: "2025-2026", DryRun: true})
		require.NoError(t, err)
		assert.True(t, dry.DryRun)
		assert.GreaterOrEqual(t, dry.HistoryArchived, 2)
		unchanged, err := repos.Students.GetByID(ctx, grade10.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, unchanged.GradeLevel)
		assert.Equal(t, "2024-2025", svc.Settings.CurrentSchoolYear(ctx))

		result, err := svc.SchoolYears.Rollover(ctx, admin.ID, &dto.RolloverRequest{NewSchoolYear: "2025-2026"})
		require.NoError(t, err)
		assert.Equal(t, "2024-2025", result.PreviousSchoolYear)
		assert.GreaterOrEqual(t, result.HistoryArchived, 2)
		assert.GreaterOrEqual(t, result.AwaitingStrand, 1)
		assert.Equal(t, "2025-2026", svc.Settings.CurrentSchoolYear(ctx))

		promoted, err := repos.Students.GetByID(ctx, grade10.ID)
		require.NoError(t, err)
		assert.Equal(t, 11, promoted.GradeLevel)
		assert.Empty(t, promoted.Strand)
		assert.Equal(t, "2025-2026", promoted.SchoolYear)

		history, err := repos.History.ListByStudent(ctx, grade10.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, []string{"2025-2026"}, activeYears(history))
		assert.Equal(t, "Mabini", history[1].Section)
		assert.Equal(t, 10, history[1].GradeLevel)

		senior, err := repos.Students.GetByID(ctx, grade11.ID)
		require.NoError(t, err)
		assert.Equal(t, 12, senior.GradeLevel)
		assert.Equal(t, "STEM", senior.Strand)

		unread, err := repos.Notifications.CountUnread(ctx, grade10.UserID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, unread)
	})
}

func TestPromoteAndBulkPromote(t *testing.T) {
	withTestServices(t, func(ctx context.Context, svc *Services, repos *repositories.Repositories) {
		admin := newUser(t, ctx, repos, "itest_admin2", models.RoleAdmin)
		retained := newStudent(t, ctx, svc, "itest_keep", 8, "")
		senior := newStudent(t, ctx, svc, "itest_grad", 12, "ABM")

		res, err := svc.SchoolYears.Promote(ctx, admin.ID, &dto.PromoteRequest{
			NewSchoolYear: "2025-2026",
			Students: []dto.PromotionEntry{
				{StudentID: retained.ID, Action: schoolyear.ActionRetain},
				{StudentID: senior.ID + 100000, Action: schoolyear.ActionPromote},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Retained)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 1, res.Errors[0].Index)

		kept, err := repos.Students.GetByID(ctx, retained.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, kept.GradeLevel)
		assert.Equal(t, "2025-2026", kept.SchoolYear)
		history, err := repos.History.ListByStudent(ctx, retained.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-2026"}, activeYears(history))

		bulk, err := svc.SchoolYears.BulkPromote(ctx, admin.ID, &dto.BulkPromoteRequest{
			CurrentGrade: 12, CurrentSchoolYear: "2024-2025", NewSchoolYear: "2025-2026",
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bulk.Graduated, 1)

		graduate, err := repos.Students.GetByID(ctx, senior.ID)
		require.NoError(t, err)
		assert.False(t, graduate.IsActive)
		assert.Equal(t, schoolyear.GraduatedLabel("2025-2026"), graduate.SchoolYear)
		history, err = repos.History.ListByStudent(ctx, senior.ID)
		require.NoError(t, err)
		assert.Empty(t, activeYears(history))
	})
}

func TestUpdateAdvisorySectionRefreshesHistory(t *testing.T) {
	withTestServices(t, func(ctx context.Context, svc *Services, repos *repositories.Repositories) {
		grade := 11
		adviserUser := newUser(t, ctx, repos, "itest_adviser", models.RoleTeacher)
		require.NoError(t, repos.Teachers.Create(ctx, &models.Teacher{
			UserID: adviserUser.ID, EmployeeID: "T-ITEST", AdvisingGrade: &grade,
			AdvisingSection: "Einstein", ApprovalStatus: models.ApprovalApproved,
		}))
		st := newStudent(t, ctx, svc, "itest_advisee", 11, "STEM")

		section := "Einstein"
		res, err := svc.Teachers.UpdateAdvisorySection(ctx, adviserUser.ID, &dto.UpdateAdvisorySectionRequest{
			Updates: []dto.AdvisoryUpdate{{StudentID: st.ID, Section: &section}, {StudentID: st.ID + 100000, Section: &section}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Updated)
		require.Len(t, res.Errors, 1)

		history, err := repos.History.ListByStudent(ctx, st.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.True(t, history[0].IsActive)
		assert.Equal(t, "Einstein", history[0].Section)

		overview, err := svc.Teachers.AdvisorySection(ctx, adviserUser.ID)
		require.NoError(t, err)
		found := false
		for _, s := range overview.Students {
			if s.ID == st.ID {
				found = true
				require.Len(t, s.ViolationsByYear, 1)
			}
		}
		assert.True(t, found)
	})
}
