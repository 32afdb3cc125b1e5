package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schoolguidance/tracker/internal/app/migrations"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRollback = errors.New("rollback")

// withTestTx runs fn inside a transaction that is always rolled back. Requires
// GUIDANCE_TEST_DB to hold a PostgreSQL connection string.
func withTestTx(t *testing.T, fn func(ctx context.Context, repos *Repositories)) {
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

	err = db.WithTransaction(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		fn(ctx, NewRepositories(pool).WithTx(tx))
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)
}

func createStudent(t *testing.T, ctx context.Context, repos *Repositories, username string, grade int, strand string) *models.Student {
	t.Helper()
	u := &models.User{
		Username: username, Email: username + "@school.test", Password: "x",
		FirstName: "Test", LastName: username, RoleType: models.RoleStudent, IsActive: true,
	}
	require.NoError(t, repos.Users.Create(ctx, u))
	s := &models.Student{UserID: u.ID, GradeLevel: grade, Strand: strand, SchoolYear: "2024-2025", IsActive: true}
	require.NoError(t, repos.Students.Create(ctx, s))
	return s
}

func TestUserAndStudentRepositories(t *testing.T) {
	withTestTx(t, func(ctx context.Context, repos *Repositories) {
		s := createStudent(t, ctx, repos, "itest_maria", 11, "STEM")
		assert.Equal(t, models.FormatStudentID(s.UserID), s.StudentID)

		found, err := repos.Students.FindByFullName(ctx, "  test   ITEST_MARIA ")
		require.NoError(t, err)
		assert.Equal(t, s.ID, found.ID)

		byLogin, err := repos.Users.GetByLogin(ctx, "ITEST_MARIA@school.test")
		require.NoError(t, err)
		assert.Equal(t, s.UserID, byLogin.ID)

		grade := 11
		list, total, err := repos.Students.List(ctx, dto.StudentFilter{GradeLevel: &grade, Search: "itest_"}, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, list, 1)

		require.NoError(t, repos.Students.SetArchived(ctx, s.ID, true))
		archived, err := repos.Students.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, archived.IsArchived)
		assert.False(t, archived.IsActive)
		assert.ErrorIs(t, repos.Students.SetArchived(ctx, s.ID, true), apperrors.ErrStudentNotFound)

		// a failed statement aborts the transaction, so this stays last
		dup := &models.User{Username: "itest_maria", Email: "other@school.test", Password: "x", RoleType: models.RoleStudent}
		assert.ErrorIs(t, repos.Users.Create(ctx, dup), apperrors.ErrUsernameAlreadyExists)
	})
}

func TestViolationAndTallyRepositories(t *testing.T) {
	withTestTx(t, func(ctx context.Context, repos *Repositories) {
		s := createStudent(t, ctx, repos, "itest_jose", 9, "")
		vt := &models.ViolationType{
			Name: "itest late", Category: models.CategoryTardiness,
			SeverityLevel: models.SeverityLevelLow, IsActive: true, ApplicableGrades: "7,8,9,10,11,12",
		}
		require.NoError(t, repos.ViolationTypes.Create(ctx, vt))

		for i := 0; i < 2; i++ {
			require.NoError(t, repos.Violations.Create(ctx, &models.ViolationRecord{
				StudentID: s.ID, ViolationTypeID: vt.ID, IncidentDate: time.Now(), SchoolYear: "2024-2025",
			}))
		}

		records, err := repos.Violations.TallyRecords(ctx, s.ID)
		require.NoError(t, err)
		tally := workflow.ComputeTally(s.ID, records, workflow.TallyScope{SchoolYear: "2024-2025"})
		require.NoError(t, repos.Tallies.Upsert(ctx, &tally))

		stored, err := repos.Tallies.GetByStudent(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.TotalViolations)
		assert.Equal(t, 2, stored.LowSeverityCount)
		assert.Equal(t, 2, stored.CategoryCounts[models.CategoryTardiness])
		assert.Equal(t, 2, stored.CurrentGradeViolations)
	})
}

func TestReportAndNotificationRepositories(t *testing.T) {
	withTestTx(t, func(ctx context.Context, repos *Repositories) {
		reporter := createStudent(t, ctx, repos, "itest_ana", 8, "")
		reported := createStudent(t, ctx, repos, "itest_ben", 8, "")

		rep := &models.Report{
			ReportType: models.ReportTypeStudent, Title: "Bullying at lunch", Description: "details",
			ReporterUserID: reporter.UserID, ReporterStudentID: &reporter.ID, ReportedStudentID: &reported.ID,
			Severity: models.SeverityMedium, Status: models.StatusPending,
			VerificationStatus: models.VerificationPending, RequiresCounseling: true, SchoolYear: "2024-2025",
		}
		require.NoError(t, repos.Reports.Create(ctx, rep))

		mine, err := repos.Reports.ListForStudent(ctx, reported.UserID, reported.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "Test itest_ana", mine[0].ReporterName)
		require.NotNil(t, mine[0].ReportedUserID)
		assert.Equal(t, reported.UserID, *mine[0].ReportedUserID)

		n := &models.Notification{UserID: reported.UserID, Title: "t", Message: "m", RelatedReportID: &rep.ID}
		require.NoError(t, repos.Notifications.Create(ctx, n))
		count, err := repos.Notifications.CountUnread(ctx, reported.UserID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		assert.ErrorIs(t, repos.Notifications.MarkRead(ctx, reporter.UserID, n.ID), apperrors.ErrNotificationNotFound)
		require.NoError(t, repos.Notifications.MarkRead(ctx, reported.UserID, n.ID))
	})
}

func TestHistoryArchiveClosesActiveYear(t *testing.T) {
	withTestTx(t, func(ctx context.Context, repos *Repositories) {
		s := createStudent(t, ctx, repos, "itest_carla", 10, "")
		require.NoError(t, repos.History.Activate(ctx, &models.StudentSchoolYearHistory{
			StudentID: s.ID, SchoolYear: "2024-2025", GradeLevel: 10, Section: "Rizal",
		}))

		archived, err := repos.History.Archive(ctx, &models.StudentSchoolYearHistory{
			StudentID: s.ID, SchoolYear: "2024-2025", GradeLevel: 10, Section: "Mabini",
		})
		require.NoError(t, err)
		assert.True(t, archived)

		again, err := repos.History.Archive(ctx, &models.StudentSchoolYearHistory{
			StudentID: s.ID, SchoolYear: "2024-2025", GradeLevel: 10, Section: "Luna",
		})
		require.NoError(t, err)
		assert.False(t, again, "an archived year is not rewritten")

		require.NoError(t, repos.History.Activate(ctx, &models.StudentSchoolYearHistory{
			StudentID: s.ID, SchoolYear: "2025-2026", GradeLevel: 11, Section: "Mabini",
		}))

		history, err := repos.History.ListByStudent(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "2025-2026", history[0].SchoolYear)
		assert.True(t, history[0].IsActive)
		assert.Equal(t, "2024-2025", history[1].SchoolYear)
		assert.False(t, history[1].IsActive)
		assert.Equal(t, "Mabini", history[1].Section)
	})
}
