package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/auth"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/email"
)

// ReportService files reports and moves them through the review workflow
type ReportService interface {
	Submit(ctx context.Context, actor auth.Actor, req *dto.SubmitReportRequest) (*models.Report, error)
	ListMine(ctx context.Context, actor auth.Actor) ([]models.Report, error)
	List(ctx context.Context, filter dto.ReportFilter, page, size int) ([]models.Report, int64, error)
	Get(ctx context.Context, actor auth.Actor, id int64) (*models.Report, error)
	UpdateStatus(ctx context.Context, actorUserID, id int64, req *dto.UpdateReportStatusRequest) (*dto.TransitionResult, error)
	SendGuidanceNotice(ctx context.Context, actorUserID, id int64, req *dto.GuidanceNoticeRequest) (*dto.TransitionResult, error)
	MarkInvalid(ctx context.Context, actorUserID, id int64, req *dto.MarkInvalidRequest) (*dto.TransitionResult, error)
}

type reportService struct {
	store    *Store
	settings SettingsService
	access   *auth.AuthorizationService
	notifier *notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReportService creates a ReportService
func NewReportService(store *Store, settings SettingsService, n *notifier, logger zerolog.Logger) *reportService {
	return &reportService{
		store:    store,
		settings: settings,
		access:   auth.NewAuthorizationService(store.Repos().Students),
		notifier: n,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit files a student or teacher report. A student report whose named
// student cannot be found is filed as a self-report.
func (s *reportService) Submit(ctx context.Context, actor auth.Actor, req *dto.SubmitReportRequest) (*models.Report, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		return nil, validationError("title and description are required")
	}

	var rep *models.Report
	var created []models.Notification
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		rep = &models.Report{
			Title:              req.Title,
			Description:        req.Description,
			ReporterUserID:     actor.UserID,
			ViolationTypeID:    req.ViolationTypeID,
			CustomViolation:    strings.TrimSpace(req.CustomViolation),
			Severity:           models.SeverityMedium,
			Status:             models.StatusPending,
			VerificationStatus: models.VerificationPending,
			RequiresCounseling: true,
			Location:           req.Location,
			Witnesses:          req.Witnesses,
			IncidentDate:       req.IncidentDate,
		}
		if req.Severity != "" {
			rep.Severity = models.Severity(strings.ToLower(req.Severity))
		}
		if req.ViolationTypeID != nil {
			if _, err := repos.ViolationTypes.GetByID(ctx, *req.ViolationTypeID); err != nil {
				return err
			}
		}

		reported, err := s.findReportedStudent(ctx, repos, req)
		if err != nil {
			return err
		}

		switch actor.Role {
		case models.RoleStudent:
			reporter, err := repos.Students.GetByUserID(ctx, actor.UserID)
			if err != nil {
				return err
			}
			if reported == nil {
				reported = reporter
			}
			rep.ReportType = models.ReportTypeStudent
			rep.ReporterStudentID = &reporter.ID
			rep.SchoolYear = reporter.SchoolYear

		case models.RoleTeacher:
			teacher, err := repos.Teachers.GetByUserID(ctx, actor.UserID)
			if err != nil {
				return err
			}
			if reported == nil {
				return validationError("the reported student could not be found")
			}
			rep.ReportType = models.ReportTypeTeacher
			rep.ReporterTeacherID = &teacher.ID
			rep.SchoolYear = reported.SchoolYear

		default:
			return apperrors.NewForbiddenError("only students and teachers can file reports")
		}

		rep.ReportedStudentID = &reported.ID
		if rep.SchoolYear == "" {
			rep.SchoolYear = s.settings.CurrentSchoolYear(ctx)
		}
		if err := repos.Reports.Create(ctx, rep); err != nil {
			return err
		}

		counselors, err := repos.Counselors.ListActiveUserIDs(ctx)
		if err != nil {
			return err
		}
		title := "New Student Report Submitted"
		if rep.ReportType == models.ReportTypeTeacher {
			title = "New Teacher Report Submitted"
		}
		reportID := rep.ID
		notices := make([]workflow.Notice, 0, len(counselors))
		for _, id := range counselors {
			notices = append(notices, workflow.Notice{
				UserID:   id,
				Title:    title,
				Message:  fmt.Sprintf("A new report has been submitted: %s", rep.Title),
				Type:     models.NotificationReportSubmitted,
				ReportID: &reportID,
			})
		}
		if created, err = storeNotices(ctx, repos, notices); err != nil {
			return err
		}

		rep, err = repos.Reports.GetByID(ctx, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.push(created)
	s.logger.Info().
		Int64("reportID", rep.ID).
		Str("reportType", string(rep.ReportType)).
		Int64("reporterUserID", actor.UserID).
		Msg("Report submitted")
	return rep, nil
}

// findReportedStudent resolves the reported student by id, then by name.
// It returns nil when neither is given or the name matches nobody.
func (s *reportService) findReportedStudent(ctx context.Context, repos *repositories.Repositories, req *dto.SubmitReportRequest) (*models.Student, error) {
	if req.ReportedStudentID != nil {
		return repos.Students.GetByID(ctx, *req.ReportedStudentID)
	}
	name := strings.TrimSpace(req.ReportedStudentName)
	if name == "" {
		return nil, nil
	}
	student, err := repos.Students.FindByFullName(ctx, name)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return student, nil
}

// ListMine lists the reports visible to a student or filed by a teacher
func (s *reportService) ListMine(ctx context.Context, actor auth.Actor) ([]models.Report, error) {
	repos := s.store.Repos()
	if actor.Role == models.RoleStudent {
		student, err := repos.Students.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return repos.Reports.ListForStudent(ctx, actor.UserID, student.ID)
	}
	return repos.Reports.ListByReporter(ctx, actor.UserID)
}

func (s *reportService) List(ctx context.Context, filter dto.ReportFilter, page, size int) ([]models.Report, int64, error) {
	if filter.Status != "" {
		status, err := workflow.Normalize(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = string(status)
	}
	return s.store.Repos().Reports.List(ctx, filter, page, size)
}

func (s *reportService) Get(ctx context.Context, actor auth.Actor, id int64) (*models.Report, error) {
	rep, err := s.store.Repos().Reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.ValidateReportAccess(ctx, actor, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// transitionInput is what the workflow entry points pass to transition
type transitionInput struct {
	Status string
	Note   string
	// Message replaces the default summons text
	Message string
	// Reason explains an invalid report
	Reason string
	// Force re-sends notifications when the report is already in Status
	Force bool
}

func (s *reportService) UpdateStatus(ctx context.Context, actorUserID, id int64, req *dto.UpdateReportStatusRequest) (*dto.TransitionResult, error) {
	return s.transition(ctx, actorUserID, id, transitionInput{Status: req.Status, Note: req.Notes, Reason: req.Notes})
}

// SendGuidanceNotice summons the parties of a report. Repeating it re-sends
// the notice without changing the report.
func (s *reportService) SendGuidanceNotice(ctx context.Context, actorUserID, id int64, req *dto.GuidanceNoticeRequest) (*dto.TransitionResult, error) {
	message := strings.TrimSpace(req.Message)
	if req.ScheduledDate != nil {
		message = fmt.Sprintf("%s\n\nScheduled: %s", message, req.ScheduledDate.Format("January 2, 2006 3:04 PM"))
	}
	return s.transition(ctx, actorUserID, id, transitionInput{
		Status:  string(models.StatusSummoned),
		Message: message,
		Force:   true,
	})
}

func (s *reportService) MarkInvalid(ctx context.Context, actorUserID, id int64, req *dto.MarkInvalidRequest) (*dto.TransitionResult, error) {
	return s.transition(ctx, actorUserID, id, transitionInput{
		Status: string(models.StatusInvalid),
		Reason: strings.TrimSpace(req.Reason),
	})
}

// summonsMail is the email copy of a summons, sent after commit
type summonsMail struct {
	to, name, subject, message string
}

// transition is the only place report status changes. It locks the report,
// checks the move, applies its effects and stores notifications in one
// transaction; pushes and email go out after commit.
func (s *reportService) transition(ctx context.Context, actorUserID, id int64, in transitionInput) (*dto.TransitionResult, error) {
	result := &dto.TransitionResult{}
	var created []models.Notification
	var mail *summonsMail

	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		rep, err := repos.Reports.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		plan, err := workflow.PlanTransition(rep.Status, in.Status)
		if err != nil {
			return err
		}
		result.OldStatus, result.NewStatus, result.Changed = plan.From, plan.To, plan.Changed
		result.Report = rep

		if !plan.Changed && !in.Force {
			return nil
		}

		counselor, err := repos.Counselors.GetByUserID(ctx, actorUserID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewForbiddenError("only counselors can review reports")
			}
			return err
		}

		nc := workflow.NoticeContext{
			ReportID:       rep.ID,
			Title:          rep.Title,
			ReportType:     rep.ReportType,
			ReporterUserID: rep.ReporterUserID,
			Message:        in.Message,
			Reason:         in.Reason,
		}
		if rep.ReportedUserID != nil {
			nc.StudentUserID = *rep.ReportedUserID
		}

		if plan.Changed {
			if err := s.applyEffects(ctx, repos, rep, plan, counselor, in, &nc, result); err != nil {
				return err
			}
		}

		notices := workflow.Notices(plan, nc, in.Force)
		if created, err = storeNotices(ctx, repos, notices); err != nil {
			return err
		}
		result.NotificationsSent = len(created)

		if plan.To == models.StatusSummoned && rep.ReportedStudentID != nil {
			student, err := repos.Students.GetByID(ctx, *rep.ReportedStudentID)
			if err != nil {
				return err
			}
			if student.User != nil && student.User.Email != "" {
				message := in.Message
				if message == "" && len(notices) > 0 {
					message = notices[0].Message
				}
				mail = &summonsMail{
					to:      student.User.Email,
					name:    student.User.FullName(),
					subject: "Guidance Office Notice: " + rep.Title,
					message: message,
				}
			}
		}

		result.Report, err = repos.Reports.GetByID(ctx, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.push(created)
	if mail != nil {
		s.notifier.sendMail("guidance_notice", func(m email.EmailService) error {
			return m.SendGuidanceNoticeEmail(mail.to, mail.name, mail.subject, mail.message)
		})
	}

	s.logger.Info().
		Int64("reportID", id).
		Int64("actorUserID", actorUserID).
		Str("from", string(result.OldStatus)).
		Str("to", string(result.NewStatus)).
		Bool("changed", result.Changed).
		Int("notifications", result.NotificationsSent).
		Msg("Report status transition")
	return result, nil
}

func (s *reportService) applyEffects(
	ctx context.Context,
	repos *repositories.Repositories,
	rep *models.Report,
	plan workflow.Plan,
	counselor *models.Counselor,
	in transitionInput,
	nc *workflow.NoticeContext,
	result *dto.TransitionResult,
) error {
	now := s.now()
	author := "Counselor"
	if counselor.User != nil {
		author = counselor.User.FullName()
	}

	rep.Status = plan.To
	rep.AssignedCounselorID = &counselor.ID
	if plan.To == models.StatusInvalid {
		reason := in.Reason
		if reason == "" {
			reason = workflow.DefaultInvalidReason
		}
		nc.Reason = reason
		entry := workflow.InvalidNote(now, reason)
		if strings.TrimSpace(rep.CounselorNotes) == "" {
			rep.CounselorNotes = entry
		} else {
			rep.CounselorNotes += "\n\n" + entry
		}
	} else {
		rep.CounselorNotes = workflow.AppendNote(rep.CounselorNotes, now, author, in.Note)
	}

	effects := plan.Effects
	if effects.MarkSummonsSent {
		rep.SummonsSentAt = &now
	}
	if effects.Verify {
		rep.VerificationStatus = models.VerificationVerified
		rep.VerifiedBy = &counselor.ID
		rep.VerifiedAt = &now
	}
	if effects.Dismiss {
		rep.VerificationStatus = models.VerificationDismissed
	}
	if effects.Resolve {
		rep.ResolvedAt = &now
	}
	if err := repos.Reports.UpdateWorkflow(ctx, rep); err != nil {
		return err
	}

	if effects.CreateViolation {
		record, tally, vt, err := s.createViolation(ctx, repos, rep, counselor, now)
		if err != nil {
			return err
		}
		result.ViolationRecord = record
		nc.ViolationName = vt.Name
		nc.Category = vt.Category
		nc.SeverityLevel = vt.SeverityLevel
		nc.TotalViolations = tally.TotalViolations
		if nc.CounselorIDs, err = repos.Counselors.ListActiveUserIDs(ctx); err != nil {
			return err
		}
	}

	if effects.ResolveViolation {
		n, err := repos.Violations.SetStatusByReport(ctx, rep.ID, models.ViolationResolved)
		if err != nil {
			return err
		}
		if n > 0 && rep.ReportedStudentID != nil {
			if _, err := recomputeTally(ctx, repos, *rep.ReportedStudentID); err != nil {
				return err
			}
		}
	}
	return nil
}

// createViolation records the violation of a verified report. A report has
// at most one record; an existing one is reused.
func (s *reportService) createViolation(
	ctx context.Context,
	repos *repositories.Repositories,
	rep *models.Report,
	counselor *models.Counselor,
	now time.Time,
) (*models.ViolationRecord, *models.ViolationTally, *models.ViolationType, error) {
	if rep.ReportedStudentID == nil {
		return nil, nil, nil, validationError("a report without a reported student cannot be verified")
	}

	vt, err := s.violationTypeFor(ctx, repos, rep)
	if err != nil {
		return nil, nil, nil, err
	}

	record, err := repos.Violations.GetByReportID(ctx, rep.ID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, nil, nil, err
	}
	if record == nil {
		incident := rep.CreatedAt
		if rep.IncidentDate != nil {
			incident = *rep.IncidentDate
		}
		description := rep.Description
		if rep.CustomViolation != "" {
			description = rep.CustomViolation + ": " + description
		}
		reportID := rep.ID
		record = &models.ViolationRecord{
			StudentID:       *rep.ReportedStudentID,
			ViolationTypeID: vt.ID,
			CounselorID:     &counselor.ID,
			RelatedReportID: &reportID,
			IncidentDate:    incident,
			Description:     description,
			Location:        rep.Location,
			Status:          models.ViolationActive,
			CounselorNotes:  rep.CounselorNotes,
			SchoolYear:      rep.SchoolYear,
		}
		if record.SchoolYear == "" {
			record.SchoolYear = s.settings.CurrentSchoolYear(ctx)
		}
		if err := repos.Violations.Create(ctx, record); err != nil {
			return nil, nil, nil, err
		}
	}

	tally, err := recomputeTally(ctx, repos, *rep.ReportedStudentID)
	if err != nil {
		return nil, nil, nil, err
	}
	s.logger.Info().
		Int64("reportID", rep.ID).
		Int64("violationID", record.ID).
		Time("verifiedAt", now).
		Msg("Violation recorded from verified report")
	return record, tally, vt, nil
}

// violationTypeFor returns the report's violation type, falling back to the
// first active type of the "Others" category.
func (s *reportService) violationTypeFor(ctx context.Context, repos *repositories.Repositories, rep *models.Report) (*models.ViolationType, error) {
	if rep.ViolationTypeID != nil {
		return repos.ViolationTypes.GetByID(ctx, *rep.ViolationTypeID)
	}
	vt, err := repos.ViolationTypes.FirstActiveInCategory(ctx, models.CategoryOthers)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, validationError("the report has no violation type and no %q type is available", models.CategoryOthers)
		}
		return nil, err
	}
	return vt, nil
}
