package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
)

// CounselingService logs counseling sessions
type CounselingService interface {
	List(ctx context.Context, actorUserID int64, onlyMine bool, studentID *int64, page, size int) ([]models.CounselingSession, int64, error)
	Create(ctx context.Context, actorUserID int64, req *dto.CounselingSessionRequest) (*models.CounselingSession, error)
	Update(ctx context.Context, actorUserID, id int64, req *dto.UpdateCounselingSessionRequest) (*models.CounselingSession, error)
}

type counselingService struct {
	store    *Store
	notifier *notifier
	logger   zerolog.Logger
}

// NewCounselingService creates a CounselingService
func NewCounselingService(store *Store, n *notifier, logger zerolog.Logger) *counselingService {
	return &counselingService{store: store, notifier: n, logger: logger}
}

func requireCounselor(ctx context.Context, repos *repositories.Repositories, userID int64) (*models.Counselor, error) {
	c, err := repos.Counselors.GetByUserID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewForbiddenError("a counselor profile is required")
		}
		return nil, err
	}
	return c, nil
}

func (s *counselingService) List(ctx context.Context, actorUserID int64, onlyMine bool, studentID *int64, page, size int) ([]models.CounselingSession, int64, error) {
	repos := s.store.Repos()
	var counselorID *int64
	if onlyMine {
		c, err := requireCounselor(ctx, repos, actorUserID)
		if err != nil {
			return nil, 0, err
		}
		counselorID = &c.ID
	}
	return repos.Sessions.List(ctx, counselorID, studentID, page, size)
}

// Create schedules a session and tells the student
func (s *counselingService) Create(ctx context.Context, actorUserID int64, req *dto.CounselingSessionRequest) (*models.CounselingSession, error) {
	session := &models.CounselingSession{
		ReportID:      req.ReportID,
		StudentID:     req.StudentID,
		ScheduledDate: req.ScheduledDate,
		Status:        models.SessionScheduled,
		SessionNotes:  req.SessionNotes,
	}
	var created []models.Notification
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		counselor, err := requireCounselor(ctx, repos, actorUserID)
		if err != nil {
			return err
		}
		student, err := repos.Students.GetByID(ctx, req.StudentID)
		if err != nil {
			return err
		}
		session.CounselorID = counselor.ID
		if err := repos.Sessions.Create(ctx, session); err != nil {
			return err
		}
		created, err = storeNotices(ctx, repos, []workflow.Notice{{
			UserID: student.UserID,
			Title:  "Counseling Session Scheduled",
			Message: fmt.Sprintf("A counseling session has been scheduled for %s. Please come to the guidance office on time.",
				req.ScheduledDate.Format("January 2, 2006 3:04 PM")),
			Type:     models.NotificationCounseling,
			ReportID: req.ReportID,
		}})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.push(created)
	s.logger.Info().Int64("sessionID", session.ID).Int64("studentID", session.StudentID).Msg("Counseling session scheduled")
	return session, nil
}

// Update records the outcome of a session
func (s *counselingService) Update(ctx context.Context, actorUserID, id int64, req *dto.UpdateCounselingSessionRequest) (*models.CounselingSession, error) {
	repos := s.store.Repos()
	if _, err := requireCounselor(ctx, repos, actorUserID); err != nil {
		return nil, err
	}
	session, err := repos.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		session.Status = *req.Status
	}
	if req.ScheduledDate != nil {
		session.ScheduledDate = *req.ScheduledDate
	}
	if req.ActualDate != nil {
		session.ActualDate = req.ActualDate
	}
	if req.StudentAttended != nil {
		session.StudentAttended = *req.StudentAttended
	}
	if req.SessionNotes != nil {
		session.SessionNotes = *req.SessionNotes
	}
	if req.CaseVerified != nil {
		session.CaseVerified = *req.CaseVerified
	}
	if req.FollowUpRequired != nil {
		session.FollowUpRequired = *req.FollowUpRequired
	}

	if err := repos.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("sessionID", id).Str("status", string(session.Status)).Msg("Counseling session updated")
	return session, nil
}
