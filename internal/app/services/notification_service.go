package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/pkg/email"
	"github.com/schoolguidance/tracker/internal/pkg/websocket"
)

// NotificationService reads and sends in-app notifications
type NotificationService interface {
	List(ctx context.Context, userID int64, unreadOnly bool, page, size int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, userID, notificationID int64) error
	SendCounseling(ctx context.Context, actorUserID int64, req *dto.CounselingNotificationRequest) (*models.Notification, error)
	SendBulk(ctx context.Context, actorUserID int64, req *dto.BulkNotificationRequest) (*dto.BulkNotificationResult, error)
}

var _ websocket.NotificationReader = (*notificationService)(nil)

type notificationService struct {
	store    *Store
	notifier *notifier
	logger   zerolog.Logger
}

// NewNotificationService creates a NotificationService
func NewNotificationService(store *Store, n *notifier, logger zerolog.Logger) *notificationService {
	return &notificationService{store: store, notifier: n, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID int64, unreadOnly bool, page, size int) ([]models.Notification, int64, error) {
	return s.store.Repos().Notifications.ListByUser(ctx, userID, unreadOnly, page, size)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.Repos().Notifications.CountUnread(ctx, userID)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	return s.store.Repos().Notifications.MarkRead(ctx, userID, notificationID)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.Repos().Notifications.MarkAllRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, userID, notificationID int64) error {
	return s.store.Repos().Notifications.Delete(ctx, userID, notificationID)
}

// SendCounseling tells a student about a counseling appointment and emails a copy
func (s *notificationService) SendCounseling(ctx context.Context, actorUserID int64, req *dto.CounselingNotificationRequest) (*models.Notification, error) {
	message := strings.TrimSpace(req.Message)
	if req.ScheduledDate != nil {
		message = fmt.Sprintf("%s\n\nScheduled: %s", message, req.ScheduledDate.Format("January 2, 2006 3:04 PM"))
	}

	var student *models.Student
	var created []models.Notification
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		student, err = repos.Students.GetByID(ctx, req.StudentID)
		if err != nil {
			return err
		}
		created, err = storeNotices(ctx, repos, []workflow.Notice{{
			UserID:   student.UserID,
			Title:    "Counseling Schedule",
			Message:  message,
			Type:     models.NotificationCounseling,
			ReportID: req.ReportID,
		}})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.push(created)
	if student.User != nil && student.User.Email != "" {
		to, name := student.User.Email, student.User.FullName()
		s.notifier.sendMail("counseling_schedule", func(m email.EmailService) error {
			return m.SendGuidanceNoticeEmail(to, name, "Counseling Schedule", message)
		})
	}

	s.logger.Info().
		Int64("studentID", req.StudentID).
		Int64("actorUserID", actorUserID).
		Msg("Counseling notification sent")
	return &created[0], nil
}

// SendBulk sends one message to explicit users, a grade or a role. With no
// audience given it goes to every active user.
func (s *notificationService) SendBulk(ctx context.Context, actorUserID int64, req *dto.BulkNotificationRequest) (*dto.BulkNotificationResult, error) {
	typ := models.NotificationAnnouncement
	if req.Type != "" {
		typ = models.NotificationType(req.Type)
	}

	var created []models.Notification
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		ids, err := repos.Users.ListRecipientIDs(ctx, req.UserIDs, models.RoleType(req.RoleType), req.GradeLevel)
		if err != nil {
			return err
		}
		notices := make([]workflow.Notice, 0, len(ids))
		for _, id := range ids {
			notices = append(notices, workflow.Notice{UserID: id, Title: req.Title, Message: req.Message, Type: typ})
		}
		created, err = storeNotices(ctx, repos, notices)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.push(created)
	s.logger.Info().
		Int64("actorUserID", actorUserID).
		Int("recipients", len(created)).
		Msg("Bulk notification sent")
	return &dto.BulkNotificationResult{Sent: len(created)}, nil
}
