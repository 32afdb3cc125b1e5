package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/auth"
	"github.com/schoolguidance/tracker/internal/pkg/email"
	"github.com/schoolguidance/tracker/internal/pkg/throttle"
	"github.com/schoolguidance/tracker/internal/pkg/websocket"
)

// Store gives services repositories on the pool or inside a transaction
type Store struct {
	beginner db.TxBeginner
	repos    *repositories.Repositories
}

// NewStore creates a Store. conn is normally a *pgxpool.Pool.
func NewStore(conn interface {
	db.DBTX
	db.TxBeginner
}) *Store {
	return &Store{beginner: conn, repos: repositories.NewRepositories(conn)}
}

// Repos returns repositories bound to the pool
func (s *Store) Repos() *repositories.Repositories {
	return s.repos
}

// InTx runs fn with repositories bound to one transaction
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos *repositories.Repositories) error) error {
	return db.WithTransaction(ctx, s.beginner, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, s.repos.WithTx(tx))
	})
}

// Pusher delivers live events to connected users
type Pusher interface {
	SendToUser(userID int64, eventType string, data interface{})
}

// notifier stores notifications and, once the surrounding transaction has
// committed, pushes them and sends email copies.
type notifier struct {
	pusher Pusher
	mailer email.EmailService
	logger zerolog.Logger
}

func storeNotices(ctx context.Context, repos *repositories.Repositories, notices []workflow.Notice) ([]models.Notification, error) {
	created := make([]models.Notification, 0, len(notices))
	for _, notice := range notices {
		n := models.Notification{
			UserID:           notice.UserID,
			Title:            notice.Title,
			Message:          notice.Message,
			NotificationType: notice.Type,
			RelatedReportID:  notice.ReportID,
		}
		if err := repos.Notifications.Create(ctx, &n); err != nil {
			return nil, err
		}
		created = append(created, n)
	}
	return created, nil
}

func (n *notifier) push(created []models.Notification) {
	if n == nil || n.pusher == nil {
		return
	}
	for i := range created {
		n.pusher.SendToUser(created[i].UserID, websocket.EventNotification, created[i])
	}
}

// sendMail runs a mail job in the background; failures are logged only
func (n *notifier) sendMail(kind string, job func(email.EmailService) error) {
	if n == nil || n.mailer == nil {
		return
	}
	go func() {
		if err := job(n.mailer); err != nil {
			n.logger.Warn().Err(err).Str("kind", kind).Msg("Failed to send email")
		}
	}()
}

// Dependencies are the collaborators shared by all services
type Dependencies struct {
	Store    *Store
	JWT      *auth.JWTService
	Limiter  throttle.Limiter
	Mailer   email.EmailService
	Pusher   Pusher
	Logger   zerolog.Logger
	Settings SettingsOptions
	Security SecurityOptions
}

// Services holds every service of the application
type Services struct {
	Auth          AuthService
	Teachers      TeacherService
	Students      StudentService
	Reports       ReportService
	Violations    ViolationService
	Notifications NotificationService
	SchoolYears   SchoolYearService
	Dashboard     DashboardService
	Settings      SettingsService
	Counseling    CounselingService
}

// NewServices wires all services
func NewServices(deps Dependencies) *Services {
	n := &notifier{pusher: deps.Pusher, mailer: deps.Mailer, logger: deps.Logger}
	settings := NewSettingsService(deps.Store, deps.Settings, deps.Logger)

	return &Services{
		Auth:          NewAuthService(deps.Store, deps.JWT, deps.Limiter, settings, n, deps.Security, deps.Logger),
		Teachers:      NewTeacherService(deps.Store, settings, n, deps.Logger),
		Students:      NewStudentService(deps.Store, settings, n, deps.Logger),
		Reports:       NewReportService(deps.Store, settings, n, deps.Logger),
		Violations:    NewViolationService(deps.Store, settings, n, deps.Logger),
		Notifications: NewNotificationService(deps.Store, n, deps.Logger),
		SchoolYears:   NewSchoolYearService(deps.Store, settings, n, deps.Logger),
		Dashboard:     NewDashboardService(deps.Store, settings),
		Settings:      settings,
		Counseling:    NewCounselingService(deps.Store, n, deps.Logger),
	}
}
