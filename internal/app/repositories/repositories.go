package repositories

import (
	"github.com/Masterminds/squirrel"
	"github.com/schoolguidance/tracker/internal/db"
)

// psql builds PostgreSQL-flavoured statements
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// Repositories holds all the repository instances
type Repositories struct {
	Users          *UserRepository
	Students       *StudentRepository
	Teachers       *TeacherRepository
	Counselors     *CounselorRepository
	Reports        *ReportRepository
	ViolationTypes *ViolationTypeRepository
	Violations     *ViolationRepository
	Tallies        *TallyRepository
	Notifications  *NotificationRepository
	Settings       *SettingsRepository
	History        *HistoryRepository
	Sessions       *CounselingSessionRepository
	Dashboard      *DashboardRepository
	Tokens         *TokenRepository
	PasswordResets *PasswordResetTokenRepository
}

// NewRepositories initializes all repositories on the given connection, which
// may be the pool or an open transaction.
func NewRepositories(conn db.DBTX) *Repositories {
	return &Repositories{
		Users:          NewUserRepository(conn),
		Students:       NewStudentRepository(conn),
		Teachers:       NewTeacherRepository(conn),
		Counselors:     NewCounselorRepository(conn),
		Reports:        NewReportRepository(conn),
		ViolationTypes: NewViolationTypeRepository(conn),
		Violations:     NewViolationRepository(conn),
		Tallies:        NewTallyRepository(conn),
		Notifications:  NewNotificationRepository(conn),
		Settings:       NewSettingsRepository(conn),
		History:        NewHistoryRepository(conn),
		Sessions:       NewCounselingSessionRepository(conn),
		Dashboard:      NewDashboardRepository(conn),
		Tokens:         NewTokenRepository(conn),
		PasswordResets: NewPasswordResetTokenRepository(conn),
	}
}

// WithTx returns repositories bound to tx
func (r *Repositories) WithTx(tx db.DBTX) *Repositories {
	return NewRepositories(tx)
}
