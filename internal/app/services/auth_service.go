package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/auth"
	"github.com/schoolguidance/tracker/internal/pkg/email"
	"github.com/schoolguidance/tracker/internal/pkg/throttle"
)

// SecurityOptions configures password resets
type SecurityOptions struct {
	PasswordResetTTL time.Duration
}

// AuthService handles registration, login and password recovery
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, clientIP string) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, emailAddr string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetProfile(ctx context.Context, userID int64) (*dto.UserProfile, error)
}

type authService struct {
	store      *Store
	jwtService *auth.JWTService
	limiter    throttle.Limiter
	settings   SettingsService
	notifier   *notifier
	resetTTL   time.Duration
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	store *Store,
	jwtService *auth.JWTService,
	limiter throttle.Limiter,
	settings SettingsService,
	n *notifier,
	security SecurityOptions,
	logger zerolog.Logger,
) *authService {
	ttl := security.PasswordResetTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &authService{
		store:      store,
		jwtService: jwtService,
		limiter:    limiter,
		settings:   settings,
		notifier:   n,
		resetTTL:   ttl,
		logger:     logger,
	}
}

func validationError(format string, args ...interface{}) error {
	return apperrors.NewCustomError(apperrors.ErrValidationFailed, fmt.Sprintf(format, args...))
}

// Register creates an account with its role profile. Teachers start inactive
// and pending approval, and every active admin is told about the request.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	switch req.RoleType {
	case models.RoleStudent:
		if err := models.ValidateEnrollment(req.GradeLevel, req.Strand); err != nil {
			return nil, apperrors.NewCustomError(apperrors.ErrValidationFailed, err.Error())
		}
	case models.RoleTeacher, models.RoleCounselor:
		if strings.TrimSpace(req.EmployeeID) == "" {
			return nil, validationError("employeeId is required for %s accounts", strings.ToLower(string(req.RoleType)))
		}
	default:
		return nil, validationError("roleType %q cannot self-register", req.RoleType)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	schoolYear := req.SchoolYear
	if req.RoleType == models.RoleStudent && schoolYear == "" {
		schoolYear = s.settings.CurrentSchoolYear(ctx)
	}

	profile := &dto.UserProfile{}
	var created []models.Notification
	err = s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if exists, err := repos.Users.UsernameExists(ctx, req.Username); err != nil {
			return err
		} else if exists {
			return apperrors.ErrUsernameAlreadyExists
		}
		if exists, err := repos.Users.EmailExists(ctx, req.Email); err != nil {
			return err
		} else if exists {
			return apperrors.ErrEmailAlreadyExists
		}

		user := &models.User{
			Username:  req.Username,
			Email:     req.Email,
			Password:  hash,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			RoleType:  req.RoleType,
			IsActive:  req.RoleType != models.RoleTeacher,
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}
		profile.User = user

		switch req.RoleType {
		case models.RoleStudent:
			if req.StudentID != "" {
				if exists, err := repos.Students.StudentIDExists(ctx, req.StudentID); err != nil {
					return err
				} else if exists {
					return apperrors.ErrStudentIDAlreadyExists
				}
			}
			student := &models.Student{
				UserID:        user.ID,
				StudentID:     req.StudentID,
				GradeLevel:    req.GradeLevel,
				Strand:        req.Strand,
				Section:       req.Section,
				SchoolYear:    schoolYear,
				ContactNumber: req.ContactNumber,
				IsActive:      true,
			}
			if err := repos.Students.Create(ctx, student); err != nil {
				return err
			}
			profile.Student = student

		case models.RoleTeacher:
			teacher := &models.Teacher{
				UserID:          user.ID,
				EmployeeID:      req.EmployeeID,
				Department:      req.Department,
				Specialization:  req.Specialization,
				AdvisingGrade:   req.AdvisingGrade,
				AdvisingStrand:  req.AdvisingStrand,
				AdvisingSection: req.AdvisingSection,
				ApprovalStatus:  models.ApprovalPending,
			}
			if err := repos.Teachers.Create(ctx, teacher); err != nil {
				return err
			}
			profile.Teacher = teacher

			admins, err := repos.Users.ListActiveIDsByRole(ctx, models.RoleAdmin)
			if err != nil {
				return err
			}
			notices := make([]workflow.Notice, 0, len(admins))
			for _, adminID := range admins {
				notices = append(notices, workflow.Notice{
					UserID:  adminID,
					Title:   "New Teacher Registration",
					Message: fmt.Sprintf("%s (%s) registered as a teacher and is waiting for approval.", user.FullName(), teacher.EmployeeID),
					Type:    models.NotificationTeacherRegistered,
				})
			}
			if created, err = storeNotices(ctx, repos, notices); err != nil {
				return err
			}

		case models.RoleCounselor:
			counselor := &models.Counselor{
				UserID:         user.ID,
				EmployeeID:     req.EmployeeID,
				Specialization: req.Specialization,
				Office:         req.Office,
			}
			if err := repos.Counselors.Create(ctx, counselor); err != nil {
				return err
			}
			profile.Counselor = counselor
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.push(created)
	s.logger.Info().
		Int64("userID", profile.User.ID).
		Str("roleType", string(req.RoleType)).
		Msg("User registered")

	if req.RoleType == models.RoleTeacher {
		return &dto.AuthResponse{Profile: profile, ApprovalStatus: models.ApprovalPending}, nil
	}

	token, err := s.issueTokens(ctx, profile.User)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: token, Profile: profile}, nil
}

func throttleKey(username, clientIP string) string {
	return strings.ToLower(strings.TrimSpace(username)) + "|" + clientIP
}

// Login authenticates by username or email. Repeated failures for the same
// username and client are throttled.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, clientIP string) (*dto.AuthResponse, error) {
	key := throttleKey(req.Username, clientIP)
	if s.limiter != nil {
		blocked, err := s.limiter.Blocked(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Login throttle lookup failed")
		} else if blocked {
			return nil, apperrors.ErrTooManyAttempts
		}
	}

	repos := s.store.Repos()
	user, err := repos.Users.GetByLogin(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.recordFailure(ctx, key)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		s.recordFailure(ctx, key)
		return nil, apperrors.ErrInvalidCredentials
	}

	profile, err := s.loadProfile(ctx, repos, user)
	if err != nil {
		return nil, err
	}

	if profile.Teacher != nil && profile.Teacher.ApprovalStatus != models.ApprovalApproved {
		details := map[string]interface{}{"approval_status": profile.Teacher.ApprovalStatus}
		if profile.Teacher.ApprovalStatus == models.ApprovalRejected {
			if profile.Teacher.RejectionReason != "" {
				details["rejection_reason"] = profile.Teacher.RejectionReason
			}
			return nil, apperrors.NewCustomError(apperrors.ErrAccountRejected,
				"Your teacher registration was rejected").WithDetails(details)
		}
		return nil, apperrors.NewCustomError(apperrors.ErrAccountPending,
			"Your teacher account is waiting for administrator approval").WithDetails(details)
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, key); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to reset login throttle")
		}
	}
	if err := repos.Users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to update last login")
	}

	token, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Str("roleType", string(user.RoleType)).Msg("User logged in")
	return &dto.AuthResponse{Token: token, Profile: profile}, nil
}

func (s *authService) recordFailure(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if _, err := s.limiter.Fail(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record login failure")
	}
}

func (s *authService) issueTokens(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, err
	}
	if err := s.store.Repos().Tokens.CreateToken(ctx, pair.RefreshToken, user.ID, s.jwtService.GetRefreshTokenExpiry()); err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             pair.ExpiresIn,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: pair.RefreshExpiresIn,
	}, nil
}

// RefreshToken rotates a refresh token: the old one is revoked
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	repos := s.store.Repos()
	userID, err := repos.Tokens.GetActiveToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := repos.Tokens.RevokeToken(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.store.Repos().Tokens.RevokeToken(ctx, refreshToken)
	if err != nil && !errors.Is(err, apperrors.ErrTokenNotFound) {
		return err
	}
	return nil
}

// ForgotPassword emails a reset link. It succeeds silently for unknown
// addresses so callers cannot probe for accounts.
func (s *authService) ForgotPassword(ctx context.Context, emailAddr string) error {
	repos := s.store.Repos()
	user, err := repos.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.Info().Msg("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := email.GenerateToken()
	if err != nil {
		return fmt.Errorf("error generating reset token: %w", err)
	}
	if err := repos.PasswordResets.DeleteTokensByUserID(ctx, user.ID); err != nil {
		return err
	}
	if err := repos.PasswordResets.CreateToken(ctx, user.ID, token, time.Now().Add(s.resetTTL)); err != nil {
		return err
	}

	to, name := user.Email, user.FullName()
	s.notifier.sendMail("password_reset", func(m email.EmailService) error {
		return m.SendPasswordResetEmail(to, name, token)
	})
	s.logger.Info().Int64("userID", user.ID).Msg("Password reset token issued")
	return nil
}

// ResetPassword consumes a reset token and signs the user out everywhere
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewCustomError(apperrors.ErrInvalidPassword, "password must be at least 8 characters long")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	var userID int64
	err = s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		var err error
		userID, err = repos.PasswordResets.Consume(ctx, token)
		if err != nil {
			return err
		}
		if err := repos.Users.UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		return repos.Tokens.RevokeAllUserTokens(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("userID", userID).Msg("Password reset completed")
	return nil
}

// GetProfile returns the user with its role profile
func (s *authService) GetProfile(ctx context.Context, userID int64) (*dto.UserProfile, error) {
	repos := s.store.Repos()
	user, err := repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.loadProfile(ctx, repos, user)
}

func (s *authService) loadProfile(ctx context.Context, repos *repositories.Repositories, user *models.User) (*dto.UserProfile, error) {
	profile := &dto.UserProfile{User: user}
	var err error
	switch user.RoleType {
	case models.RoleStudent:
		profile.Student, err = repos.Students.GetByUserID(ctx, user.ID)
	case models.RoleTeacher:
		profile.Teacher, err = repos.Teachers.GetByUserID(ctx, user.ID)
	case models.RoleCounselor:
		profile.Counselor, err = repos.Counselors.GetByUserID(ctx, user.ID)
	}
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	return profile, nil
}
