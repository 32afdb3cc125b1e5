package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/logger"
)

// errorMapping is one row of the error-to-response table
type errorMapping struct {
	targets []error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order; the first matching row wins
var errorMappings = []errorMapping{
	{
		targets: []error{apperrors.ErrResourceNotFound, apperrors.ErrUserNotFound, apperrors.ErrStudentNotFound,
			apperrors.ErrTeacherNotFound, apperrors.ErrCounselorNotFound, apperrors.ErrReportNotFound,
			apperrors.ErrViolationTypeNotFound, apperrors.ErrViolationNotFound, apperrors.ErrSessionNotFound,
			apperrors.ErrNotificationNotFound},
		status: http.StatusNotFound, code: dto.ErrorCodeResourceNotFound, message: "Resource not found",
	},
	{
		targets: []error{apperrors.ErrAccountPending, apperrors.ErrAccountRejected, apperrors.ErrAccountDisabled},
		status:  http.StatusForbidden, code: dto.ErrorCodeAccountInactive, message: "Account is not active",
	},
	{
		targets: []error{apperrors.ErrPermissionDenied},
		status:  http.StatusForbidden, code: dto.ErrorCodeForbidden, message: "Permission denied",
	},
	{
		targets: []error{apperrors.ErrInvalidCredentials},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeInvalidCredentials, message: "Invalid username or password",
	},
	{
		targets: []error{apperrors.ErrTokenExpired},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeExpiredToken, message: "Token expired",
	},
	{
		targets: []error{apperrors.ErrTokenNotFound},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeTokenNotFound, message: "Token not found",
	},
	{
		targets: []error{apperrors.ErrTokenInvalid, apperrors.ErrTokenRevoked},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeInvalidToken, message: "Invalid token",
	},
	{
		targets: []error{apperrors.ErrTooManyAttempts},
		status:  http.StatusTooManyRequests, code: dto.ErrorCodeTooManyAttempts, message: "Too many failed login attempts, try again later",
	},
	{
		targets: []error{apperrors.ErrInvalidStatus},
		status:  http.StatusBadRequest, code: dto.ErrorCodeInvalidStatus, message: "Invalid report status",
	},
	{
		targets: []error{apperrors.ErrInvalidEmail},
		status:  http.StatusBadRequest, code: dto.ErrorCodeInvalidEmail, message: "Invalid email",
	},
	{
		targets: []error{apperrors.ErrInvalidPassword},
		status:  http.StatusBadRequest, code: dto.ErrorCodeInvalidPassword, message: "Invalid password",
	},
	{
		targets: []error{apperrors.ErrValidationFailed, apperrors.ErrBadRequest,
			apperrors.ErrInvalidPasswordResetToken, apperrors.ErrPasswordResetTokenUsed},
		status: http.StatusBadRequest, code: dto.ErrorCodeValidationFailed, message: "Validation failed",
	},
	{
		targets: []error{apperrors.ErrInvalidTransition},
		status:  http.StatusConflict, code: dto.ErrorCodeInvalidTransition, message: "Invalid status transition",
	},
	{
		targets: []error{apperrors.ErrResourceAlreadyExists, apperrors.ErrUsernameAlreadyExists,
			apperrors.ErrEmailAlreadyExists, apperrors.ErrStudentIDAlreadyExists},
		status: http.StatusConflict, code: dto.ErrorCodeResourceAlreadyExists, message: "Resource already exists",
	},
	{
		targets: []error{apperrors.ErrConflict},
		status:  http.StatusConflict, code: dto.ErrorCodeConflict, message: "Conflict",
	},
	{
		targets: []error{apperrors.ErrSystemFrozen},
		status:  http.StatusServiceUnavailable, code: dto.ErrorCodeSystemFrozen, message: "The system is currently inactive",
	},
}

// lookupError finds the mapping for err
func lookupError(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if apperrors.Is(err, m.targets[0], m.targets[1:]...) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// HandleAPIError writes the error response for err. Known errors expose
// their message; anything else is logged and answered with a generic 500.
func HandleAPIError(c *gin.Context, err error) {
	m, ok := lookupError(err)
	if !ok {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Unhandled error")
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
			WithSeverity(dto.ErrorSeverityCritical)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(errorDetail))
		return
	}

	errorDetail := dto.NewErrorDetail(m.code, m.message)

	// Sentinels carry their own text; CustomError adds message and context
	var custom *apperrors.CustomError
	if errors.As(err, &custom) {
		if custom.Message != "" {
			errorDetail.Message = custom.Message
		}
		if custom.Code != "" {
			errorDetail.Code = dto.ErrorCode(custom.Code)
		}
		if len(custom.Details) > 0 {
			errorDetail.WithDetails(custom.Details)
		}
	} else {
		errorDetail.WithDetails(err.Error())
	}

	if m.status < http.StatusInternalServerError {
		errorDetail.WithSeverity(dto.ErrorSeverityWarning)
	}
	c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(errorDetail))
}

// RespondSuccess writes the standard success envelope
func RespondSuccess(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, dto.NewSuccessResponse(data, message))
}

// RespondValidationError writes a 400 for a failed request binding
func RespondValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}

// Recovery turns panics into the generic 500 response
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
			WithSeverity(dto.ErrorSeverityCritical)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(errorDetail))
	})
}
