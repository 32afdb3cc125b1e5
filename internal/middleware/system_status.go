package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
)

// DefaultFrozenMessage is shown when the settings carry no system message
const DefaultFrozenMessage = "The Guidance Tracking System is currently unavailable. " +
	"The system will be reactivated when the new school year begins."

// SettingsProvider returns the current system settings
type SettingsProvider interface {
	GetSettings(ctx context.Context) (*models.SystemSettings, error)
}

// frozenAllowed lists the routes that stay reachable while the system is
// deactivated. Entries ending in "/" match as prefixes.
var frozenAllowed = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/logout",
	"/api/v1/auth/refresh",
	"/api/v1/system/settings",
	"/swagger/",
	"/ping",
}

func frozenAllowedPath(path string) bool {
	for _, p := range frozenAllowed {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// SystemStatus answers 503 while the system is deactivated. Admin users and
// the allow-listed routes pass through. A failed settings lookup lets the
// request proceed.
func SystemStatus(settings SettingsProvider, tokens TokenValidator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if frozenAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		current, err := settings.GetSettings(c.Request.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Could not load system settings, allowing request")
			c.Next()
			return
		}
		if current.IsSystemActive {
			c.Next()
			return
		}

		if isAdminRequest(c, tokens) {
			c.Next()
			return
		}

		message := current.SystemMessage
		if message == "" {
			message = DefaultFrozenMessage
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.SystemFrozenResponse{
			Success:           false,
			Error:             "system_frozen",
			Message:           message,
			CurrentSchoolYear: current.CurrentSchoolYear,
			IsSystemActive:    false,
		})
	}
}

// isAdminRequest peeks at the access token without rejecting the request
func isAdminRequest(c *gin.Context, tokens TokenValidator) bool {
	tokenString, err := tokenFromRequest(c)
	if err != nil {
		return false
	}
	claims, err := tokens.ValidateAndExtractClaims(tokenString)
	if err != nil {
		return false
	}
	return models.RoleType(claims.RoleType) == models.RoleAdmin
}
