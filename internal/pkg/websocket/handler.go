package websocket

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/pkg/auth"
)

// TokenValidator validates access tokens
type TokenValidator interface {
	ValidateAndExtractClaims(tokenString string) (*auth.Claims, error)
}

// Handler upgrades authenticated requests to notification sockets
type Handler struct {
	hub     *Hub
	tokens  TokenValidator
	inbound InboundHandler
	logger  zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, tokens TokenValidator, inbound InboundHandler, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, tokens: tokens, inbound: inbound, logger: logger}
}

// requestToken reads the access token from the Authorization header or, since
// browsers cannot set headers on websocket requests, the token query parameter.
func requestToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, err := auth.ExtractBearerToken(header); err == nil {
			return token
		}
	}
	return strings.TrimSpace(c.Query("token"))
}

// HandleConnection godoc
// @Summary Live notification stream
// @Description Upgrades to a WebSocket that receives notification events for the caller
// @Tags notifications
// @Param token query string false "Access token when the Authorization header cannot be set"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} dto.ErrorResponse
// @Router /notifications/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	token := requestToken(c)
	if token == "" {
		c.AbortWithStatusJSON(401, gin.H{"success": false, "message": "Authentication required"})
		return
	}
	claims, err := h.tokens.ValidateAndExtractClaims(token)
	if err != nil {
		c.AbortWithStatusJSON(401, gin.H{"success": false, "message": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", claims.UserID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, 64),
		userID:  claims.UserID,
		inbound: h.inbound,
		logger:  h.logger,
	}
	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
