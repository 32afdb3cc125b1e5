package websocket

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Command is a message sent by a connected client
type Command struct {
	Type           string `json:"type"`
	NotificationID int64  `json:"notificationId,omitempty"`
}

const (
	CommandMarkRead    = "mark_read"
	CommandMarkAllRead = "mark_all_read"
)

// InboundHandler reacts to client commands
type InboundHandler interface {
	Handle(userID int64, cmd Command)
}

// NotificationReader is the part of the notification service the socket can drive
type NotificationReader interface {
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

// MessageHandler applies read receipts sent over the socket and answers with
// the new unread count.
type MessageHandler struct {
	notifications NotificationReader
	hub           *Hub
	logger        zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(notifications NotificationReader, hub *Hub, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{notifications: notifications, hub: hub, logger: logger}
}

func (h *MessageHandler) Handle(userID int64, cmd Command) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch cmd.Type {
	case CommandMarkRead:
		err = h.notifications.MarkAsRead(ctx, userID, cmd.NotificationID)
	case CommandMarkAllRead:
		_, err = h.notifications.MarkAllAsRead(ctx, userID)
	default:
		h.logger.Debug().Str("type", cmd.Type).Int64("userID", userID).Msg("Unknown websocket command")
		return
	}
	if err != nil {
		h.logger.Warn().Err(err).Int64("userID", userID).Str("type", cmd.Type).Msg("Websocket command failed")
		return
	}

	count, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to load unread count")
		return
	}
	h.hub.SendToUser(userID, EventUnreadCount, map[string]int64{"count": count})
}
