package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/storekit/storekit/pkg/logger"
	"github.com/storekit/storekit/pkg/notifications"
	gw "github.com/storekit/storekit/pkg/realtime"
)

// NotifyHandlers serves socket-originated notification submission.
type NotifyHandlers struct {
	svc *notifications.Service
	log *slog.Logger
}

// NewNotifyHandlers creates the notification event handlers.
func NewNotifyHandlers(svc *notifications.Service, log *slog.Logger) *NotifyHandlers {
	if log == nil {
		log = slog.Default()
	}
	return &NotifyHandlers{svc: svc, log: log}
}

// Register attaches the handlers to the gateway.
func (h *NotifyHandlers) Register(hub *gw.Hub) {
	hub.Handle("notification:send", h.send)
}

type sendNotificationRequest struct {
	ToUserID string         `json:"toUserId"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Meta     map[string]any `json:"meta"`
	Priority string         `json:"priority"`
}

func (h *NotifyHandlers) send(ctx context.Context, c *gw.Conn, data json.RawMessage, ack gw.AckFunc) {
	identity := c.Identity()
	if identity.IsAnonymous() {
		ack(gw.AckError(ErrUnauthorized))
		return
	}

	var req sendNotificationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ack(gw.AckError(fmt.Errorf("%w: %w", ErrValidation, err)))
		return
	}
	if req.ToUserID == "" {
		ack(gw.AckError(fmt.Errorf("%w: missing toUserId", ErrValidation)))
		return
	}

	meta := req.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	meta["from_user_id"] = identity.ID

	receipt, err := h.svc.Send(ctx, notifications.Notification{
		UserID:   req.ToUserID,
		Type:     notifications.Type(req.Type),
		Priority: notifications.Priority(req.Priority),
		Title:    req.Title,
		Message:  req.Body,
		Metadata: meta,
	})
	if err != nil {
		ack(gw.AckError(err))
		return
	}

	ack(gw.AckOK(map[string]any{"id": receipt.ID, "queued": receipt.Queued}))

	h.log.Info("notification submitted",
		slog.String("notification_id", receipt.ID),
		logger.UserID(req.ToUserID),
		slog.Bool("queued", receipt.Queued))
}
