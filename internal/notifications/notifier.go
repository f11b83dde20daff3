package notifications

import (
	"context"
	"log/slog"

	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/metrics"
	"github.com/vibhor121/mastersunion/internal/realtime"
)

// Notifier persists a notification and pushes it to the recipient's live
// connection. It is used only for best-effort side effects: failures are
// logged and counted, never returned.
type Notifier struct {
	store      *Store
	dispatcher realtime.Dispatcher
	logger     *slog.Logger
}

func NewNotifier(store *Store, dispatcher realtime.Dispatcher, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Notify reports whether the notification was stored. Dispatch happens only
// after a successful insert.
func (n *Notifier) Notify(ctx context.Context, notification *models.Notification) bool {
	if err := n.store.Create(ctx, notification); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues("notification").Inc()
		n.logger.Error("failed to create notification",
			"user_id", notification.UserID,
			"type", notification.Type,
			"error", err,
		)
		return false
	}

	n.dispatcher.Deliver(notification.UserID, realtime.EventNotificationNew, notification)
	return true
}
