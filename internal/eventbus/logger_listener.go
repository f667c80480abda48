package eventbus

import (
	"context"

	"github.com/annel0/voxel-export/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в отладочный лог.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		logging.Trace("[EventBus] %s %s session=%s prio=%d %s", ev.ID, ev.EventType, ev.Session, ev.Priority, ev.Payload)
	})
	if err != nil {
		return nil, err
	}
	logging.Debug("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
