package plugin

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// publishTimeout bounds how long a notification may wait for bus capacity.
const publishTimeout = time.Second

// Host is the context handed to HostAware plugins when they are registered.
type Host struct {
	Logger *zap.Logger
	Events EventBus
}

// NewHost creates a Host. A nil logger becomes a no-op logger; a nil bus
// drops notifications.
func NewHost(logger *zap.Logger, events EventBus) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{Logger: logger, Events: events}
}

// Notify publishes a fire-and-forget notification. Delivery failures are
// logged and otherwise ignored.
func (h *Host) Notify(name, source string, data any) {
	if h == nil || h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.Events.Publish(ctx, NewEvent(name, source, data)); err != nil {
		h.logger().Debug("notification dropped",
			zap.String("event", name), zap.String("source", source), zap.Error(err))
	}
}

func (h *Host) logger() *zap.Logger {
	if h == nil || h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
