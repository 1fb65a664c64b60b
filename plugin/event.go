package plugin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBusClosed is returned when publishing to a closed EventBus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrPublishTimeout is returned when the publish buffer is full and context expires.
	ErrPublishTimeout = errors.New("event publish timeout: buffer full")
)

// Host-observable notifications. All are fire-and-forget.
const (
	EventPluginLoaded      = "plugin.loaded"
	EventPluginUnloaded    = "plugin.unloaded"
	EventPluginInitialized = "plugin.initialized"
	EventPluginShutdown    = "plugin.shutdown"
	EventPluginError       = "plugin.error"
	EventSettingsChanged   = "plugin.settings.changed"

	EventSystemLoaded   = "system.loaded"
	EventSystemShutdown = "system.shutdown"

	EventRulesChanged   = "logging.rules.changed"
	EventFileChanged    = "logging.file.changed"
	EventConsoleChanged = "logging.console.changed"
	EventFormatChanged  = "logging.format.changed"
)

// Event is a notification raised by the registry, the loader or a plugin.
type Event struct {
	ID        uuid.UUID // unique per event
	Name      string    // e.g. "plugin.loaded"
	Data      any       // payload
	Source    string    // originating plugin name
	Timestamp time.Time // when the event was created
}

// ErrorData is the payload of EventPluginError.
type ErrorData struct {
	Reason string
	Err    error
}

// NewEvent builds an event with a fresh ID and the current time.
func NewEvent(name, source string, data any) Event {
	return Event{
		ID:        uuid.New(),
		Name:      name,
		Data:      data,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// EventHandler is the typed handler for events.
type EventHandler func(ctx context.Context, event Event) error

// Subscription represents an active event subscription.
type Subscription interface {
	Unsubscribe()
}

// EventBus delivers notifications to subscribers.
type EventBus interface {
	// Publish sends an event. Blocks if buffer is full until ctx expires.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a handler for a topic. Returns a Subscription for unsubscribing.
	Subscribe(topic string, handler EventHandler) Subscription

	// Close drains pending events and waits for in-flight handlers to complete.
	Close() error
}
