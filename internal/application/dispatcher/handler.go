package dispatcher

import (
	"context"

	"github.com/garyjia/invoice-insights/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler. EventType is empty for
// handlers subscribed to every event type.
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
