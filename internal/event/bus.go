package event

import (
	"sync"

	"github.com/Versifine/arena/internal/logger"
)

type HandlerFunc func(raw any)

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine. A panicking handler is logged and skipped.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]HandlerFunc),
	}
}

func (b *Bus) Subscribe(eventName string, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *Bus) Publish(eventName string, evt any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]HandlerFunc, len(b.handlers[eventName]))
	copy(handlers, b.handlers[eventName])
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.deliver(eventName, handler, evt)
	}
}

func (b *Bus) deliver(eventName string, h HandlerFunc, evt any) {
	defer func() {
		if r := recover(); r != nil {
			logger.With("event").Error("Event handler panicked", "event", eventName, "panic", r)
		}
	}()
	h(evt)
}
