package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Task type tags. A tag must be registered in the Registry for tasks carrying
// it to be executable.
const (
	// TypeDemo is a fixed-payload task used to validate the pipeline end to end.
	TypeDemo = "Demo"

	// TypeCheckInbox checks one watched account's inbox and pushes
	// notifications for new items.
	TypeCheckInbox = "CheckInbox"
)

// Registry errors
var (
	ErrEmptyHandlerType = errors.New("handler type cannot be empty")
	ErrDuplicateHandler = errors.New("handler already registered for type")
)

// Handler executes the payload of one task type. Implementations must be safe
// for concurrent use: the worker pool invokes the same handler from multiple
// executors at once.
type Handler interface {
	// Type returns the task type tag this handler executes.
	Type() string

	// Execute runs the task logic against the given payload. A nil return
	// completes the task; any error fails it terminally with the error's text.
	Execute(ctx context.Context, payload json.RawMessage) error
}

// Registry maps task type tags to their handlers. It is populated at startup
// and read concurrently by the worker pool's executors.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler under its type tag. Registering a second handler
// for the same tag is a wiring bug and is rejected.
func (r *Registry) Register(h Handler) error {
	if h.Type() == "" {
		return ErrEmptyHandlerType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[h.Type()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, h.Type())
	}

	r.handlers[h.Type()] = h
	return nil
}

// Lookup returns the handler for the given type tag, if one is registered.
func (r *Registry) Lookup(taskType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[taskType]
	return h, ok
}

// Types returns the registered type tags.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
