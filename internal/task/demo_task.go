package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// DemoPayload is the payload of a Demo task.
type DemoPayload struct {
	Message string `json:"message"`
}

// DemoHandler logs its payload message. It exists to validate the enqueue,
// claim and execute pipeline end to end; the demo producer that feeds it is
// disabled in steady-state configuration.
type DemoHandler struct {
	logger *slog.Logger
}

// NewDemoHandler creates a DemoHandler.
func NewDemoHandler(logger *slog.Logger) *DemoHandler {
	return &DemoHandler{logger: logger}
}

// Type returns the Demo type tag.
func (h *DemoHandler) Type() string {
	return TypeDemo
}

// Execute logs the payload message.
func (h *DemoHandler) Execute(ctx context.Context, payload json.RawMessage) error {
	var p DemoPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid demo payload: %w", err)
	}

	h.logger.Info("demo task executed", "message", p.Message)
	return nil
}
