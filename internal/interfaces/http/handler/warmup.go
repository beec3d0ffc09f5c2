package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appwarmup "github.com/procurehub/portal/internal/application/warmup"
)

// WarmupHandler exposes the per-process readiness gate to the browser:
// a status snapshot for polling and an SSE relay of gate state changes.
// There is one gate per portal process; every browser tab observes the
// same warm-up.
type WarmupHandler struct {
	BaseHandler
	gate      *appwarmup.Gate
	start     func()
	logger    *zap.Logger
	heartbeat time.Duration
}

// WarmupHandlerOption is a functional option for configuring the handler
type WarmupHandlerOption func(*WarmupHandler)

// WithWarmupLogger sets the logger for the handler
func WithWarmupLogger(logger *zap.Logger) WarmupHandlerOption {
	return func(h *WarmupHandler) { h.logger = logger }
}

// WithWarmupHeartbeat sets the SSE heartbeat interval
func WithWarmupHeartbeat(interval time.Duration) WarmupHandlerOption {
	return func(h *WarmupHandler) { h.heartbeat = interval }
}

// WithWarmupStarter sets the callback that launches the gate run loop.
// The caller makes it idempotent; repeated Start requests join the
// running gate.
func WithWarmupStarter(start func()) WarmupHandlerOption {
	return func(h *WarmupHandler) { h.start = start }
}

// NewWarmupHandler creates a new warm-up handler over the gate
func NewWarmupHandler(gate *appwarmup.Gate, opts ...WarmupHandlerOption) *WarmupHandler {
	h := &WarmupHandler{
		gate:      gate,
		logger:    zap.NewNop(),
		heartbeat: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start launches the gate run loop if it is not already running and
// returns the current snapshot. Subsequent calls join the same gate.
func (h *WarmupHandler) Start(c *gin.Context) {
	if h.start != nil {
		h.start()
	}
	h.Success(c, h.gate.State())
}

// Status returns the current gate snapshot. The overlay polls this when
// the SSE stream is unavailable.
func (h *WarmupHandler) Status(c *gin.Context) {
	h.Success(c, h.gate.State())
}

// Stream relays gate state changes as Server-Sent Events. Each state
// change is a "state" event; the terminal dismissal also emits a
// "dismissed" event and closes the stream.
func (h *WarmupHandler) Stream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sub := h.gate.Subscribe()
	defer h.gate.Unsubscribe(sub)

	h.logger.Debug("warm-up SSE client connected")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	reqCtx := c.Request.Context()

	for {
		select {
		case <-reqCtx.Done():
			h.logger.Debug("warm-up SSE client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(c.Writer, "heartbeat", fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()))
			c.Writer.Flush()
		case snapshot, ok := <-sub:
			if !ok {
				return
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				h.logger.Error("failed to marshal warm-up snapshot", zap.Error(err))
				continue
			}
			h.sendEvent(c.Writer, "state", string(data))
			if snapshot.Dismissed {
				h.sendEvent(c.Writer, "dismissed", string(data))
				c.Writer.Flush()
				return
			}
			c.Writer.Flush()
		}
	}
}

// sendEvent writes one SSE event to the response writer
func (h *WarmupHandler) sendEvent(w io.Writer, event, data string) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
