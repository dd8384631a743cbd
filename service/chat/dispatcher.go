package chat

import (
	"context"

	"linkchat/logger"
	"linkchat/service/metrics"
)

type frameHandler func(ctx context.Context, c *Client, f *InboundFrame)

// Dispatcher routes decoded frames to their kind's handler. Registration
// happens once at server construction; dispatch is read-only after that.
type Dispatcher struct {
	handlers map[string]frameHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]frameHandler)}
}

func (d *Dispatcher) Register(frameType string, h frameHandler) {
	d.handlers[frameType] = h
}

func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, f *InboundFrame) {
	metrics.FramesIn.WithLabelValues(f.Type).Inc()
	h, ok := d.handlers[f.Type]
	if !ok {
		logger.Debugf("no handler for frame type=%s conn=%s", f.Type, c.ID)
		return
	}
	h(ctx, c, f)
}
