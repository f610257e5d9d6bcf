package traybridge

import (
	"errors"

	"go.uber.org/zap"

	"github.com/example/traybridge/internal/logging"
	"github.com/example/traybridge/internal/protocol"
)

// route dispatches renderer output until the line sequence closes. Lines are
// handled one at a time in arrival order.
func (c *Controller) route(lines <-chan string) {
	defer close(c.routed)
	for line := range lines {
		c.dispatch(line)
	}
	c.logger.Debug("renderer output closed")
}

func (c *Controller) dispatch(line string) {
	ev, err := protocol.DecodeEvent([]byte(line))
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			c.logger.Debug("ignoring renderer message", zap.Error(err))
			return
		}
		c.logger.Warn("discarding undecodable renderer line",
			zap.Error(err),
			zap.String("payload", logging.DescribePayload([]byte(line))))
		return
	}

	switch ev := ev.(type) {
	case protocol.ReadyEvent:
		c.logger.Debug("renderer ready")
		c.transition(StateReady)
		c.ready.Publish(struct{}{})
	case protocol.ClickEvent:
		c.logger.Debug("item clicked", zap.Int("seq_id", ev.SeqID), zap.String("title", ev.Item.Title))
		c.clicks.Publish(ev)
	}
}
