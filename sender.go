package traybridge

import (
	"errors"

	"go.uber.org/zap"

	"github.com/example/traybridge/internal/protocol"
)

// SendAction normalises checkbox titles in the action's payload, encodes it
// and writes it to the renderer. The caller's values are not modified. Only
// encoding failures are returned; transmission failures go to OnError
// listeners.
func (c *Controller) SendAction(action Action) error {
	if action == nil {
		return &protocol.EncodingError{Err: errors.New("nil action")}
	}

	msg := c.encoder.Message(action)
	line, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.logger.Debug("sending action", zap.String("type", action.MessageType()))
	c.bridge.WriteLine(string(line))
	return nil
}

// WriteLine writes a raw protocol line. Empty lines are ignored.
func (c *Controller) WriteLine(line string) *Controller {
	c.bridge.WriteLine(line)
	return c
}
